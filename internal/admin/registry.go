package admin

import (
	"strings"

	"github.com/pkg/errors"
)

// TableSpec declares one admin table: where it is rendered and which
// columns can be sorted.
type TableSpec struct {
	Kind    string
	Title   string
	Path    string
	Columns []string
}

func (s TableSpec) HasColumn(key string) bool {
	for _, c := range s.Columns {
		if c == key {
			return true
		}
	}
	return false
}

// Registry maps declared table kinds to their specs. It is validated once
// at construction.
type Registry struct {
	specs map[string]TableSpec
	order []string
}

func NewRegistry(specs ...TableSpec) (*Registry, error) {
	if len(specs) == 0 {
		return nil, errors.New("admin: registry needs at least one table")
	}
	r := &Registry{specs: make(map[string]TableSpec, len(specs))}
	for _, s := range specs {
		s.Kind = strings.TrimSpace(s.Kind)
		if s.Kind == "" {
			return nil, errors.New("admin: table kind must not be empty")
		}
		if _, dup := r.specs[s.Kind]; dup {
			return nil, errors.Errorf("admin: duplicate table kind %q", s.Kind)
		}
		if !strings.HasPrefix(s.Path, "/") {
			return nil, errors.Errorf("admin: table %q: path must be absolute", s.Kind)
		}
		if len(s.Columns) == 0 {
			return nil, errors.Errorf("admin: table %q declares no columns", s.Kind)
		}
		seen := map[string]bool{}
		for _, c := range s.Columns {
			if c == "" || seen[c] {
				return nil, errors.Errorf("admin: table %q: empty or duplicate column %q", s.Kind, c)
			}
			seen[c] = true
		}
		r.specs[s.Kind] = s
		r.order = append(r.order, s.Kind)
	}
	return r, nil
}

func (r *Registry) Lookup(kind string) (TableSpec, error) {
	s, ok := r.specs[kind]
	if !ok {
		return TableSpec{}, errors.Wrapf(ErrUnknownTable, "%q", kind)
	}
	return s, nil
}

func (r *Registry) Kinds() []string {
	return append([]string(nil), r.order...)
}

// DefaultTables are the tables the admin panel renders.
var DefaultTables = []TableSpec{
	{Kind: "users", Title: "Users", Path: "/admin/users", Columns: []string{"id", "name", "username", "email", "phone", "status", "created"}},
	{Kind: "chats", Title: "Messages", Path: "/admin/chats", Columns: []string{"id", "sender", "receiver", "type", "content", "time"}},
	{Kind: "groups", Title: "Groups", Path: "/admin/groups", Columns: []string{"id", "name", "group_id", "creator", "members", "created"}},
	{Kind: "reports", Title: "Reports", Path: "/admin/reports", Columns: []string{"id", "reporter", "reported", "reason", "status", "time"}},
}

func DefaultRegistry() *Registry {
	r, err := NewRegistry(DefaultTables...)
	if err != nil {
		panic(err)
	}
	return r
}
