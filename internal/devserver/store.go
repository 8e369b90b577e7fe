package devserver

import (
	"sort"
	"strconv"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/pelusa-v/mailgram/internal/events"
)

// Store keeps the dev server's users, message log, reports and uploads in
// memory. Nothing survives a restart.
type Store struct {
	clock    clock.Clock
	mu       sync.RWMutex
	users    map[string]*UserRecord
	messages []MessageRecord
	reports  map[string]*ReportRecord
	uploads  map[string]upload
	nextUser int
}

// NewStore fills in missing timestamps from c, or the wall clock when c is
// nil.
func NewStore(c clock.Clock) *Store {
	if c == nil {
		c = clock.New()
	}
	return &Store{
		clock:   c,
		users:   map[string]*UserRecord{},
		reports: map[string]*ReportRecord{},
		uploads: map[string]upload{},
	}
}

// AddUser stores u, assigning the next numeric id when u.ID is empty.
func (s *Store) AddUser(u UserRecord) UserRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		s.nextUser++
		for s.users[strconv.Itoa(s.nextUser)] != nil {
			s.nextUser++
		}
		u.ID = strconv.Itoa(s.nextUser)
	}
	if u.Created.IsZero() {
		u.Created = s.clock.Now().UTC()
	}
	cp := u
	s.users[u.ID] = &cp
	return u
}

// EnsureUser returns the user with id, creating an active one named name
// when it is unknown.
func (s *Store) EnsureUser(id, name string) UserRecord {
	s.mu.RLock()
	u, ok := s.users[id]
	s.mu.RUnlock()
	if ok {
		return *u
	}
	if name == "" {
		name = "user " + id
	}
	return s.AddUser(UserRecord{ID: id, Name: name, Username: id, Active: true})
}

func (s *Store) User(id string) (UserRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return UserRecord{}, false
	}
	return *u, true
}

// Users returns every user ordered by creation time, then id.
func (s *Store) Users() []UserRecord {
	s.mu.RLock()
	out := make([]UserRecord, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *u)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Created.Equal(out[j].Created) {
			return out[i].Created.Before(out[j].Created)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// SetActive reports whether the user exists.
func (s *Store) SetActive(id string, active bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if ok {
		u.Active = active
	}
	return ok
}

// ToggleActive flips the user's active flag and returns the new value.
func (s *Store) ToggleActive(id string) (active, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return false, false
	}
	u.Active = !u.Active
	return u.Active, true
}

func (s *Store) DeleteUser(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return false
	}
	delete(s.users, id)
	return true
}

// RecordMessage assigns a server id when m has none and appends m to the
// log.
func (s *Store) RecordMessage(m MessageRecord) MessageRecord {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Kind == "" {
		m.Kind = events.KindText
	}
	s.mu.Lock()
	s.messages = append(s.messages, m)
	s.mu.Unlock()
	return m
}

func (s *Store) Messages() []MessageRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]MessageRecord(nil), s.messages...)
}

func (s *Store) AddReport(r ReportRecord) ReportRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		r.ID = strconv.Itoa(len(s.reports) + 1)
	}
	if r.Status == "" {
		r.Status = ReportPending
	}
	if r.Time.IsZero() {
		r.Time = s.clock.Now().UTC()
	}
	cp := r
	s.reports[r.ID] = &cp
	return r
}

func (s *Store) Reports() []ReportRecord {
	s.mu.RLock()
	out := make([]ReportRecord, 0, len(s.reports))
	for _, r := range s.reports {
		out = append(out, *r)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out
}

func (s *Store) SetReportStatus(id string, status ReportStatus) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[id]
	if ok {
		r.Status = status
	}
	return ok
}

func (s *Store) SaveUpload(name, contentType string, data []byte) string {
	id := uuid.NewString()
	s.mu.Lock()
	s.uploads[id] = upload{name: name, contentType: contentType, data: data}
	s.mu.Unlock()
	return id
}

func (s *Store) file(id string) (upload, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.uploads[id]
	return u, ok
}

// Stats are the admin dashboard counters. groups is passed in because
// membership lives with the hub.
func (s *Store) Stats(groups int) map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	active, pending := 0, 0
	for _, u := range s.users {
		if u.Active {
			active++
		}
	}
	for _, r := range s.reports {
		if r.Status == ReportPending {
			pending++
		}
	}
	return map[string]int{
		"total_users":     len(s.users),
		"active_users":    active,
		"total_groups":    groups,
		"total_messages":  len(s.messages),
		"pending_reports": pending,
	}
}
