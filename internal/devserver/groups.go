package devserver

import (
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/benbjohnson/clock"
)

// normalizeGroupID trims space, collapses slashes and drops the leading one.
func normalizeGroupID(id string) string {
	g := strings.TrimSpace(id)
	if g == "" {
		return ""
	}
	g = path.Clean("/" + g)
	return strings.TrimPrefix(g, "/")
}

// Groups tracks group directory and membership in both directions.
type Groups struct {
	clock      clock.Clock
	mu         sync.RWMutex
	groups     map[string]*GroupRecord
	members    map[string]map[string]bool // group -> set(user)
	userGroups map[string]map[string]bool // user -> set(group)
}

// NewGroups stamps creation times from c, or the wall clock when c is nil.
func NewGroups(c clock.Clock) *Groups {
	if c == nil {
		c = clock.New()
	}
	return &Groups{
		clock:      c,
		groups:     map[string]*GroupRecord{},
		members:    map[string]map[string]bool{},
		userGroups: map[string]map[string]bool{},
	}
}

// Create adds a group and makes the creator its first member. It reports
// false for an invalid or taken id.
func (g *Groups) Create(creatorID, id, name string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	gid := normalizeGroupID(id)
	if gid == "" || g.groups[gid] != nil {
		return false
	}
	if name == "" {
		name = gid
	}
	g.groups[gid] = &GroupRecord{ID: gid, Name: name, CreatorID: creatorID, Created: g.clock.Now().UTC()}
	g.joinLocked(creatorID, gid)
	return true
}

// Join adds userID to an existing group.
func (g *Groups) Join(userID, id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	gid := normalizeGroupID(id)
	if g.groups[gid] == nil {
		return false
	}
	g.joinLocked(userID, gid)
	return true
}

func (g *Groups) joinLocked(userID, gid string) {
	if g.members[gid] == nil {
		g.members[gid] = map[string]bool{}
	}
	g.members[gid][userID] = true
	if g.userGroups[userID] == nil {
		g.userGroups[userID] = map[string]bool{}
	}
	g.userGroups[userID][gid] = true
}

// Leave removes userID from a group. The creator cannot leave; the group
// has to be deleted instead.
func (g *Groups) Leave(userID, id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	gid := normalizeGroupID(id)
	grp := g.groups[gid]
	if grp == nil || grp.CreatorID == userID || !g.members[gid][userID] {
		return false
	}
	delete(g.members[gid], userID)
	delete(g.userGroups[userID], gid)
	if len(g.userGroups[userID]) == 0 {
		delete(g.userGroups, userID)
	}
	return true
}

// Delete drops a group and every membership in it.
func (g *Groups) Delete(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	gid := normalizeGroupID(id)
	if g.groups[gid] == nil {
		return false
	}
	for userID := range g.members[gid] {
		delete(g.userGroups[userID], gid)
		if len(g.userGroups[userID]) == 0 {
			delete(g.userGroups, userID)
		}
	}
	delete(g.members, gid)
	delete(g.groups, gid)
	return true
}

// RemoveUser drops userID from every group it belongs to.
func (g *Groups) RemoveUser(userID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for gid := range g.userGroups[userID] {
		delete(g.members[gid], userID)
	}
	delete(g.userGroups, userID)
}

func (g *Groups) IsMember(userID, id string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.members[normalizeGroupID(id)][userID]
}

// Members returns the sorted member ids of a group.
func (g *Groups) Members(id string) []string {
	g.mu.RLock()
	set := g.members[normalizeGroupID(id)]
	out := make([]string, 0, len(set))
	for userID := range set {
		out = append(out, userID)
	}
	g.mu.RUnlock()
	sort.Strings(out)
	return out
}

type GroupView struct {
	GroupRecord
	Members int
}

func (g *Groups) List() []GroupView {
	g.mu.RLock()
	out := make([]GroupView, 0, len(g.groups))
	for gid, grp := range g.groups {
		out = append(out, GroupView{GroupRecord: *grp, Members: len(g.members[gid])})
	}
	g.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (g *Groups) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.groups)
}
