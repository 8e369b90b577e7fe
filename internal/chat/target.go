package chat

import "strings"

type targetKind int

const (
	noTarget targetKind = iota
	peerTarget
	groupTarget
)

// Target is the conversation a chat view displays: nothing, a direct peer,
// or a group. The zero value is None.
type Target struct {
	kind targetKind
	id   string
}

var None = Target{}

// Peer targets a direct conversation. An empty id yields None.
func Peer(userID string) Target {
	return newTarget(peerTarget, userID)
}

// Group targets a group conversation. An empty id yields None.
func Group(groupID string) Target {
	return newTarget(groupTarget, groupID)
}

func newTarget(kind targetKind, id string) Target {
	id = strings.TrimSpace(id)
	if id == "" {
		return None
	}
	return Target{kind: kind, id: id}
}

func (t Target) IsNone() bool  { return t.kind == noTarget }
func (t Target) IsPeer() bool  { return t.kind == peerTarget }
func (t Target) IsGroup() bool { return t.kind == groupTarget }
func (t Target) ID() string    { return t.id }

func (t Target) String() string {
	switch t.kind {
	case peerTarget:
		return "peer:" + t.id
	case groupTarget:
		return "group:" + t.id
	default:
		return "none"
	}
}
