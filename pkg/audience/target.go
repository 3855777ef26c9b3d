package audience

import (
	"fmt"
	"slices"
	"strings"
)

// Kind tags the Target variant.
type Kind string

const (
	KindUser  Kind = "user"
	KindRole  Kind = "role"
	KindGroup Kind = "group"
	KindList  Kind = "list"
	KindUnion Kind = "union"
)

// Target describes who a notification is for. Build it with User, Role,
// Group, List or Union.
type Target struct {
	kind  Kind
	value string   // user id, role or group name
	ids   []string // KindList
	parts []Target // KindUnion
}

func User(id string) Target { return Target{kind: KindUser, value: id} }
func Role(name string) Target { return Target{kind: KindRole, value: name} }
func Group(name string) Target { return Target{kind: KindGroup, value: name} }
func List(ids ...string) Target { return Target{kind: KindList, ids: slices.Clone(ids)} }
func Union(t ...Target) Target { return Target{kind: KindUnion, parts: slices.Clone(t)} }
func (t Target) Kind() Kind { return t.kind }
func (t Target) Value() string { return t.value }
func (t Target) IDs() []string { return slices.Clone(t.ids) }
func (t Target) Parts() []Target { return slices.Clone(t.parts) }

func (t Target) String() string {
	switch t.kind {
	case KindList:
		return fmt.Sprintf("list(%d)", len(t.ids))
	case KindUnion:
		parts := make([]string, len(t.parts))
		for i, p := range t.parts {
			parts[i] = p.String()
		}
		return "union(" + strings.Join(parts, ",") + ")"
	default:
		return string(t.kind) + ":" + t.value
	}
}
