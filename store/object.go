package store

import "github.com/fuzzball-muck/muckcore/value"

const maxLinks = 50 // spec.md §3.1 "destinations: Vec<ObjectId> (1..=MAX_LINKS, 50)"

// RoomData is the Room kind-specific payload.
type RoomData struct {
	Dropto value.ObjectID
}

// ThingData is the Thing kind-specific payload.
type ThingData struct {
	Home value.ObjectID
}

// ExitData is the Exit kind-specific payload.
type ExitData struct {
	Destinations []value.ObjectID
}

// PlayerData is the Player kind-specific payload.
type PlayerData struct {
	Home                 value.ObjectID
	CurrentEditedProgram  value.ObjectID
	InEditor              bool
	InRead                bool
	PasswordHash          string
	LegacyHash            bool // true until the bcrypt upgrade on next login
	Descriptors           []int
	IgnoreList            []value.ObjectID
}

// ProgramData is the Program kind-specific payload. Code is an opaque
// blob produced and consumed entirely by the interp package; store never
// interprets it, so store has no dependency on the bytecode format.
type ProgramData struct {
	Code            []byte
	SourceLines     []string
	PublicEntries   map[string]int
	MCPBindings     map[string]string
	InstanceCount   int32
	ProfileRuns     int64
	ProfileNanos    int64
}

// Object is one record in the store's object table (spec.md §3.1).
type Object struct {
	ID   value.ObjectID
	Kind Kind

	Name     string
	Owner    value.ObjectID
	Location value.ObjectID

	ContentsHead value.ObjectID
	ExitsHead    value.ObjectID
	NextSibling  value.ObjectID

	Flags Flags

	CreatedAt      int64
	LastModifiedAt int64
	LastUsedAt     int64
	UseCount       int64

	Props *PropTree

	Room    RoomData
	Thing   ThingData
	Exit    ExitData
	Player  PlayerData
	Program ProgramData
}

func newObject(id value.ObjectID, kind Kind, now int64) *Object {
	return &Object{
		ID:             id,
		Kind:           kind,
		Location:       value.NONE,
		ContentsHead:   value.NONE,
		ExitsHead:      value.NONE,
		NextSibling:    value.NONE,
		CreatedAt:      now,
		LastModifiedAt: now,
		LastUsedAt:     now,
		Props:          NewPropTree(),
	}
}

// recycle clears the record in place and sets Kind to Garbage, per
// spec.md §3.1 "recycling zeroes the payload and sets kind Garbage".
// Only the ID is kept: the record, Props included, is replaced by a
// fresh empty one. alloc() later hands the slot index back out, and
// place() installs a newly allocated Object there.
func (o *Object) recycle(now int64) {
	id := o.ID
	*o = *newObject(id, KindGarbage, now)
}
