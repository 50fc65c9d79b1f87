package store

import (
	"fmt"
	"strings"

	"github.com/fuzzball-muck/muckcore/internal/invariant"
	"github.com/fuzzball-muck/muckcore/value"
)

// Table is the dense, numerically-indexed object store of spec.md §3.1,
// §4.B: a contiguously-indexed vector of objects, with sibling/contents/
// exits lists threaded through the table via ObjectID links rather than
// owning pointers (spec.md §9 "Cyclic object graphs").
type Table struct {
	objects []*Object // index i holds the object with ID i, or nil for a never-allocated slot
	names   map[string]value.ObjectID // canonicalised player name -> id, for O(1) login/address resolution
	now     func() int64
}

// NewTable builds an empty table. now supplies the clock used for
// CreatedAt/LastModifiedAt/LastUsedAt; tests pass a fixed function.
func NewTable(now func() int64) *Table {
	return &Table{names: map[string]value.ObjectID{}, now: now}
}

// Get returns the object at id, or nil if id is out of range, NONE, or
// a never-allocated slot.
func (t *Table) Get(id value.ObjectID) *Object {
	if id < 0 || int(id) >= len(t.objects) {
		return nil
	}
	return t.objects[id]
}

// Top returns the number of table slots (DBTOP).
func (t *Table) Top() int { return len(t.objects) }

// All iterates every non-garbage object in id order.
func (t *Table) All() []*Object {
	out := make([]*Object, 0, len(t.objects))
	for _, o := range t.objects {
		if o != nil && o.Kind != KindGarbage {
			out = append(out, o)
		}
	}
	return out
}

func canonicalName(name string) string { return strings.ToLower(strings.TrimSpace(name)) }

// alloc returns a slot for a new object: the first garbage slot if one
// exists, otherwise a freshly-appended slot (spec.md §4.B "new_object()
// extends the vector or reuses a garbage slot").
func (t *Table) alloc() value.ObjectID {
	for i, o := range t.objects {
		if o != nil && o.Kind == KindGarbage {
			return value.ObjectID(i)
		}
	}
	id := value.ObjectID(len(t.objects))
	t.objects = append(t.objects, nil)
	return id
}

func (t *Table) place(id value.ObjectID, kind Kind) *Object {
	o := newObject(id, kind, t.now())
	t.objects[id] = o
	return o
}

// NewRoom allocates a room.
func (t *Table) NewRoom(owner value.ObjectID, name string) *Object {
	id := t.alloc()
	o := t.place(id, KindRoom)
	o.Name = name
	o.Owner = owner
	o.Room.Dropto = value.NONE
	return o
}

// NewThing allocates a thing and moves it into location.
func (t *Table) NewThing(owner value.ObjectID, name string, location value.ObjectID) (*Object, error) {
	id := t.alloc()
	o := t.place(id, KindThing)
	o.Name = name
	o.Owner = owner
	o.Thing.Home = owner
	if err := t.MoveObject(id, location); err != nil {
		return nil, err
	}
	return o, nil
}

// NewExit allocates an exit linked into source, with the given
// destinations (1..=50, HOME legal; spec.md §3.1).
func (t *Table) NewExit(owner value.ObjectID, name string, source value.ObjectID, dests []value.ObjectID) (*Object, error) {
	if len(dests) == 0 || len(dests) > maxLinks {
		return nil, fmt.Errorf("exit must have 1..%d destinations, got %d", maxLinks, len(dests))
	}
	id := t.alloc()
	o := t.place(id, KindExit)
	o.Name = name
	o.Owner = owner
	o.Exit.Destinations = append([]value.ObjectID(nil), dests...)
	if err := t.MoveObject(id, source); err != nil {
		return nil, err
	}
	return o, nil
}

// NewPlayer allocates a player and registers its name in the login index.
func (t *Table) NewPlayer(name string, passwordHash string) (*Object, error) {
	key := canonicalName(name)
	if _, exists := t.names[key]; exists {
		return nil, fmt.Errorf("player name %q already registered", name)
	}
	id := t.alloc()
	o := t.place(id, KindPlayer)
	o.Name = name
	o.Owner = id
	o.Player.Home = value.ObjectID(0)
	o.Player.PasswordHash = passwordHash
	t.names[key] = id
	return o, nil
}

// CopyObject duplicates src (a thing or player) as a new object with its
// own deep copy of src's property tree and flags (spec.md §4.D.4 DB write
// "COPYOBJ"/"COPYPLAYER"). A thing copy is owned by owner and placed in
// src's location; a player copy is made by NewPlayer, so it owns itself,
// has no location, and owner is not used. newName and, for players,
// passwordHash set the copy's identity independently of the original.
func (t *Table) CopyObject(src value.ObjectID, owner value.ObjectID, newName string, passwordHash string) (*Object, error) {
	orig := t.Get(src)
	if orig == nil {
		return nil, fmt.Errorf("copy object: no such object %s", src)
	}
	var o *Object
	var err error
	switch orig.Kind {
	case KindPlayer:
		o, err = t.NewPlayer(newName, passwordHash)
	case KindThing:
		o, err = t.NewThing(owner, newName, orig.Location)
	default:
		return nil, fmt.Errorf("copy object: %s is not a thing or player", src)
	}
	if err != nil {
		return nil, err
	}
	o.Flags = orig.Flags
	o.Props = orig.Props.Clone()
	if orig.Kind == KindThing {
		o.Thing.Home = orig.Thing.Home
	}
	return o, nil
}

// NewProgram allocates a program owned by owner.
func (t *Table) NewProgram(owner value.ObjectID, name string) *Object {
	id := t.alloc()
	o := t.place(id, KindProgram)
	o.Name = name
	o.Owner = owner
	o.Program.PublicEntries = map[string]int{}
	o.Program.MCPBindings = map[string]string{}
	return o
}

// LookupPlayer resolves a canonicalised player name (spec.md §4.B "Name
// lookup").
func (t *Table) LookupPlayer(name string) (value.ObjectID, bool) {
	id, ok := t.names[canonicalName(name)]
	return id, ok
}

// MarkDirty sets OBJECT_CHANGED on id (spec.md §4.B "Dirty tracking").
func (t *Table) MarkDirty(id value.ObjectID) {
	o := t.Get(id)
	invariant.NotNil(o, "object")
	o.Flags |= FlagObjectChanged
	o.LastModifiedAt = t.now()
}

// MoveObject unlinks id from its current container's chain (contents or
// exits, selected by id's own Kind) and relinks it at the head of
// destination's matching chain, maintaining spec.md §3.1's invariant
// that location(o) always equals the container whose chain lists o.
func (t *Table) MoveObject(id, destination value.ObjectID) error {
	o := t.Get(id)
	if o == nil {
		return fmt.Errorf("move: no such object %s", id)
	}
	if destination != value.NONE {
		dest := t.Get(destination)
		if dest == nil {
			return fmt.Errorf("move: no such destination %s", destination)
		}
	}
	if o.Location != value.NONE {
		t.unlink(o)
	}
	o.Location = destination
	if destination != value.NONE {
		t.linkInto(o, destination)
	}
	t.MarkDirty(id)
	invariant.Strict(func() { t.checkNoParentLoop(id) })
	return nil
}

func (t *Table) unlink(o *Object) {
	old := t.Get(o.Location)
	if old == nil {
		return
	}
	head := &old.ContentsHead
	if o.Kind == KindExit {
		head = &old.ExitsHead
	}
	if *head == o.ID {
		*head = o.NextSibling
		o.NextSibling = value.NONE
		return
	}
	for cur := t.Get(*head); cur != nil; cur = t.Get(cur.NextSibling) {
		if cur.NextSibling == o.ID {
			cur.NextSibling = o.NextSibling
			o.NextSibling = value.NONE
			return
		}
	}
}

func (t *Table) linkInto(o *Object, destination value.ObjectID) {
	dest := t.Get(destination)
	head := &dest.ContentsHead
	if o.Kind == KindExit {
		head = &dest.ExitsHead
	}
	o.NextSibling = *head
	*head = o.ID
}

// Contents walks the container's contents chain (CONTENTS primitive).
func (t *Table) Contents(id value.ObjectID) []value.ObjectID {
	o := t.Get(id)
	if o == nil {
		return nil
	}
	var out []value.ObjectID
	for cur := t.Get(o.ContentsHead); cur != nil; cur = t.Get(cur.NextSibling) {
		out = append(out, cur.ID)
	}
	return out
}

// Exits walks the container's exits chain (EXITS primitive).
func (t *Table) Exits(id value.ObjectID) []value.ObjectID {
	o := t.Get(id)
	if o == nil {
		return nil
	}
	var out []value.ObjectID
	for cur := t.Get(o.ExitsHead); cur != nil; cur = t.Get(cur.NextSibling) {
		out = append(out, cur.ID)
	}
	return out
}

// Recycle tombstones id: unlinks it from its container, clears its
// payload and property tree, and sets Kind to Garbage so alloc() can
// reuse the slot (spec.md §3.1).
func (t *Table) Recycle(id value.ObjectID) error {
	o := t.Get(id)
	if o == nil {
		return fmt.Errorf("recycle: no such object %s", id)
	}
	if o.Location != value.NONE {
		t.unlink(o)
	}
	if o.Kind == KindPlayer {
		delete(t.names, canonicalName(o.Name))
	}
	o.recycle(t.now())
	return nil
}

// checkNoParentLoop walks id's location chain and panics (StrictMode
// only) if it cycles without reaching NONE or the root room, per
// spec.md §3.1's "No parent loop" invariant.
func (t *Table) checkNoParentLoop(id value.ObjectID) {
	seen := map[value.ObjectID]bool{}
	cur := id
	for {
		o := t.Get(cur)
		if o == nil || o.Location == value.NONE {
			return
		}
		if seen[cur] {
			invariant.Invariant(false, "location chain cycles starting at %s", id)
			return
		}
		seen[cur] = true
		cur = o.Location
	}
}
