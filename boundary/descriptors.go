// Package boundary implements spec.md §4.G's boundary surface: the seam
// between the core engine and the external collaborators spec.md §6
// names but leaves out of scope (the line-oriented front-end, MCP
// out-of-band framing, command-verb dispatch). Grounded on the teacher's
// runtime/planner (fuzzy "did you mean" matching) and core/types
// (golang.org/x/mod/semver validation), adapted here to MUCK descriptor
// and package-negotiation semantics rather than decorator planning.
package boundary

import (
	"sync"

	"github.com/fuzzball-muck/muckcore/value"
)

// Descriptor is one connected front-end's connection metadata
// (`p_connects.h`'s per-descriptor record, restored per SPEC_FULL.md's
// SUPPLEMENTED FEATURES): the primitive table names DESCRTIME/
// DESCRHOST/DESCRUSER/DESCRIDLE/.../DESCRBUFSIZE but not the table they
// read, so this is that table.
type Descriptor struct {
	Num          int
	Player       value.ObjectID
	Host         string
	ConnectedAt  int64
	LastActivity int64
	Secure       bool
	BufSize      int
}

// Table is the live registry of connected descriptors, one instance per
// running server. Safe for concurrent use since the front-end connection
// loop and interpreter primitives both touch it.
type Table struct {
	mu    sync.RWMutex
	byNum map[int]*Descriptor
	order []int
}

func NewTable() *Table {
	return &Table{byNum: map[int]*Descriptor{}}
}

// Connect registers a new descriptor at connect time, before login.
func (t *Table) Connect(num int, host string, now int64) *Descriptor {
	t.mu.Lock()
	defer t.mu.Unlock()
	d := &Descriptor{Num: num, Player: value.NONE, Host: host, ConnectedAt: now, LastActivity: now, BufSize: 4096}
	t.byNum[num] = d
	t.order = append(t.order, num)
	return d
}

// Disconnect removes a descriptor, backing DESCRBOOT/CONBOOT.
func (t *Table) Disconnect(num int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.byNum, num)
	for i, n := range t.order {
		if n == num {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

// SetUser binds a descriptor to a player id after successful login.
func (t *Table) SetUser(num int, player value.ObjectID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	d, ok := t.byNum[num]
	if !ok {
		return false
	}
	d.Player = player
	return true
}

// Touch updates LastActivity, backing DESCRIDLE/CONIDLE.
func (t *Table) Touch(num int, now int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if d, ok := t.byNum[num]; ok {
		d.LastActivity = now
	}
}

// Get returns the descriptor record, or nil if not connected.
func (t *Table) Get(num int) *Descriptor {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.byNum[num]
}

// All returns every live descriptor number in connection order, backing
// DESCRIPTORS/DESCR_ARRAY/FIRSTDESCR/NEXTDESCR/LASTDESCR.
func (t *Table) All() []int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]int(nil), t.order...)
}

// ByPlayer returns every descriptor currently bound to player, backing
// DESCRCON/ONLINE_ARRAY.
func (t *Table) ByPlayer(player value.ObjectID) []int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []int
	for _, n := range t.order {
		if d := t.byNum[n]; d != nil && d.Player == player {
			out = append(out, n)
		}
	}
	return out
}

// Count returns the number of live descriptors, backing CONCOUNT.
func (t *Table) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.order)
}

// LeastIdle and MostIdle return the descriptor with the smallest/largest
// (now - LastActivity), backing DESCRLEASTIDLE/DESCRMOSTIDLE. ok is false
// when no descriptor is connected.
func (t *Table) LeastIdle(now int64) (num int, ok bool) { return t.extremeIdle(now, true) }
func (t *Table) MostIdle(now int64) (num int, ok bool)  { return t.extremeIdle(now, false) }

func (t *Table) extremeIdle(now int64, least bool) (int, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.order) == 0 {
		return 0, false
	}
	best := t.order[0]
	bestIdle := now - t.byNum[best].LastActivity
	for _, n := range t.order[1:] {
		idle := now - t.byNum[n].LastActivity
		if (least && idle < bestIdle) || (!least && idle > bestIdle) {
			best, bestIdle = n, idle
		}
	}
	return best, true
}
