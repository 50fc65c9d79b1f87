package boundary

import (
	"sync"

	"github.com/fuzzball-muck/muckcore/mpi"
	"github.com/fuzzball-muck/muckcore/store"
	"github.com/fuzzball-muck/muckcore/value"
)

// Forcer and Delayer are the narrow seams Notifier needs onto the
// scheduler to also satisfy mpi.Dispatcher's force/delay forms, kept
// separate from sched.Driver's full interp.Scheduler surface so boundary
// does not need every scheduler operation to wire {force:} and {delay:}.
type Forcer interface {
	Force(who value.ObjectID, command string) error
}

type Delayer interface {
	DelayMpi(seconds int, loc, trigger value.ObjectID, mpiText string, flags uint32) error
}

// Sink is the front-end's outbound line surface (spec.md §4.G "notify
// fan-out"): the boundary package's job is to resolve who a message
// reaches, not how bytes leave the process, so the actual write is left
// to whatever implements Sink (the network front-end, out of scope per
// spec.md §1).
type Sink interface {
	Send(descr int, line string)
}

// Notifier implements interp.Dispatcher and mpi.Dispatcher by fanning a
// message out to every descriptor bound to a player (spec.md §4.G),
// honoring the ignore cache. Lines are sent unchanged; no
// OUTPUTPREFIX/OUTPUTSUFFIX wrap is applied here.
type Notifier struct {
	Store *store.Table
	Descs *Table
	Sink  Sink

	Forcer  Forcer
	Delayer Delayer

	mu     sync.RWMutex
	ignore map[value.ObjectID]map[value.ObjectID]bool
}

func NewNotifier(st *store.Table, descs *Table, sink Sink) *Notifier {
	return &Notifier{Store: st, Descs: descs, Sink: sink, ignore: map[value.ObjectID]map[value.ObjectID]bool{}}
}

var _ mpi.Dispatcher = (*Notifier)(nil)

// Tell implements interp.Dispatcher: deliver text to every descriptor
// bound to the target player, unless the target ignores speaker (a
// property-backed reflist the engine caches here to avoid re-walking
// the property tree on every notify).
func (n *Notifier) Tell(speaker, to value.ObjectID, text string) error {
	if speaker != value.NONE && to != speaker && n.Ignores(to, speaker) {
		return nil
	}
	for _, d := range n.Descs.ByPlayer(to) {
		n.Sink.Send(d, text)
	}
	return nil
}

// OTell implements interp.Dispatcher: deliver to every player-controlled
// object in room except exclude, applying the same ignore-cache filter
// as Tell.
func (n *Notifier) OTell(speaker, room, exclude value.ObjectID, text string) error {
	for _, id := range n.Store.Contents(room) {
		if id == exclude {
			continue
		}
		if err := n.Tell(speaker, id, text); err != nil {
			return err
		}
	}
	return nil
}

// Ignores reports whether listener has speaker on their ignore list.
func (n *Notifier) Ignores(listener, speaker value.ObjectID) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.ignore[listener][speaker]
}

// SetIgnore adds or removes speaker from listener's cached ignore set,
// called whenever the IgnoreList reflist property changes so the hot
// notify path never re-reads properties.
func (n *Notifier) SetIgnore(listener, speaker value.ObjectID, ignored bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	set, ok := n.ignore[listener]
	if !ok {
		set = map[value.ObjectID]bool{}
		n.ignore[listener] = set
	}
	if ignored {
		set[speaker] = true
	} else {
		delete(set, speaker)
	}
}

// WarmIgnoreCache seeds the cache from a player's persisted IgnoreList
// reflist property at login, per store.Object's PlayerData.IgnoreList
// (spec.md §3.1 "an ignored-players reflist cache").
func (n *Notifier) WarmIgnoreCache(player value.ObjectID, ignoreList []value.ObjectID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	set := map[value.ObjectID]bool{}
	for _, id := range ignoreList {
		set[id] = true
	}
	n.ignore[player] = set
}

// Force implements mpi.Dispatcher's {force:} form: inject command into
// who's queued input the way a DelayedCommand entry would on a normal
// dequeue, delegated to whatever Forcer cmd/muckd wired (the command
// dispatcher itself, which already knows how to run a line against an
// object).
func (n *Notifier) Force(who value.ObjectID, command string) error {
	if n.Forcer == nil {
		return nil
	}
	return n.Forcer.Force(who, command)
}

// Delay implements mpi.Dispatcher's {delay:} form: re-queue the
// remaining MPI text as a KindMpiDelayed scheduler entry, firing
// seconds from now against the same location/trigger the expansion was
// already running under.
func (n *Notifier) Delay(seconds int, text string, ctx *mpi.Context) error {
	if n.Delayer == nil {
		return nil
	}
	return n.Delayer.DelayMpi(seconds, ctx.Loc, ctx.Trigger, text, uint32(ctx.Perm))
}
