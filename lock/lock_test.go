package lock_test

import (
	"testing"

	"github.com/fuzzball-muck/muckcore/lock"
	"github.com/fuzzball-muck/muckcore/value"
	"github.com/stretchr/testify/require"
)

type fakeResolver struct {
	players    map[string]value.ObjectID
	registered map[string]value.ObjectID
	me, here   value.ObjectID
}

func (f fakeResolver) ResolvePlayer(name string) (value.ObjectID, bool) {
	id, ok := f.players[name]
	return id, ok
}
func (f fakeResolver) ResolveRegistered(name string) (value.ObjectID, bool) {
	id, ok := f.registered[name]
	return id, ok
}
func (f fakeResolver) Me() value.ObjectID   { return f.me }
func (f fakeResolver) Here() value.ObjectID { return f.here }

type fakeCandidate struct {
	id       value.ObjectID
	props    map[string]string
	in       map[value.ObjectID]bool
	reflists map[value.ObjectID]bool
}

func (c fakeCandidate) ID() value.ObjectID                  { return c.id }
func (c fakeCandidate) IsContainedBy(o value.ObjectID) bool { return c.in[o] }
func (c fakeCandidate) MatchesReflist(o value.ObjectID) bool { return c.reflists[o] }
func (c fakeCandidate) PropString(path string, _ bool) (string, bool) {
	v, ok := c.props[path]
	return v, ok
}

func TestParseAndEvaluateColorLock(t *testing.T) {
	r := fakeResolver{}
	expr, err := lock.Parse("color:red & !color:blue", r)
	require.NoError(t, err)

	t1 := fakeCandidate{id: 10, props: map[string]string{"color": "red"}}
	require.True(t, lock.Evaluate(expr, t1, lock.NoEnvCheck))

	t2 := fakeCandidate{id: 11, props: map[string]string{"color": "blue"}}
	require.False(t, lock.Evaluate(expr, t2, lock.NoEnvCheck))
}

func TestParsePrecedenceNotAndOr(t *testing.T) {
	r := fakeResolver{}
	expr, err := lock.Parse("a:1 | a:2 & !a:3", r)
	require.NoError(t, err)

	// a:2 & !a:3 should bind tighter than the |, so a candidate matching
	// only a:2 (not a:1, not a:3) must pass.
	c := fakeCandidate{id: 1, props: map[string]string{"a": "2"}}
	require.True(t, lock.Evaluate(expr, c, lock.NoEnvCheck))
}

func TestParseObjectRefAndRoundTrip(t *testing.T) {
	r := fakeResolver{players: map[string]value.ObjectID{"wiz": 5}, me: 1, here: 2}
	expr, err := lock.Parse("#3 | *wiz | me | here", r)
	require.NoError(t, err)

	serialized := lock.Serialize(expr)
	again, err := lock.Parse(serialized, fakeResolver{players: map[string]value.ObjectID{}, me: 1, here: 2})
	require.NoError(t, err)
	require.Equal(t, serialized, lock.Serialize(again))
}

func TestEmptyLockIsAlwaysTrue(t *testing.T) {
	expr, err := lock.Parse("", fakeResolver{})
	require.NoError(t, err)
	require.True(t, lock.Evaluate(expr, fakeCandidate{id: 1}, lock.NoEnvCheck))
}

func TestParseErrorOnUnknownLeaf(t *testing.T) {
	_, err := lock.Parse("justaname", fakeResolver{})
	require.Error(t, err)
	var perr *lock.ParseError
	require.ErrorAs(t, err, &perr)
}

func TestEvaluateObjectConstViaContainmentAndReflist(t *testing.T) {
	r := fakeResolver{}
	expr, err := lock.Parse("#7", r)
	require.NoError(t, err)

	contained := fakeCandidate{id: 1, in: map[value.ObjectID]bool{7: true}}
	require.True(t, lock.Evaluate(expr, contained, lock.NoEnvCheck))

	owned := fakeCandidate{id: 2, reflists: map[value.ObjectID]bool{7: true}}
	require.True(t, lock.Evaluate(expr, owned, lock.NoEnvCheck))

	unrelated := fakeCandidate{id: 3}
	require.False(t, lock.Evaluate(expr, unrelated, lock.NoEnvCheck))
}
