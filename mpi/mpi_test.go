package mpi

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fuzzball-muck/muckcore/store"
	"github.com/fuzzball-muck/muckcore/value"
)

type recordingDispatcher struct {
	told   []string
	otold  []string
	forced []string
	delays []string
}

func (r *recordingDispatcher) Tell(speaker, to value.ObjectID, text string) error {
	r.told = append(r.told, text)
	return nil
}
func (r *recordingDispatcher) OTell(speaker, room, exclude value.ObjectID, text string) error {
	r.otold = append(r.otold, text)
	return nil
}
func (r *recordingDispatcher) Force(who value.ObjectID, command string) error {
	r.forced = append(r.forced, command)
	return nil
}
func (r *recordingDispatcher) Delay(seconds int, text string, ctx *Context) error {
	r.delays = append(r.delays, fmt.Sprintf("%d:%s", seconds, text))
	return nil
}

func newTestContext(t *testing.T, perm Permission, maxCommands int) (*Context, *store.Table, *recordingDispatcher) {
	t.Helper()
	tbl := store.NewTable(func() int64 { return 0 })
	root := tbl.NewRoom(value.ObjectID(0), "Town Square")
	wiz, err := tbl.NewPlayer("Wizard", "hash")
	require.NoError(t, err)
	disp := &recordingDispatcher{}
	return NewContext(tbl, wiz.ID, wiz.ID, root.ID, perm, disp, maxCommands), tbl, disp
}

func TestExpandArithmeticAndStringForms(t *testing.T) {
	ctx, _, _ := newTestContext(t, PermBlessed, 2048)

	out, err := Expand("{add:2,3}", ctx)
	require.NoError(t, err)
	require.Equal(t, "5", out)

	out, err = Expand("{strcat:hello, {toupper:world}}", ctx)
	require.NoError(t, err)
	require.Equal(t, "hello WORLD", out)
}

func TestExpandNestedFormsCompose(t *testing.T) {
	ctx, _, _ := newTestContext(t, PermBlessed, 2048)
	out, err := Expand("{add:{multiply:2,3},{subtract:10,4}}", ctx)
	require.NoError(t, err)
	require.Equal(t, "12", out)
}

func TestIfTakesOnlyTheTakenBranch(t *testing.T) {
	ctx, _, _ := newTestContext(t, PermBlessed, 2048)
	out, err := Expand("{if:1,yes,{add:bad,args}}", ctx)
	require.NoError(t, err)
	require.Equal(t, "yes", out)

	out, err = Expand("{if:0,{add:bad,args},no}", ctx)
	require.NoError(t, err)
	require.Equal(t, "no", out)
}

func TestWithBindsVariableForBody(t *testing.T) {
	ctx, _, _ := newTestContext(t, PermBlessed, 2048)
	out, err := Expand("{with:x,5,{add:{&x},1}}", ctx)
	require.NoError(t, err)
	require.Equal(t, "6", out)
}

func TestForIteratesInclusiveRange(t *testing.T) {
	ctx, _, _ := newTestContext(t, PermBlessed, 2048)
	out, err := Expand("{for:i,1,3,{&i}-}", ctx)
	require.NoError(t, err)
	require.Equal(t, "1-2-3-", out)
}

func TestMpiRecursionBudgetExceeded(t *testing.T) {
	ctx, _, _ := newTestContext(t, PermBlessed, 2048)
	nested := ""
	for i := 0; i < 3000; i++ {
		nested = "{null:" + nested + "}"
	}
	_, err := Expand(nested, ctx)
	require.Error(t, err)
	var budgetErr *ErrBudgetExceeded
	require.ErrorAs(t, err, &budgetErr)
}

func TestWriteFunctionsRequireBlessedPermission(t *testing.T) {
	ctx, _, _ := newTestContext(t, PermPrivate, 2048)
	_, err := Expand("{force:me,look}", ctx)
	require.Error(t, err)
	require.Contains(t, err.Error(), "PermissionDenied")
}

func TestDelayDispatchesSecondsAndUnexpandedText(t *testing.T) {
	ctx, _, disp := newTestContext(t, PermBlessed, 2048)
	_, err := Expand("{delay:30,{add:1,1} later}", ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"30:{add:1,1} later"}, disp.delays)
}

func TestNameOwnerLocIntrospection(t *testing.T) {
	ctx, tbl, _ := newTestContext(t, PermBlessed, 2048)
	thing, err := tbl.NewThing(ctx.Player, "Rock", ctx.Loc)
	require.NoError(t, err)

	out, err := Expand(fmt.Sprintf("{name:#%d}", int32(thing.ID)), ctx)
	require.NoError(t, err)
	require.Equal(t, "Rock", out)

	out, err = Expand(fmt.Sprintf("{owner:#%d}", int32(thing.ID)), ctx)
	require.NoError(t, err)
	require.Equal(t, ctx.Player.String(), out)
}

func TestUnknownFunctionNameFails(t *testing.T) {
	ctx, _, _ := newTestContext(t, PermBlessed, 2048)
	_, err := Expand("{nosuchfunc:a}", ctx)
	require.Error(t, err)
}
