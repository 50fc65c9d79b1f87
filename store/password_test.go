package store

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fuzzball-muck/muckcore/value"
)

func TestAuthenticateBcryptRoundTrip(t *testing.T) {
	tbl := NewTable(fixedClock(0))
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	wiz, err := tbl.NewPlayer("Wizard", hash)
	require.NoError(t, err)

	ok, err := tbl.Authenticate(wiz.ID, "correct horse battery staple")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = tbl.Authenticate(wiz.ID, "wrong password")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestAuthenticateUpgradesLegacySHA1OnSuccess(t *testing.T) {
	tbl := NewTable(fixedClock(0))
	wiz, err := tbl.NewPlayer("Wizard", legacySHA1("oldpass"))
	require.NoError(t, err)
	wiz.Player.LegacyHash = true

	ok, err := tbl.Authenticate(wiz.ID, "oldpass")
	require.NoError(t, err)
	require.True(t, ok)
	require.False(t, tbl.Get(wiz.ID).Player.LegacyHash, "successful legacy login must clear LegacyHash")
	require.True(t, tbl.Get(wiz.ID).Flags.Has(FlagObjectChanged))

	// The upgraded hash must itself verify, and no longer as legacy.
	require.True(t, CheckPassword(tbl.Get(wiz.ID).Player.PasswordHash, false, "oldpass"))
}

func TestAuthenticateRejectsNonPlayer(t *testing.T) {
	tbl := NewTable(fixedClock(0))
	root := tbl.NewRoom(value.ObjectID(0), "Town Square")
	_, err := tbl.Authenticate(root.ID, "anything")
	require.Error(t, err)
}
