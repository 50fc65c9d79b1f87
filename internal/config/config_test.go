package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetUnknownParameterFails(t *testing.T) {
	r := DefaultRegistry()
	err := r.Set("does_not_exist", "1", 4)
	require.ErrorIs(t, err, ErrUnknownParameter)
}

func TestSetBadSyntaxFails(t *testing.T) {
	r := DefaultRegistry()
	err := r.Set("max_instr_count", "not-a-number", 4)
	require.ErrorIs(t, err, ErrBadSyntax)
}

func TestSetInsufficientTrustFails(t *testing.T) {
	r := DefaultRegistry()
	err := r.Set("registration", "yes", 1)
	require.ErrorIs(t, err, ErrPermissionDenied)
}

func TestSetAndGetRoundTrip(t *testing.T) {
	r := DefaultRegistry()
	require.NoError(t, r.Set("max_instr_count", "500", 4))
	v, err := r.Get("max_instr_count", 0)
	require.NoError(t, err)
	require.EqualValues(t, 500, v.Int)
}

func TestParseTimeSpan(t *testing.T) {
	span, err := ParseTimeSpan("1h30m")
	require.NoError(t, err)
	require.EqualValues(t, 5400, span.Seconds)

	_, err = ParseTimeSpan("garbage")
	require.ErrorIs(t, err, ErrBadSyntax)
}

func TestLoadFileAppliesEntries(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "parmfile.cfg")
	require.NoError(t, os.WriteFile(p, []byte("# comment\nmax_instr_count=777\ndump_interval=2h\n"), 0o644))

	r := DefaultRegistry()
	require.NoError(t, r.LoadFile(p))

	v, err := r.Get("max_instr_count", 4)
	require.NoError(t, err)
	require.EqualValues(t, 777, v.Int)
}

func TestLoadSeedValidatesAgainstSchema(t *testing.T) {
	r := DefaultRegistry()
	err := r.LoadSeed([]byte(`{"max_instr_count": "oops"}`), 4)
	require.Error(t, err)

	err = r.LoadSeed([]byte(`{"max_instr_count": 999, "allow_home": false}`), 4)
	require.NoError(t, err)

	v, _ := r.Get("max_instr_count", 4)
	require.EqualValues(t, 999, v.Int)
}

func TestLoadSeedRejectsUnknownField(t *testing.T) {
	r := DefaultRegistry()
	err := r.LoadSeed([]byte(`{"nope_not_real": 1}`), 4)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrBadValue))
}
