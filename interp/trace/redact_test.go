package trace

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRedactorWithholdsRegisteredValue(t *testing.T) {
	var buf bytes.Buffer
	r := NewRedactor(&buf)
	r.RegisterBlessed("hunter2", "private")

	n, err := r.Write([]byte("password is hunter2 end"))
	require.NoError(t, err)
	require.Equal(t, len("password is hunter2 end"), n)
	require.NoError(t, r.Flush())

	out := buf.String()
	require.NotContains(t, out, "hunter2")
	require.True(t, strings.Contains(out, "<private:"))
}

func TestRedactorCatchesValueSplitAcrossWrites(t *testing.T) {
	var buf bytes.Buffer
	r := NewRedactor(&buf)
	r.RegisterBlessed("topsecretvalue", "blessed")

	_, err := r.Write([]byte("prefix topsec"))
	require.NoError(t, err)
	_, err = r.Write([]byte("retvalue suffix"))
	require.NoError(t, err)
	require.NoError(t, r.Flush())

	require.NotContains(t, buf.String(), "topsecretvalue")
}

func TestFingerprintIsStableWithinARunAndHidesValue(t *testing.T) {
	var buf bytes.Buffer
	r := NewRedactor(&buf)
	a := r.Fingerprint("same-value")
	b := r.Fingerprint("same-value")
	require.Equal(t, a, b)
	require.NotContains(t, a, "same-value")
}

func TestUnregisteredTextPassesThroughUnchanged(t *testing.T) {
	var buf bytes.Buffer
	r := NewRedactor(&buf)
	_, err := r.Write([]byte("nothing secret here"))
	require.NoError(t, err)
	require.NoError(t, r.Flush())
	require.Equal(t, "nothing secret here", buf.String())
}
