package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnumSetAddAndLookup(t *testing.T) {
	e := NewEnumSet(3)
	i, added := e.Add("NN")
	require.True(t, added)
	require.Equal(t, 0, i)
	j, _ := e.Add("VB")
	require.Equal(t, 1, j)

	again, added := e.Add("NN")
	require.False(t, added)
	require.Equal(t, 0, again)

	idx, ok := e.IndexOf("VB")
	require.True(t, ok)
	require.Equal(t, 1, idx)
	_, ok = e.IndexOf("JJ")
	require.False(t, ok)

	require.Equal(t, "VB", e.ValueOf(1))
	require.Equal(t, 2, e.Len())
	require.Equal(t, []string{"NN", "VB"}, e.Values())
}

func TestEnumSetFrozen(t *testing.T) {
	e := NewFrozenEnumSet([]string{"A", "B", "A"})
	require.Equal(t, 2, e.Len())
	require.True(t, e.Frozen)
	require.Panics(t, func() { e.Add("C") })
	require.Panics(t, func() { e.ValueOf(2) })
	require.Panics(t, func() { e.ValueOf(-1) })
}

func TestEnumSetRebuildIndex(t *testing.T) {
	e := NewEnumSet(2)
	e.Add("x")
	e.Add("y")
	e.Index = nil
	e.RebuildIndex()
	require.Equal(t, []string{"x", "y"}, e.Index)
}

func TestAffixes(t *testing.T) {
	require.Equal(t, "eff", Prefix("effect", 3))
	require.Equal(t, "ect", Suffix("effect", 3))
	require.Equal(t, "ab", Prefix("ab", 6))
	require.Equal(t, "ab", Suffix("ab", 6))
	require.Equal(t, "日本", Prefix("日本語", 2))
}

func TestSignature(t *testing.T) {
	sig := Signature("Ab1")
	require.Len(t, sig, len(Testers))
	require.Equal(t, "tttfft", sig)
	require.Equal(t, "ffftff", Signature("."))
}
