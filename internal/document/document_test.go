package document

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSet_KeepsPositionOnOverwrite(t *testing.T) {
	doc := New()
	doc.Set("a", 1)
	doc.Set("b", 2)
	doc.Set("a", 3)

	require.Equal(t, []string{"a", "b"}, doc.Keys())
	v, _ := doc.Get("a")
	require.Equal(t, 3, v)
}

func TestDelete(t *testing.T) {
	doc := FromPairs("a", 1, "b", 2, "c", 3)
	doc.Delete("b")

	require.Equal(t, []string{"a", "c"}, doc.Keys())
	require.False(t, doc.Has("b"))

	doc.Delete("missing") // no-op
	require.Equal(t, 2, doc.Len())
}

func TestTypedAccessors(t *testing.T) {
	doc := FromPairs(
		"name", "exp1",
		"meta", FromPairs("project", "base"),
		"steps", []any{1, 2},
	)

	s, ok := doc.String("name")
	require.True(t, ok)
	require.Equal(t, "exp1", s)

	_, ok = doc.String("meta")
	require.False(t, ok)

	m, ok := doc.Mapping("meta")
	require.True(t, ok)
	p, _ := m.String("project")
	require.Equal(t, "base", p)

	seq, ok := doc.Sequence("steps")
	require.True(t, ok)
	require.Len(t, seq, 2)
}

func TestClone_IsDeep(t *testing.T) {
	inner := FromPairs("outdir", "out")
	doc := FromPairs("meta", inner, "tags", []any{"a"})

	clone := doc.Clone()
	require.True(t, doc.Equal(clone))

	inner.Set("outdir", "changed")
	cloned, _ := clone.Mapping("meta")
	v, _ := cloned.String("outdir")
	require.Equal(t, "out", v, "clone should not alias nested mappings")
}

func TestEqual_OrderSensitive(t *testing.T) {
	a := FromPairs("x", 1, "y", 2)
	b := FromPairs("y", 2, "x", 1)
	require.False(t, a.Equal(b))

	c := FromPairs("x", 1, "y", 2)
	require.True(t, a.Equal(c))
}
