package document

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestDecode_PreservesKeyOrder(t *testing.T) {
	data := []byte("zebra: 1\nalpha: 2\nmango: 3\n")

	doc, err := Decode(data)
	require.NoError(t, err)
	require.Equal(t, []string{"zebra", "alpha", "mango"}, doc.Keys())
}

func TestDecode_Empty(t *testing.T) {
	doc, err := Decode(nil)
	require.NoError(t, err)
	require.Equal(t, 0, doc.Len())
}

func TestDecode_ScalarRoot(t *testing.T) {
	_, err := Decode([]byte("just a string"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "expected a mapping")
}

func TestDecode_Malformed(t *testing.T) {
	_, err := Decode([]byte("key: [unclosed"))
	require.Error(t, err)
}

func TestDecode_ScalarTypes(t *testing.T) {
	data := []byte(`name: base
count: 42
ratio: 0.25
active: true
missing: null
quoted: "123"
`)
	doc, err := Decode(data)
	require.NoError(t, err)

	name, _ := doc.Get("name")
	require.Equal(t, "base", name)
	count, _ := doc.Get("count")
	require.Equal(t, 42, count)
	ratio, _ := doc.Get("ratio")
	require.Equal(t, 0.25, ratio)
	active, _ := doc.Get("active")
	require.Equal(t, true, active)
	missing, ok := doc.Get("missing")
	require.True(t, ok)
	require.Nil(t, missing)
	quoted, _ := doc.Get("quoted")
	require.Equal(t, "123", quoted)
}

func TestRoundTrip_Nested(t *testing.T) {
	doc := FromPairs(
		"root", "/data/models/base",
		"outputs", FromPairs(
			"outdir", "plots",
			"formats", []any{"png", "pdf"},
		),
		"steps", []any{1, 2, 3},
	)

	data, err := Encode(doc)
	require.NoError(t, err)

	back, err := Decode(data)
	require.NoError(t, err)
	require.True(t, doc.Equal(back), "round trip changed document:\n%s", data)
}

func TestRoundTrip_TrickyScalars(t *testing.T) {
	doc := FromPairs(
		"looks_bool", "true",
		"looks_int", "007",
		"looks_null", "null",
		"empty", "",
		"colon", "a: b",
		"multiline", "first\nsecond",
		"unicode", "schneeßturm",
	)

	data, err := Encode(doc)
	require.NoError(t, err)

	back, err := Decode(data)
	require.NoError(t, err)
	require.True(t, doc.Equal(back), "round trip changed document:\n%s", data)
}

// drawDocument generates a random document with nested mappings and
// sequences up to the given depth.
func drawDocument(rt *rapid.T, depth int) *Document {
	doc := New()
	n := rapid.IntRange(0, 6).Draw(rt, "keys")
	for i := 0; i < n; i++ {
		key := rapid.StringMatching(`[a-z][a-z0-9_]{0,9}`).Draw(rt, "key")
		doc.Set(key, drawValue(rt, depth))
	}
	return doc
}

func drawValue(rt *rapid.T, depth int) any {
	max := 4
	if depth <= 0 {
		max = 2 // scalars only at the bottom
	}
	switch rapid.IntRange(0, max).Draw(rt, "kind") {
	case 0:
		return rapid.StringMatching(`[ -~]{0,20}`).Draw(rt, "str")
	case 1:
		return rapid.Int().Draw(rt, "int")
	case 2:
		if rapid.Bool().Draw(rt, "isBool") {
			return rapid.Bool().Draw(rt, "bool")
		}
		return nil
	case 3:
		n := rapid.IntRange(0, 4).Draw(rt, "seqLen")
		seq := make([]any, 0, n)
		for i := 0; i < n; i++ {
			seq = append(seq, drawValue(rt, depth-1))
		}
		return seq
	default:
		return drawDocument(rt, depth-1)
	}
}

func TestRoundTrip_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		doc := drawDocument(rt, 3)

		data, err := Encode(doc)
		require.NoError(rt, err)

		back, err := Decode(data)
		require.NoError(rt, err)
		require.True(rt, doc.Equal(back), "round trip changed document:\n%s", data)
	})
}

func TestRoundTrip_Floats(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		f := rapid.Float64Range(-math.MaxFloat64, math.MaxFloat64).Draw(rt, "f")
		doc := FromPairs("ratio", f)

		data, err := Encode(doc)
		require.NoError(rt, err)

		back, err := Decode(data)
		require.NoError(rt, err)
		require.True(rt, doc.Equal(back), "float %v did not survive: %s", f, data)
	})
}
