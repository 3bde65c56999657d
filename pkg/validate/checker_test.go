package validate

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newChecker() *Checker {
	return New(zerolog.Nop())
}

func TestChecker_StringLen(t *testing.T) {
	c := newChecker()
	obj := map[string]any{"name": "abc", "num": float64(1)}

	assert.NoError(t, c.StringLen(obj, "name", 1, 3))
	assert.NoError(t, c.StringLen(obj, "absent", 0, 3), "ausente sem mínimo deve passar")
	assert.Error(t, c.StringLen(obj, "absent", 1, 3))
	assert.Error(t, c.StringLen(obj, "name", 4, 0))
	assert.Error(t, c.StringLen(obj, "name", 0, 2))
	assert.Error(t, c.StringLen(obj, "num", 0, 0))
}

func TestChecker_ListValidators(t *testing.T) {
	c := newChecker()
	obj := map[string]any{
		"platforms": []any{"PS5", "PS4"},
		"mixed":     []any{"PS5", float64(3)},
		"notList":   "PS5",
	}

	assert.NoError(t, c.ListLen(obj, "platforms", 1, 2))
	assert.Error(t, c.ListLen(obj, "platforms", 3, 0))
	assert.Error(t, c.ListLen(obj, "platforms", 0, 1))
	assert.Error(t, c.ListLen(obj, "notList", 0, 0))
	assert.NoError(t, c.ListLen(obj, "absent", 0, 5))

	assert.NoError(t, c.ListOfStrings(obj, "platforms", 1, 2))
	assert.Error(t, c.ListOfStrings(obj, "mixed", 0, 0))
}

func TestChecker_TypedGetters(t *testing.T) {
	c := newChecker()
	obj := map[string]any{
		"max":    float64(4),
		"frac":   1.5,
		"flag":   true,
		"obj":    map[string]any{"a": "b"},
		"items":  []any{map[string]any{"x": "y"}},
		"broken": []any{"x"},
	}

	n, ok, err := c.Int(obj, "max", 1, 10)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 4, n)

	_, _, err = c.Int(obj, "frac", 0, 10)
	assert.Error(t, err)
	_, _, err = c.Int(obj, "max", 5, 10)
	assert.Error(t, err)

	_, ok, err = c.Int(obj, "absent", 0, 1)
	assert.NoError(t, err)
	assert.False(t, ok)

	b, ok, err := c.Bool(obj, "flag")
	assert.True(t, b && ok)
	assert.NoError(t, err)
	_, _, err = c.Bool(obj, "max")
	assert.Error(t, err)

	m, ok, err := c.Object(obj, "obj")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "b", m["a"])

	items, ok, err := c.Objects(obj, "items")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, items, 1)
	_, _, err = c.Objects(obj, "broken")
	assert.Error(t, err)
}

func TestChecker_OneOfAndPrefix(t *testing.T) {
	c := newChecker()

	assert.NoError(t, c.OneOf("platform", "PS5", "PS5", "PS4"))
	assert.Error(t, c.OneOf("platform", "XBOX", "PS5", "PS4"))
	assert.Error(t, c.OneOf("platform", "", "PS5", "PS4"))

	err := c.Within("member").Within("players[0]").OneOf("platform", "PC", "PS5")
	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "member.players[0].platform", fe.Field)
	assert.Equal(t, 400, fe.Status())
}
