package promptgen

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"additive-prompt-api/internal/application/promptgen/catalog"
)

func mustVariant(t *testing.T, id string) *catalog.Variant {
	t.Helper()
	v, ok := catalog.MustLoad().Get(id)
	require.True(t, ok)
	return v
}

func TestResolveSelection_Defaults(t *testing.T) {
	v := mustVariant(t, "general")

	sel, err := ResolveSelection(v, nil)
	require.NoError(t, err)

	assert.Len(t, sel, len(v.Attributes))
	for _, a := range v.Attributes {
		assert.Equal(t, a.Options[0], sel[a.Name], a.Name)
		assert.NotEmpty(t, sel[a.Name])
	}
}

func TestResolveSelection_Values(t *testing.T) {
	v := mustVariant(t, "general")

	sel, err := ResolveSelection(v, map[string]string{
		"mood":      "  dramatic ",
		"brand":     "Muji",
		"lighting":  "",
		"framework": "Architectural photograph",
	})
	require.NoError(t, err)

	assert.Equal(t, "Dramatic", sel["mood"])
	assert.Equal(t, "Muji", sel["brand"])
	assert.Equal(t, "Natural light", sel["lighting"])
	assert.Equal(t, "Architectural photograph", sel["framework"])
}

func TestResolveSelection_FixedAttribute(t *testing.T) {
	v := mustVariant(t, "film")

	sel, err := ResolveSelection(v, map[string]string{"framework": "film photography photograph"})
	require.NoError(t, err)
	assert.Equal(t, "Film photography photograph", sel["framework"])

	_, err = ResolveSelection(v, map[string]string{"framework": "Portrait photograph"})
	var se *SelectionError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "framework", se.Attribute)
}

func TestResolveSelection_RejectsCustomLiteral(t *testing.T) {
	v := mustVariant(t, "film")

	_, err := ResolveSelection(v, map[string]string{"lens": "custom"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidSelection))
}

func TestResolveSelection_PresetOnlyAttribute(t *testing.T) {
	v, err := catalog.Parse([]byte(`id: strict
rows: {min: 1, max: 3, default: 2}
attributes:
  - name: tone
    options: [Warm, Cool]
stages:
  - name: lines
    prompt: lines_v1
    output: lines
    bindings: {table: input.tone, framework: input.tone, aspect_ratio: input.tone}
`))
	require.NoError(t, err)

	_, err = ResolveSelection(v, map[string]string{"tone": "Neon"})
	assert.True(t, errors.Is(err, ErrInvalidSelection))

	sel, err := ResolveSelection(v, map[string]string{"tone": "cool"})
	require.NoError(t, err)
	assert.Equal(t, "Cool", sel["tone"])
}

func TestResolveRowCount(t *testing.T) {
	v := mustVariant(t, "general")

	n, err := ResolveRowCount(v, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	for _, ok := range []int{1, 7, 10} {
		n, err := ResolveRowCount(v, intp(ok))
		require.NoError(t, err)
		assert.Equal(t, ok, n)
	}
	for _, bad := range []int{-1, 0, 11} {
		_, err := ResolveRowCount(v, intp(bad))
		assert.True(t, errors.Is(err, ErrInvalidRowCount), bad)
	}
}

func TestSelection_Variables(t *testing.T) {
	vars := Selection{"mood": "Calm"}.Variables(4)
	assert.Equal(t, map[string]string{"mood": "Calm", "row_numbers": "4"}, vars)
}
