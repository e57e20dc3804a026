package prompt

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplate_Fill(t *testing.T) {
	tpl, err := Parse("t", "Prepend {framework} and append \" —ar {aspect_ratio}\" to {framework}.")
	require.NoError(t, err)
	assert.Equal(t, []string{"aspect_ratio", "framework"}, tpl.Placeholders())
	assert.True(t, tpl.Has("framework"))
	assert.False(t, tpl.Has("table"))

	out, err := tpl.Fill(context.Background(), map[string]string{
		"framework":    "Landscape photograph",
		"aspect_ratio": "16:9",
		"unused":       "x",
	})
	require.NoError(t, err)
	assert.Equal(t, "Prepend Landscape photograph and append \" —ar 16:9\" to Landscape photograph.", out)
}

func TestTemplate_LiteralBraces(t *testing.T) {
	tpl, err := Parse("t", `{{"row": {n}}}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"n"}, tpl.Placeholders())

	out, err := tpl.Fill(context.Background(), map[string]string{"n": "3"})
	require.NoError(t, err)
	assert.Equal(t, `{"row": 3}`, out)
}

func TestTemplate_ValuesAreNotReinterpreted(t *testing.T) {
	tpl := MustParse("t", "A {x} B")
	out, err := tpl.Fill(context.Background(), map[string]string{"x": "{y} }}"})
	require.NoError(t, err)
	assert.Equal(t, "A {y} }} B", out)
}

func TestTemplate_MissingVariables(t *testing.T) {
	tpl := MustParse("lines", "{table} / {framework} / {aspect_ratio}")

	out, err := tpl.Fill(context.Background(), map[string]string{"table": "T"})
	assert.Empty(t, out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingVariable))

	var mv *MissingVariableError
	require.ErrorAs(t, err, &mv)
	assert.Equal(t, PromptID("lines"), mv.Template)
	assert.Equal(t, []string{"aspect_ratio", "framework"}, mv.Names)
}

func TestTemplate_FormatReturnsUserMessage(t *testing.T) {
	tpl := MustParse("t", "rows {row_numbers} of {framework}")
	msgs, err := tpl.Format(context.Background(), map[string]string{"row_numbers": "3", "framework": "Landscape"})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, schema.User, msgs[0].Role)
	assert.Equal(t, "rows 3 of Landscape", msgs[0].Content)
}

// 对全部内嵌模板：完整取值时不残留占位符；逐个缺失时报 ErrMissingVariable 且无输出
func TestTemplate_EmbeddedFillProperties(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	for _, id := range []PromptID{PromptGeneralTableV1, PromptFilmTableV1, PromptLinesV1} {
		tpl, err := r.Template(id)
		require.NoError(t, err)

		full := make(map[string]string, len(tpl.Placeholders()))
		for _, name := range tpl.Placeholders() {
			full[name] = "value of " + name
		}

		t.Run(string(id)+"/complete", func(t *testing.T) {
			out, err := tpl.Fill(ctx, full)
			require.NoError(t, err)
			for _, name := range tpl.Placeholders() {
				assert.NotContains(t, out, "{"+name+"}")
				assert.Contains(t, out, "value of "+name)
			}
		})

		for _, drop := range tpl.Placeholders() {
			t.Run(string(id)+"/without_"+drop, func(t *testing.T) {
				vars := make(map[string]string, len(full))
				for k, v := range full {
					if k != drop {
						vars[k] = v
					}
				}
				out, err := tpl.Fill(ctx, vars)
				assert.Empty(t, out)
				require.ErrorIs(t, err, ErrMissingVariable)

				var mv *MissingVariableError
				require.ErrorAs(t, err, &mv)
				assert.Equal(t, []string{drop}, mv.Names)
			})
		}
	}
}

func TestTemplate_ValuesWithBracesFillEmbeddedTemplate(t *testing.T) {
	tpl, err := NewRegistry().Template(PromptLinesV1)
	require.NoError(t, err)

	out, err := tpl.Fill(context.Background(), map[string]string{
		"table":        "| {a} | b}} |",
		"framework":    "Landscape photograph",
		"aspect_ratio": "16:9",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "| {a} | b}} |")
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"unclosed", "hello {name"},
		{"unmatched close", "hello }"},
		{"empty name", "a {} b"},
		{"space in name", "a {first name} b"},
		{"leading digit", "a {1st} b"},
		{"attribute access", "a {x.y} b"},
		{"format spec", "a {x:>10} b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("bad", tt.text)
			assert.Error(t, err)
		})
	}
}

func TestRegistry_EmbeddedTemplates(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		id   PromptID
		want []string
	}{
		{PromptLinesV1, []string{"aspect_ratio", "framework", "table"}},
		{PromptGeneralTableV1, []string{"architecture", "brand", "camera_angle", "color_palette", "composition", "detail", "focal_point", "framework", "lighting", "location", "mood", "room_type", "row_numbers", "style", "textures", "time_of_day"}},
		{PromptFilmTableV1, []string{"ambiance", "clothing_color", "clothing_type", "color_pallet", "film_type", "fine_tuning", "framework", "lens", "lighting", "location", "row_numbers", "shot_type", "styling", "subject"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.id), func(t *testing.T) {
			tpl, err := r.Template(tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.want, tpl.Placeholders())

			again, err := r.Template(tt.id)
			require.NoError(t, err)
			assert.Same(t, tpl, again)
		})
	}

	_, err := r.Template("nope_v1")
	assert.Error(t, err)
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	custom := MustParse(PromptLinesV1, "only {table}")
	r.Register(custom)

	tpl, err := r.Template(PromptLinesV1)
	require.NoError(t, err)
	assert.Same(t, custom, tpl)
}
