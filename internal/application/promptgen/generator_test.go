package promptgen

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"additive-prompt-api/internal/application/promptgen/catalog"
	"additive-prompt-api/internal/workflow/chain"
	wfnode "additive-prompt-api/internal/workflow/node"
	"additive-prompt-api/internal/workflow/port/porttest"
	workflowprompt "additive-prompt-api/internal/workflow/prompt"
)

func newTestGenerator(t *testing.T, f *porttest.Factory) *Generator {
	t.Helper()
	g, err := NewGenerator(catalog.MustLoad(), workflowprompt.NewRegistry(), f, "openai")
	require.NoError(t, err)
	return g
}

func intp(v int) *int { return &v }

func TestGenerate_TableFeedsLines(t *testing.T) {
	m := porttest.NewScriptedModel(
		porttest.Reply{Content: "TABLE_X"},
		porttest.Reply{Content: "LINES_Y"},
	)
	f := &porttest.Factory{Model: m}
	g := newTestGenerator(t, f)

	out, err := g.Generate(context.Background(), &Request{
		Variant: "general",
		Attributes: map[string]string{
			"framework":    "Landscape photograph",
			"aspect_ratio": "16:9",
		},
		Rows:   intp(3),
		APIKey: "sk-request",
	})
	require.NoError(t, err)

	assert.Equal(t, StateGenerated, out.State)
	assert.Equal(t, "LINES_Y", out.Lines())
	assert.Equal(t, "TABLE_X", out.Table())
	assert.NotEmpty(t, out.RunID)
	assert.Equal(t, "Rule of thirds", out.Selection["composition"])

	require.Len(t, out.Result.Stages, 2)
	assert.Equal(t, "TABLE_X", out.Result.Stages[1].Variables["table"])

	calls := m.Calls()
	require.Len(t, calls, 2)
	assert.Contains(t, calls[0].Prompt, "Fill the table with 3 rows of data")
	assert.Contains(t, calls[0].Prompt, "composition = Rule of thirds")
	assert.Contains(t, calls[1].Prompt, "TABLE_X")
	assert.Contains(t, calls[1].Prompt, "Prepend each sentence with Landscape photograph")
	assert.Contains(t, calls[1].Prompt, `" —ar 16:9"`)

	reqs := f.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "openai", reqs[0].Provider)
	assert.Equal(t, "sk-request", reqs[0].APIKey)
}

func TestGenerate_RowCountInStagePrompt(t *testing.T) {
	for n := 1; n <= 10; n++ {
		m := porttest.NewScriptedModel(porttest.Reply{Content: "T"}, porttest.Reply{Content: "L"})
		g := newTestGenerator(t, &porttest.Factory{Model: m})

		_, err := g.Generate(context.Background(), &Request{Variant: "film", Rows: intp(n), APIKey: "k"})
		require.NoError(t, err)

		calls := m.Calls()
		require.Len(t, calls, 2)
		assert.Contains(t, calls[0].Prompt, "Please create a table with "+strconv.Itoa(n)+" rows")
		assert.Contains(t, calls[0].Prompt, "composition into the following key elements")
		assert.Contains(t, calls[1].Prompt, "Prepend each sentence with Film photography photograph")
	}
}

func TestGenerate_NoCredential(t *testing.T) {
	m := porttest.NewScriptedModel()
	f := &porttest.Factory{Model: m, ServerKey: false}
	g := newTestGenerator(t, f)

	out, err := g.Generate(context.Background(), &Request{Variant: "general", APIKey: "   "})
	require.NoError(t, err)

	assert.Equal(t, StateNotConfigured, out.State)
	assert.Nil(t, out.Result)
	assert.Empty(t, out.Lines())
	assert.NotEmpty(t, out.Guidance)
	assert.Empty(t, m.Calls())
	assert.Empty(t, f.Requests())
}

func TestGenerate_ServerCredential(t *testing.T) {
	m := porttest.NewScriptedModel(porttest.Reply{Content: "T"}, porttest.Reply{Content: "L"})
	f := &porttest.Factory{Model: m, ServerKey: true}
	g := newTestGenerator(t, f)

	out, err := g.Generate(context.Background(), &Request{Variant: "general"})
	require.NoError(t, err)
	assert.Equal(t, StateGenerated, out.State)

	reqs := f.Requests()
	require.Len(t, reqs, 1)
	assert.Empty(t, reqs[0].APIKey)
}

func TestGenerate_ProviderFailure(t *testing.T) {
	m := porttest.NewScriptedModel(
		porttest.Reply{Err: errors.New("status code: 429, rate limit reached")},
		porttest.Reply{Content: "L"},
	)
	g := newTestGenerator(t, &porttest.Factory{Model: m})

	out, err := g.Generate(context.Background(), &Request{Variant: "general", APIKey: "k"})
	require.Error(t, err)
	assert.Nil(t, out)
	assert.Len(t, m.Calls(), 1)

	var pe *chain.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, wfnode.ProviderErrorRateLimit, pe.Kind)
}

func TestGenerate_InputErrors(t *testing.T) {
	g := newTestGenerator(t, &porttest.Factory{Model: porttest.NewScriptedModel()})

	tests := []struct {
		name string
		req  *Request
		want error
	}{
		{name: "unknown variant", req: &Request{Variant: "nope", APIKey: "k"}, want: ErrVariantNotFound},
		{name: "row count too high", req: &Request{Variant: "general", Rows: intp(11), APIKey: "k"}, want: ErrInvalidRowCount},
		{name: "row count zero", req: &Request{Variant: "general", Rows: intp(0), APIKey: "k"}, want: ErrInvalidRowCount},
		{
			name: "custom without value",
			req:  &Request{Variant: "general", Attributes: map[string]string{"mood": "Custom"}, APIKey: "k"},
			want: ErrInvalidSelection,
		},
		{
			name: "unknown attribute",
			req:  &Request{Variant: "general", Attributes: map[string]string{"subject": "Cowboy"}, APIKey: "k"},
			want: ErrInvalidSelection,
		},
		{
			name: "fixed attribute override",
			req:  &Request{Variant: "film", Attributes: map[string]string{"framework": "Street photography"}, APIKey: "k"},
			want: ErrInvalidSelection,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := g.Generate(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), err.Error())
		})
	}
}
