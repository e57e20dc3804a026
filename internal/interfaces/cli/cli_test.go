package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"additive-prompt-api/internal/application/promptgen"
	"additive-prompt-api/internal/application/promptgen/catalog"
	"additive-prompt-api/internal/config"
	"additive-prompt-api/internal/interfaces/http/dto"
	"additive-prompt-api/internal/workflow/port/porttest"
	workflowprompt "additive-prompt-api/internal/workflow/prompt"
)

const cliKey = "sk-cli-secret-5678"

type harness struct {
	factory *porttest.Factory
	model   *porttest.ScriptedModel
	env     map[string]string
}

func newHarness(replies ...porttest.Reply) *harness {
	m := porttest.NewScriptedModel(replies...)
	return &harness{
		factory: &porttest.Factory{Model: m},
		model:   m,
		env:     map[string]string{},
	}
}

func (h *harness) run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	opts := Options{
		Version: "test",
		LoadConfig: func() (*config.Config, error) {
			return &config.Config{
				Generation: config.GenerationConfig{DefaultVariant: "general"},
				LLM:        config.LLMConfig{DefaultProvider: "openai"},
			}, nil
		},
		NewGenerator: func(cfg *config.Config) (*promptgen.Generator, error) {
			return promptgen.NewGenerator(catalog.MustLoad(), workflowprompt.NewRegistry(), h.factory, cfg.LLM.DefaultProvider)
		},
		Getenv: func(k string) string { return h.env[k] },
	}

	var stdout, stderr bytes.Buffer
	code := Execute(context.Background(), opts, args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestVariantsCommand(t *testing.T) {
	code, out, _ := newHarness().run(t, "variants")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "general")
	assert.Contains(t, out, "film")
	assert.Contains(t, out, "1-10 (default 5)")
}

func TestShowCommand(t *testing.T) {
	code, out, _ := newHarness().run(t, "show", "film")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Film photography photograph")
	assert.Contains(t, out, "fixed")
	assert.Contains(t, out, "Start here")
}

func TestShowCommand_UnknownVariant(t *testing.T) {
	code, _, errOut := newHarness().run(t, "show", "nope")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "3001")
}

func TestGenerateCommand(t *testing.T) {
	h := newHarness(porttest.Reply{Content: "| table |"}, porttest.Reply{Content: "- Landscape photograph, dusk, misty —ar 16:9"})

	code, out, errOut := h.run(t, "generate",
		"--set", "framework=Landscape photograph",
		"--set", "aspect_ratio=16:9",
		"--rows", "2",
		"--api-key", cliKey,
	)
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "- Landscape photograph, dusk, misty —ar 16:9")
	assert.Contains(t, out, "general · 2 prompts · openai")
	assert.NotContains(t, out+errOut, cliKey)

	calls := h.model.Calls()
	require.Len(t, calls, 2)
	assert.Contains(t, calls[0].Prompt, "Fill the table with 2 rows of data")

	reqs := h.factory.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, cliKey, reqs[0].APIKey)
}

func TestGenerateCommand_KeyFromEnvironment(t *testing.T) {
	h := newHarness(porttest.Reply{Content: "T"}, porttest.Reply{Content: "L"})
	h.env[apiKeyEnv] = cliKey

	code, _, errOut := h.run(t, "generate", "film")
	require.Equal(t, 0, code, errOut)

	reqs := h.factory.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, cliKey, reqs[0].APIKey)
}

func TestGenerateCommand_NotConfigured(t *testing.T) {
	h := newHarness()

	code, out, _ := h.run(t, "generate", "general")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "No LLM credential configured")
	assert.Contains(t, out, "1. Provide an OpenAI API key")
	assert.Empty(t, h.model.Calls())
	assert.Empty(t, h.factory.Requests())
}

func TestGenerateCommand_JSON(t *testing.T) {
	h := newHarness(porttest.Reply{Content: "T"}, porttest.Reply{Content: "- a\n- b"})

	code, out, errOut := h.run(t, "generate", "film", "--api-key", cliKey, "--format", "json", "--trace")
	require.Equal(t, 0, code, errOut)

	var resp dto.GenerateResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "generated", resp.State)
	assert.Equal(t, "- a\n- b", resp.Lines)
	assert.Len(t, resp.Stages, 2)
	assert.NotContains(t, out, cliKey)
}

func TestGenerateCommand_Deterministic(t *testing.T) {
	h := newHarness(porttest.Reply{Content: "T"}, porttest.Reply{Content: "L"})

	code, _, errOut := h.run(t, "generate", "film", "--api-key", cliKey, "--deterministic")
	require.Equal(t, 0, code, errOut)

	for _, c := range h.model.Calls() {
		require.NotNil(t, c.Options.Temperature)
		assert.Equal(t, float32(0), *c.Options.Temperature)
	}
}

func TestGenerateCommand_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"custom literal", []string{"generate", "--set", "mood=Custom", "--api-key", cliKey}, "4002"},
		{"rows out of range", []string{"generate", "--rows", "0", "--api-key", cliKey}, "4003"},
		{"malformed assignment", []string{"generate", "--set", "mood"}, "expected name=value"},
		{"unknown format", []string{"generate", "film", "--api-key", cliKey, "--format", "xml"}, "unknown format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(porttest.Reply{Content: "T"}, porttest.Reply{Content: "L"})
			code, _, errOut := h.run(t, tt.args...)
			assert.Equal(t, 1, code)
			assert.Contains(t, errOut, tt.want)
			assert.NotContains(t, errOut, cliKey)
		})
	}
}

func TestParseAssignments(t *testing.T) {
	got, err := parseAssignments([]string{"framework=Landscape photograph, wide", " mood =a=b"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"framework": "Landscape photograph, wide",
		"mood":      "a=b",
	}, got)

	got, err = parseAssignments(nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}
