package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"additive-prompt-api/internal/application/promptgen"
	"additive-prompt-api/internal/interfaces/http/dto"
)

// 未通过 --api-key 提供凭据时读取的环境变量
const apiKeyEnv = "OPENAI_API_KEY"

type generateFlags struct {
	set           []string
	rows          int
	apiKey        string
	provider      string
	model         string
	temperature   float32
	maxTokens     int
	deterministic bool
	format        string
	trace         bool
}

func newGenerateCommand(a *app) *cobra.Command {
	f := &generateFlags{}
	cmd := &cobra.Command{
		Use:   "generate [variant]",
		Short: "Run the two-stage chain and print the generated prompts",
		Long: `Run the table stage and the lines stage for a variant.

Attributes not given with --set use the variant's first preset.
Without a credential the command prints the setup steps and makes no LLM call.`,
		Example: `  # five landscape prompts in 16:9
  promptctl generate general --set framework="Landscape photograph" --set aspect_ratio=16:9

  # film variant, three rows, markdown output
  promptctl generate film --rows 3 --format markdown`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, a, f, args)
		},
	}

	fl := cmd.Flags()
	fl.StringArrayVarP(&f.set, "set", "s", nil, "Attribute value as name=value (repeatable)")
	fl.IntVarP(&f.rows, "rows", "n", 0, "Number of prompt variations")
	fl.StringVar(&f.apiKey, "api-key", "", "LLM API key, defaults to $"+apiKeyEnv+" (never stored)")
	fl.StringVar(&f.provider, "provider", "", "LLM provider from config")
	fl.StringVar(&f.model, "model", "", "Override the provider's model")
	fl.Float32Var(&f.temperature, "temperature", 0, "Override sampling temperature for both stages")
	fl.IntVar(&f.maxTokens, "max-tokens", 0, "Override max tokens for both stages")
	fl.BoolVar(&f.deterministic, "deterministic", false, "Use temperature 0 for both stages")
	fl.StringVarP(&f.format, "format", "o", "text", "Output format (text|markdown|json)")
	fl.BoolVar(&f.trace, "trace", false, "Include per-stage prompts and token usage")

	_ = cmd.RegisterFlagCompletionFunc("format", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{"text", "markdown", "json"}, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

func runGenerate(cmd *cobra.Command, a *app, f *generateFlags, args []string) error {
	attrs, err := parseAssignments(f.set)
	if err != nil {
		return err
	}

	variant := a.cfg.Generation.DefaultVariant
	if len(args) == 1 {
		variant = args[0]
	}

	body := dto.GenerateRequest{
		Model:         f.model,
		Deterministic: f.deterministic,
	}
	if cmd.Flags().Changed("temperature") {
		body.Temperature = &f.temperature
	}
	if cmd.Flags().Changed("max-tokens") {
		body.MaxTokens = &f.maxTokens
	}

	req := &promptgen.Request{
		Variant:    variant,
		Attributes: attrs,
		Provider:   f.provider,
		APIKey:     f.apiKey,
		Overrides:  body.Overrides(),
	}
	if cmd.Flags().Changed("rows") {
		req.Rows = &f.rows
	}
	if strings.TrimSpace(req.APIKey) == "" {
		req.APIKey = a.opts.Getenv(apiKeyEnv)
	}

	out, err := a.generator.Generate(cmd.Context(), req)
	if err != nil {
		return appError(err)
	}

	w := cmd.OutOrStdout()
	switch strings.ToLower(f.format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(dto.ToGenerateResponse(out, f.trace))
	case "md", "markdown":
		fmt.Fprintln(w, out.Markdown())
		return nil
	case "", "text":
		printOutcome(w, out, f.trace)
		return nil
	default:
		return fmt.Errorf("unknown format %q (text|markdown|json)", f.format)
	}
}

// parseAssignments 解析 name=value；值中可以包含逗号和等号
func parseAssignments(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --set %q, expected name=value", p)
		}
		out[name] = value
	}
	return out, nil
}

func printOutcome(w io.Writer, out *promptgen.Outcome, trace bool) {
	if out.State == promptgen.StateNotConfigured {
		fmt.Fprintln(w, warnStyle.Render("No LLM credential configured, nothing was generated."))
		printSection(w, "Start here", out.Guidance)
		return
	}

	fmt.Fprintln(w, successStyle.Render(fmt.Sprintf("%s · %d prompts · %s", out.Variant, out.Rows, out.Provider)))
	fmt.Fprintln(w)
	fmt.Fprintln(w, out.Lines())

	if !trace || out.Result == nil {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, headingStyle.Render("Table"))
	fmt.Fprintln(w, out.Table())
	fmt.Fprintln(w)

	t := newTable(w)
	t.AppendHeader(table.Row{"Stage", "Prompt tokens", "Completion tokens", "Duration"})
	for _, st := range out.Result.Stages {
		t.AppendRow(table.Row{st.Stage, st.Usage.PromptTokens, st.Usage.CompletionTokens, fmt.Sprintf("%dms", st.Usage.DurationMs)})
	}
	total := out.Result.Usage()
	t.AppendFooter(table.Row{"total", total.PromptTokens, total.CompletionTokens, fmt.Sprintf("%dms", total.DurationMs)})
	t.Render()
	fmt.Fprintln(w, mutedStyle.Render("run "+out.RunID))
}
