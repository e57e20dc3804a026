package chain

import (
	"errors"
	"fmt"
	"strings"

	wfmodel "additive-prompt-api/internal/workflow/model"
	workflowprompt "additive-prompt-api/internal/workflow/prompt"
)

// ErrInvalidDefinition 路由表与模板不一致
var ErrInvalidDefinition = errors.New("invalid chain definition")

func invalidf(chain, format string, args ...any) error {
	return fmt.Errorf("%w: chain %s: %s", ErrInvalidDefinition, chain, fmt.Sprintf(format, args...))
}

// ValidateDefinition 静态校验链定义：
// 每个模板占位符都有且只有一个来源，stage.* 只能引用更早阶段的输出
func ValidateDefinition(def wfmodel.ChainDefinition, templates workflowprompt.TemplateSource) error {
	_, err := compileStages(def, templates)
	return err
}

func compileStages(def wfmodel.ChainDefinition, templates workflowprompt.TemplateSource) ([]compiledStage, error) {
	name := strings.TrimSpace(def.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: chain name is empty", ErrInvalidDefinition)
	}
	if templates == nil {
		return nil, invalidf(name, "template source is nil")
	}
	if len(def.Stages) == 0 {
		return nil, invalidf(name, "no stages")
	}

	stageNames := make(map[string]struct{}, len(def.Stages))
	outputs := make(map[string]struct{}, len(def.Stages))
	out := make([]compiledStage, 0, len(def.Stages))

	for i, st := range def.Stages {
		if strings.TrimSpace(st.Name) == "" {
			return nil, invalidf(name, "stage #%d has no name", i)
		}
		if _, dup := stageNames[st.Name]; dup {
			return nil, invalidf(name, "duplicate stage %q", st.Name)
		}
		stageNames[st.Name] = struct{}{}

		if strings.TrimSpace(st.Output) == "" {
			return nil, invalidf(name, "stage %q has no output key", st.Name)
		}
		if _, dup := outputs[st.Output]; dup {
			return nil, invalidf(name, "duplicate output key %q", st.Output)
		}

		tpl, err := templates.Template(st.Prompt)
		if err != nil {
			return nil, invalidf(name, "stage %q: %v", st.Name, err)
		}

		bound := make(map[string]struct{}, len(st.Bindings))
		for _, b := range st.Bindings {
			if !tpl.Has(b.Placeholder) {
				return nil, invalidf(name, "stage %q binds unknown placeholder %q", st.Name, b.Placeholder)
			}
			if _, dup := bound[b.Placeholder]; dup {
				return nil, invalidf(name, "stage %q binds placeholder %q twice", st.Name, b.Placeholder)
			}
			switch b.From.Kind {
			case wfmodel.SourceInput:
			case wfmodel.SourceStage:
				if _, ok := outputs[b.From.Key]; !ok {
					return nil, invalidf(name, "stage %q reads %s before it is produced", st.Name, b.From)
				}
			default:
				return nil, invalidf(name, "stage %q has invalid source %s", st.Name, b.From)
			}
			bound[b.Placeholder] = struct{}{}
		}
		for _, ph := range tpl.Placeholders() {
			if _, ok := bound[ph]; !ok {
				return nil, invalidf(name, "stage %q leaves placeholder %q unbound", st.Name, ph)
			}
		}

		// 输出键在本阶段校验完成后才可被后续阶段引用
		outputs[st.Output] = struct{}{}
		out = append(out, compiledStage{def: st, tpl: tpl})
	}
	return out, nil
}
