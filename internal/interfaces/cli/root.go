// Package cli 提供 promptctl 命令行入口
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"additive-prompt-api/internal/application/promptgen"
	"additive-prompt-api/internal/config"
	"additive-prompt-api/pkg/logger"
)

// Options 命令行依赖，测试中可替换
type Options struct {
	Version      string
	LoadConfig   func() (*config.Config, error)
	NewGenerator func(*config.Config) (*promptgen.Generator, error)
	Getenv       func(string) string
}

// app 在 PersistentPreRunE 中完成初始化，供子命令使用
type app struct {
	opts      Options
	cfg       *config.Config
	generator *promptgen.Generator
	verbose   bool
}

// NewRootCmd 创建根命令
func NewRootCmd(opts Options) *cobra.Command {
	if opts.LoadConfig == nil {
		opts.LoadConfig = config.Load
	}
	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}
	a := &app{opts: opts}

	root := &cobra.Command{
		Use:   "promptctl",
		Short: "Generate Midjourney prompt variations from attribute breakdowns",
		Long: `promptctl runs the two-stage prompt chain locally.

The first LLM call fills a breakdown table for the selected attributes,
the second turns each table row into a ready-to-paste Midjourney prompt.`,
		Version: opts.Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			return a.init(cmd.ErrOrStderr())
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Log chain progress to stderr")

	root.AddCommand(newVariantsCommand(a))
	root.AddCommand(newShowCommand(a))
	root.AddCommand(newGenerateCommand(a))
	return root
}

func (a *app) init(stderr io.Writer) error {
	cfg, err := a.opts.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg

	// 日志只写 stderr，stdout 保留给生成结果
	level := "warn"
	if a.verbose {
		level = "debug"
	}
	logger.InitWithWriter(stderr, level, "text")

	if a.opts.NewGenerator == nil {
		return errors.New("generator constructor not configured")
	}
	a.generator, err = a.opts.NewGenerator(cfg)
	if err != nil {
		return fmt.Errorf("init generator: %w", err)
	}
	return nil
}

// Execute 执行命令并返回进程退出码
func Execute(ctx context.Context, opts Options, args []string, stdout, stderr io.Writer) int {
	root := NewRootCmd(opts)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, errorStyle.Render("Error: ")+err.Error())
		return 1
	}
	return 0
}
