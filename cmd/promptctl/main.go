// Package main promptctl 命令行入口
package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"

	"additive-prompt-api/internal/interfaces/cli"
	"additive-prompt-api/internal/wire"
)

// Version 版本信息，构建时注入
var Version = "dev"

func main() {
	_ = godotenv.Load()

	os.Exit(cli.Execute(context.Background(), cli.Options{
		Version:      Version,
		NewGenerator: wire.InitializeGenerator,
	}, os.Args[1:], os.Stdout, os.Stderr))
}
