package main

import (
	"fmt"
	"os"

	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/cli"
	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/env"
	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/logging"
)

var version = "dev"

func main() {
	env.SetupEnvFile()
	logging.Setup(env.GetEnv("LOG_LEVEL", "warn"), true)

	if err := cli.NewRootCommand(version).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
