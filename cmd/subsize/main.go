package main

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"

	"github.com/Fepozopo/subsize/pkg/cli"
)

// version will be set while building
var version string

func main() {
	if version != "" {
		cli.Version = version
	}
	if err := cli.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to load .env: %v\n", err)
	}

	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "subsize",
		Output: os.Stderr,
		Level:  cli.LogLevel(),
	}).With("appVersion", cli.Version)

	os.Exit(cli.Run(os.Args[1:], logger))
}
