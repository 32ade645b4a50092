package main

import (
	"os"

	"github.com/quickcred/quickcred/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
