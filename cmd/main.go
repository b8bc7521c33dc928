package main

import (
	"os"

	"case-reasons-training/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
