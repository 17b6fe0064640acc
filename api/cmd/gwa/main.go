package main

import (
	"os"

	"gwa-helper/api/internal/cli"
)

func main() {
	if err := cli.NewRootCmd(os.Getenv).Execute(); err != nil {
		os.Exit(1)
	}
}
