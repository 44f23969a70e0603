package main

import (
	"os"

	"github.com/davidfries/hooky/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
