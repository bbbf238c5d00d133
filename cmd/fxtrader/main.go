package main

import (
	"os"

	"github.com/rustyeddy/fxtrader/cmd/fxtrader/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
