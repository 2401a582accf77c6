package main

import (
	"os"

	"github.com/DoyleJ11/hl-pug-backend/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
