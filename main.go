package main

import (
	"os"

	"github.com/flowcanvas/flowcanvas/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
