package main

import (
	"os"

	"github.com/rtzll/tutorly/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
