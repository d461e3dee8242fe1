package main

import (
	"os"

	"github.com/courseware/labgrader/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
