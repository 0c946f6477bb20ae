package main

import (
	"os"

	"github.com/pawlive/classmate/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
