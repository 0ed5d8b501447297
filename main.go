package main

import (
	"fmt"
	"os"

	"git-archive-all/internal/cli"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "panic occurred: %v\n", r)
			os.Exit(1)
		}
	}()

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
