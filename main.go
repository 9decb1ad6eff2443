package main

import (
	"fmt"
	"os"

	"github.com/Ell-716/starting-ragchatbot-codebase/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
