// Command passacre derives site passwords from a master password.
package main

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Fatal error: %v\n", r)
			if os.Getenv("PASSACRE_TRACEBACK") != "" {
				fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
			}
			os.Exit(2)
		}
	}()

	if err := Execute(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
