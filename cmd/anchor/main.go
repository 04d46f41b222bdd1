// Command anchor indexes user content and resolves assistant citations.
package main

import (
	"fmt"
	"os"

	"github.com/custodia-labs/anchor/internal/adapters/driving/cli"
)

// version is set via -ldflags at build time.
var version = "dev"

func main() {
	if err := cli.Execute(version, buildServices); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
