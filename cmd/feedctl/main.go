// Command feedctl tests connections, previews feeds and runs imports from a shell.
package main

import (
	"os"

	"mdm-platform/feedhub/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
