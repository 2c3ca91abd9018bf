// Command embersend prepares, prices, validates, and signs Ethereum
// transfers through interchangeable signing backends.
package main

import (
	"os"

	"github.com/mrz1836/embersend/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(cli.ExitCode(err))
	}
}
