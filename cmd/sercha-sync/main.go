// Command sercha-sync runs the document sync service and its CLI.
package main

import (
	"os"

	"github.com/custodia-labs/sercha-sync/internal/adapters/driving/cli"
)

func main() {
	cli.SetBuilder(build)
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
