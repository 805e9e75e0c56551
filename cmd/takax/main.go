// Command takax runs the TakaX earn-rewards backend.
package main

import (
	"os"

	"github.com/takax-network/takax/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
