// SlabNest places CAD parts on stock sheets and exports cut layouts.
//
// Build:
//   go build -o slabnest ./cmd/slabnest
package main

import (
	"fmt"
	"os"

	"github.com/piwi3910/SlabNest/internal/cli"
)

var version = "dev"

func main() {
	cli.SetVersion(version)

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
