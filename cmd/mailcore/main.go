package main

import (
	"fmt"
	"os"

	"github.com/infodancer/mailcore/internal/cli"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	cli.RegisterFlags()
	if err := cli.Execute(version); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
