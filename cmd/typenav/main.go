package main

import (
	"os"

	"github.com/skelly-dev/typenav/internal/cli"
)

var version = "0.1.0-dev"

func main() {
	if err := cli.NewApp(version).Execute(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}
