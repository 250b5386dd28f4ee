package main

import (
	"os"

	"pagos/internal/cli"
)

func main() {
	var root cli.Commands
	app := cli.NewApp(&root.Globals, os.Stdout, os.Stderr)
	if err := cli.Execute(app, &root, os.Args[1:]); err != nil {
		cli.ReportError(os.Stderr, err)
		os.Exit(1)
	}
}
