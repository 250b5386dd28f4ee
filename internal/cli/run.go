package cli

import (
	"fmt"
	"io"

	"github.com/alecthomas/kong"
)

// Version is set via ldflags when building.
var Version = "dev"

// Execute parses args against root and runs the selected command with app
// bound into it.
func Execute(app *App, root *Commands, args []string, opts ...kong.Option) error {
	app.Globals = &root.Globals
	options := append([]kong.Option{
		kong.Name("pagos"),
		kong.Description("Household payment control: monthly charges, account balances and deficits."),
		kong.UsageOnError(),
		kong.Vars{"version": Version},
		kong.Writers(app.Out, app.Err),
		kong.Bind(app),
	}, opts...)

	parser, err := kong.New(root, options...)
	if err != nil {
		return err
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	return kctx.Run()
}

// ReportError prints a failed command's error.
func ReportError(w io.Writer, err error) {
	printError(w, fmt.Sprint(err))
}
