package cli

import "github.com/alecthomas/kong"

// Commands is the pagos command tree.
type Commands struct {
	Globals

	Version kong.VersionFlag `help:"Show version information."`

	Status     StatusCmd     `cmd:"" help:"Show a month against the account balances."`
	Items      ItemsCmd      `cmd:"" help:"List the charges of a month."`
	Pay        PayCmd        `cmd:"" help:"Mark charges as paid."`
	Unpay      UnpayCmd      `cmd:"" help:"Mark charges as pending again."`
	Add        AddCmd        `cmd:"" help:"Add an ad-hoc charge to a month."`
	Edit       EditCmd       `cmd:"" help:"Edit a charge."`
	Delete     DeleteCmd     `cmd:"" help:"Delete charges from a month."`
	Cleanup    CleanupCmd    `cmd:"" help:"Remove paid ad-hoc charges from a month."`
	Regenerate RegenerateCmd `cmd:"" help:"Rebuild a month from the template."`
	Roll       RollCmd       `cmd:"" help:"Create the months that are due today."`

	Balances  BalancesCmd  `cmd:"" help:"Show or set account balances."`
	Template  TemplateCmd  `cmd:"" help:"Manage recurring charges."`
	Category  CategoryCmd  `cmd:"" help:"Manage categories."`
	Account   AccountCmd   `cmd:"" help:"Manage accounts."`
	Proration ProrationCmd `cmd:"" help:"Show the monthly share of annual subscriptions."`

	Export       ExportCmd       `cmd:"" help:"Write the pending list of a month to a text file."`
	SheetsExport SheetsExportCmd `cmd:"" name:"sheets-export" help:"Publish the pending list of a month to Google Sheets."`
	Backup       BackupCmd       `cmd:"" help:"Write the full ledger document."`
	Import       ImportCmd       `cmd:"" help:"Replace the ledger with a backup document."`
	Init         InitCmd         `cmd:"" help:"Create a fresh ledger from the seed."`

	Serve ServeCmd `cmd:"" help:"Run the HTTP API and the month roll scheduler."`
}
