package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"pagos/internal/core"
	"pagos/internal/services"
)

// InitCmd replaces the stored ledger with a fresh one built from the seed.
type InitCmd struct{}

func (c *InitCmd) Run(app *App) error {
	ok, err := app.confirm("Replace the stored ledger with a fresh one from the seed? Every month and balance is lost.")
	if err != nil {
		return err
	}
	if !ok {
		printInfof(app.Out, "Initialization cancelled")
		return nil
	}
	return app.withEnv(func(ctx context.Context, env *Env) error {
		var l *core.Ledger
		err := env.Session.Exclusive(func(svc *services.LedgerService) error {
			var err error
			l, err = svc.Reinitialize(ctx)
			return err
		})
		if err != nil {
			return err
		}
		printSuccess(app.Out, "Ledger %d initialized with %d accounts and %d template items", l.Year, len(l.Accounts), len(l.Template))
		return nil
	})
}

// BalancesCmd shows or sets account balances.
type BalancesCmd struct {
	Show BalancesShowCmd `cmd:"" default:"1" help:"Show account balances."`
	Set  BalancesSetCmd  `cmd:"" help:"Set balances, e.g. 'balances set 1=250 2=-10,5'."`
}

type BalancesShowCmd struct{}

func (c *BalancesShowCmd) Run(app *App) error {
	return app.do(func(_ context.Context, _ *Env, l *core.Ledger) error {
		renderBalances(app.Out, l)
		return nil
	})
}

type BalancesSetCmd struct {
	Values []string `arg:"" help:"Assignments as account=amount." name:"account=amount"`
}

// parseAssignments reads "id=amount" pairs. Negative amounts are allowed.
func parseAssignments(values []string) (map[int]decimal.Decimal, error) {
	out := make(map[int]decimal.Decimal, len(values))
	for _, v := range values {
		idPart, amountPart, ok := strings.Cut(v, "=")
		if !ok {
			return nil, fmt.Errorf("%q: expected account=amount", v)
		}
		id, err := strconv.Atoi(strings.TrimSpace(idPart))
		if err != nil {
			return nil, fmt.Errorf("%q: account must be a number", v)
		}
		amount, err := core.ParseBalance(amountPart)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", v, err)
		}
		out[id] = amount
	}
	return out, nil
}

func (c *BalancesSetCmd) Run(app *App) error {
	balances, err := parseAssignments(c.Values)
	if err != nil {
		return err
	}
	return app.do(func(ctx context.Context, env *Env, l *core.Ledger) error {
		if err := env.Service().UpdateBalances(ctx, l, balances); err != nil {
			return err
		}
		printSuccess(app.Out, "Updated %d balances", len(balances))
		renderBalances(app.Out, l)
		return nil
	})
}

// TemplateCmd manages the recurring charge template.
type TemplateCmd struct {
	List   TemplateListCmd   `cmd:"" default:"1" help:"List template items."`
	Add    TemplateAddCmd    `cmd:"" help:"Add a template item."`
	Delete TemplateDeleteCmd `cmd:"" help:"Delete a template item."`
}

type TemplateListCmd struct{}

func (c *TemplateListCmd) Run(app *App) error {
	return app.do(func(_ context.Context, _ *Env, l *core.Ledger) error {
		renderTemplate(app.Out, l)
		return nil
	})
}

type TemplateAddCmd struct {
	Name        string `arg:"" help:"Charge name."`
	Amount      string `arg:"" help:"Amount."`
	Day         int    `help:"Due day of month." short:"d" required:""`
	Account     int    `help:"Account id." short:"a" required:""`
	Category    string `help:"Category." short:"c"`
	Kind        string `help:"Charge kind." enum:"fixed,sub_monthly,sub_annual" default:"fixed"`
	AnnualMonth int    `help:"Billing month for sub_annual items." name:"annual-month"`
}

func (c *TemplateAddCmd) Run(app *App) error {
	amount, err := core.ParseAmount(c.Amount)
	if err != nil {
		return fmt.Errorf("amount %q: %w", c.Amount, err)
	}
	kind, err := core.ParseChargeKind(c.Kind)
	if err != nil {
		return err
	}
	return app.do(func(ctx context.Context, env *Env, l *core.Ledger) error {
		it, err := env.Service().AddTemplateItem(ctx, l, core.TemplateItem{
			Name:        c.Name,
			Amount:      amount,
			Day:         c.Day,
			AccountID:   c.Account,
			Category:    c.Category,
			Kind:        kind,
			AnnualMonth: c.AnnualMonth,
		})
		if err != nil {
			return err
		}
		printSuccess(app.Out, "Added template item #%d %s", it.ID, it.Name)
		printInfof(app.Out, "Existing months are unchanged; regenerate a month to apply it")
		return nil
	})
}

type TemplateDeleteCmd struct {
	ID int `arg:"" help:"Template item id."`
}

func (c *TemplateDeleteCmd) Run(app *App) error {
	return app.do(func(ctx context.Context, env *Env, l *core.Ledger) error {
		ok, err := env.Service().DeleteTemplateItem(ctx, l, c.ID)
		if err != nil {
			return err
		}
		if !ok {
			return notFound("template item %d", c.ID)
		}
		printSuccess(app.Out, "Deleted template item %d", c.ID)
		return nil
	})
}

// CategoryCmd manages category names.
type CategoryCmd struct {
	Add    CategoryAddCmd    `cmd:"" help:"Add a category."`
	Remove CategoryRemoveCmd `cmd:"" help:"Remove a category."`
}

type CategoryAddCmd struct {
	Name string `arg:""`
}

func (c *CategoryAddCmd) Run(app *App) error {
	return app.do(func(ctx context.Context, env *Env, l *core.Ledger) error {
		added, err := env.Service().AddCategory(ctx, l, c.Name)
		if err != nil {
			return err
		}
		if !added {
			printInfof(app.Out, "Category %q already exists", c.Name)
			return nil
		}
		printSuccess(app.Out, "Added category %q", c.Name)
		return nil
	})
}

type CategoryRemoveCmd struct {
	Name string `arg:""`
}

func (c *CategoryRemoveCmd) Run(app *App) error {
	return app.do(func(ctx context.Context, env *Env, l *core.Ledger) error {
		removed, err := env.Service().RemoveCategory(ctx, l, c.Name)
		if err != nil {
			return err
		}
		if !removed {
			return notFound("category %q", c.Name)
		}
		printSuccess(app.Out, "Removed category %q", c.Name)
		return nil
	})
}

// AccountCmd manages accounts.
type AccountCmd struct {
	Add    AccountAddCmd    `cmd:"" help:"Add an account with a zero balance."`
	Rename AccountRenameCmd `cmd:"" help:"Rename an account."`
}

type AccountAddCmd struct {
	Name  string `arg:""`
	Color string `help:"Display color."`
}

func (c *AccountAddCmd) Run(app *App) error {
	return app.do(func(ctx context.Context, env *Env, l *core.Ledger) error {
		a, err := env.Service().AddAccount(ctx, l, c.Name, c.Color)
		if err != nil {
			return err
		}
		printSuccess(app.Out, "Added account #%d %s", a.ID, a.Name)
		return nil
	})
}

type AccountRenameCmd struct {
	ID    int    `arg:""`
	Name  string `arg:""`
	Color string `help:"New display color."`
}

func (c *AccountRenameCmd) Run(app *App) error {
	return app.do(func(ctx context.Context, env *Env, l *core.Ledger) error {
		if err := env.Service().RenameAccount(ctx, l, c.ID, c.Name, c.Color); err != nil {
			return err
		}
		printSuccess(app.Out, "Account %d is now %s", c.ID, c.Name)
		return nil
	})
}

// ProrationCmd shows the monthly share of annual subscriptions.
type ProrationCmd struct{}

func (c *ProrationCmd) Run(app *App) error {
	return app.do(func(_ context.Context, _ *Env, l *core.Ledger) error {
		renderProration(app.Out, l)
		return nil
	})
}

// ExportCmd writes the pending list of a month to a text file.
type ExportCmd struct {
	MonthFlag
	Dir string `help:"Output directory. Defaults to the data directory." type:"path"`
}

func (c *ExportCmd) Run(app *App) error {
	year, month, err := c.resolve(app.Now())
	if err != nil {
		return err
	}
	return app.do(func(ctx context.Context, env *Env, l *core.Ledger) error {
		dir := c.Dir
		if dir == "" {
			dir = env.Config.DataDir()
		}
		path, err := env.Service().ExportPending(ctx, l, year, month, dir)
		if err != nil {
			return err
		}
		printSuccess(app.Out, "Wrote %s", path)
		return nil
	})
}

// SheetsExportCmd publishes the pending list of a month to Google Sheets.
type SheetsExportCmd struct {
	MonthFlag
}

func (c *SheetsExportCmd) Run(app *App) error {
	year, month, err := c.resolve(app.Now())
	if err != nil {
		return err
	}
	return app.withEnv(func(ctx context.Context, env *Env) error {
		w, err := env.PendingWriter(ctx)
		if err != nil {
			return err
		}
		return env.Session.Do(ctx, func(l *core.Ledger) error {
			ref, err := env.Service().PublishPending(ctx, w, l, year, month)
			if err != nil {
				return err
			}
			printSuccess(app.Out, "Published %s", ref)
			return nil
		})
	})
}

// BackupCmd writes the full ledger document.
type BackupCmd struct {
	Output string `help:"Output file; '-' writes to stdout." short:"o" default:"-"`
}

func (c *BackupCmd) Run(app *App) error {
	return app.do(func(_ context.Context, env *Env, l *core.Ledger) error {
		data, err := env.Service().Backup(l)
		if err != nil {
			return err
		}
		if c.Output == "-" {
			_, err := app.Out.Write(append(data, '\n'))
			return err
		}
		if err := os.WriteFile(c.Output, data, 0o600); err != nil {
			return fmt.Errorf("write backup: %w", err)
		}
		printSuccess(app.Out, "Backup written to %s", c.Output)
		return nil
	})
}

// ImportCmd replaces the stored ledger with a backup document.
type ImportCmd struct {
	File []byte `arg:"" help:"Backup file to import." type:"filecontent"`
}

func (c *ImportCmd) Run(app *App) error {
	ok, err := app.confirm("Replace the stored ledger with the backup?")
	if err != nil {
		return err
	}
	if !ok {
		printInfof(app.Out, "Import cancelled")
		return nil
	}
	return app.withEnv(func(ctx context.Context, env *Env) error {
		var l *core.Ledger
		err := env.Session.Exclusive(func(svc *services.LedgerService) error {
			var err error
			l, err = svc.Import(ctx, c.File)
			return err
		})
		if err != nil {
			return err
		}
		printSuccess(app.Out, "Imported ledger %d with %d months", l.Year, len(l.Months))
		return nil
	})
}
