package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"pagos/internal/core"
	"pagos/internal/services"
)

// StatusCmd shows a month against the account balances.
type StatusCmd struct {
	MonthFlag
}

func (c *StatusCmd) Run(app *App) error {
	year, month, err := c.resolve(app.Now())
	if err != nil {
		return err
	}
	return app.do(func(ctx context.Context, env *Env, l *core.Ledger) error {
		if _, err := env.Service().EnsureMonth(ctx, l, year, month); err != nil {
			return err
		}
		renderStatus(app.Out, l, services.Report(l, year, month))
		return nil
	})
}

// ItemsCmd lists the charges of a month.
type ItemsCmd struct {
	MonthFlag
	Pending bool `help:"Only list unpaid charges."`
}

func (c *ItemsCmd) Run(app *App) error {
	year, month, err := c.resolve(app.Now())
	if err != nil {
		return err
	}
	return app.do(func(ctx context.Context, env *Env, l *core.Ledger) error {
		m, err := env.Service().EnsureMonth(ctx, l, year, month)
		if err != nil {
			return err
		}
		renderItems(app.Out, l, m, c.Pending)
		return nil
	})
}

// PayCmd marks charges as paid.
type PayCmd struct {
	MonthFlag
	DeductFlag
	IDs []int `arg:"" help:"Charge ids." name:"id"`
}

func (c *PayCmd) Run(app *App) error {
	return setPaid(app, c.MonthFlag, c.DeductFlag, c.IDs, true)
}

// UnpayCmd marks charges as pending again.
type UnpayCmd struct {
	MonthFlag
	DeductFlag
	IDs []int `arg:"" help:"Charge ids." name:"id"`
}

func (c *UnpayCmd) Run(app *App) error {
	return setPaid(app, c.MonthFlag, c.DeductFlag, c.IDs, false)
}

func setPaid(app *App, mf MonthFlag, df DeductFlag, ids []int, paid bool) error {
	year, month, err := mf.resolve(app.Now())
	if err != nil {
		return err
	}
	return app.do(func(ctx context.Context, env *Env, l *core.Ledger) error {
		m := l.Month(year, month)
		if m == nil {
			return notFound("month %s", core.MonthKey(year, month))
		}
		flags := make(map[int]bool, len(ids))
		for _, id := range ids {
			if m.Find(id) < 0 {
				printWarn(app.Out, "Charge %d not found in %s", id, m.Key())
				continue
			}
			flags[id] = paid
		}
		n, err := env.Service().MarkPaid(ctx, l, year, month, flags, df.resolve(env.Config))
		if err != nil {
			return err
		}
		state := "paid"
		if !paid {
			state = "pending"
		}
		printSuccess(app.Out, "%s: %d of %d charges marked %s", m.Key(), n, len(ids), state)
		return nil
	})
}

// AddCmd adds an ad-hoc charge.
type AddCmd struct {
	MonthFlag
	Name     string `arg:"" help:"Charge name."`
	Amount   string `arg:"" help:"Amount, e.g. 12.50 or 12,50."`
	Day      int    `help:"Due day; clamped to the month length." short:"d" default:"1"`
	Account  int    `help:"Account id." short:"a" required:""`
	Category string `help:"Category." short:"c"`
	Notes    string `help:"Free-form notes."`
}

func (c *AddCmd) Run(app *App) error {
	year, month, err := c.resolve(app.Now())
	if err != nil {
		return err
	}
	amount, err := core.ParseAmount(c.Amount)
	if err != nil {
		return fmt.Errorf("amount %q: %w", c.Amount, err)
	}
	return app.do(func(ctx context.Context, env *Env, l *core.Ledger) error {
		it, err := env.Service().AddAdhocItem(ctx, l, year, month, services.AdhocInput{
			Name:      c.Name,
			Amount:    amount,
			Day:       c.Day,
			AccountID: c.Account,
			Category:  c.Category,
			Notes:     c.Notes,
		})
		if err != nil {
			return err
		}
		printSuccess(app.Out, "Added #%d %s %s due %s", it.ID, it.Name, core.FormatEuro(it.Amount), it.Due)
		return nil
	})
}

// DeleteCmd removes charges from a month.
type DeleteCmd struct {
	MonthFlag
	IDs []int `arg:"" help:"Charge ids." name:"id"`
}

func (c *DeleteCmd) Run(app *App) error {
	year, month, err := c.resolve(app.Now())
	if err != nil {
		return err
	}
	return app.do(func(ctx context.Context, env *Env, l *core.Ledger) error {
		for _, id := range c.IDs {
			ok, err := env.Service().DeleteItem(ctx, l, year, month, id)
			if err != nil {
				return err
			}
			if !ok {
				printWarn(app.Out, "Charge %d not found in %s", id, core.MonthKey(year, month))
				continue
			}
			printSuccess(app.Out, "Deleted charge %d", id)
		}
		return nil
	})
}

// CleanupCmd removes paid ad-hoc charges.
type CleanupCmd struct {
	MonthFlag
	IDs []int `arg:"" optional:"" help:"Charge ids. Defaults to every paid ad-hoc charge of the month." name:"id"`
}

func (c *CleanupCmd) Run(app *App) error {
	year, month, err := c.resolve(app.Now())
	if err != nil {
		return err
	}
	return app.do(func(ctx context.Context, env *Env, l *core.Ledger) error {
		ids := c.IDs
		if len(ids) == 0 {
			if m := l.Month(year, month); m != nil {
				for _, it := range m.Items {
					if it.IsAdhoc() && it.Paid {
						ids = append(ids, it.ID)
					}
				}
			}
		}
		n, err := env.Service().DeletePaidAdhoc(ctx, l, year, month, ids)
		if err != nil {
			return err
		}
		printSuccess(app.Out, "Removed %d paid ad-hoc charges from %s", n, core.MonthKey(year, month))
		return nil
	})
}

// EditCmd changes fields of a charge. Flags left unset keep their value.
type EditCmd struct {
	MonthFlag
	ID       int    `arg:"" help:"Charge id."`
	Name     string `help:"New name."`
	Amount   string `help:"New amount."`
	Day      int    `help:"New due day." short:"d"`
	Account  int    `help:"New account id." short:"a"`
	Category string `help:"New category." short:"c"`
	Notes    string `help:"New notes."`
}

func (c *EditCmd) edit() (services.ChargeEdit, error) {
	var e services.ChargeEdit
	if c.Name != "" {
		e.Name = &c.Name
	}
	if c.Amount != "" {
		a, err := core.ParseAmount(c.Amount)
		if err != nil {
			return e, fmt.Errorf("amount %q: %w", c.Amount, err)
		}
		e.Amount = &a
	}
	if c.Day != 0 {
		e.Day = &c.Day
	}
	if c.Account != 0 {
		e.AccountID = &c.Account
	}
	if c.Category != "" {
		e.Category = &c.Category
	}
	if c.Notes != "" {
		e.Notes = &c.Notes
	}
	return e, nil
}

func (c *EditCmd) Run(app *App) error {
	year, month, err := c.resolve(app.Now())
	if err != nil {
		return err
	}
	edit, err := c.edit()
	if err != nil {
		return err
	}
	return app.do(func(ctx context.Context, env *Env, l *core.Ledger) error {
		ok, err := env.Service().EditCharge(ctx, l, year, month, c.ID, edit)
		if err != nil {
			return err
		}
		if !ok {
			return notFound("charge %d in %s", c.ID, core.MonthKey(year, month))
		}
		printSuccess(app.Out, "Updated charge %d", c.ID)
		return nil
	})
}

// RegenerateCmd rebuilds a month from the template after confirmation.
type RegenerateCmd struct {
	MonthFlag
}

func (c *RegenerateCmd) Run(app *App) error {
	year, month, err := c.resolve(app.Now())
	if err != nil {
		return err
	}
	key := core.MonthKey(year, month)
	return app.do(func(ctx context.Context, env *Env, l *core.Ledger) error {
		svc := env.Service()
		_, err := svc.RegenerateMonth(ctx, l, year, month)
		if !errors.Is(err, core.ErrConfirmationRequired) {
			return err
		}

		lost := 0
		if m := l.Month(year, month); m != nil {
			lost = len(m.Items)
		}
		ok, err := app.confirm(fmt.Sprintf("Regenerate %s? %d charges, ad-hoc items and paid flags will be lost.", key, lost))
		if err != nil || !ok {
			svc.CancelRegenerate(year, month)
			if err == nil {
				printInfof(app.Out, "Regeneration of %s cancelled", key)
			}
			return err
		}

		m, err := svc.RegenerateMonth(ctx, l, year, month)
		if err != nil {
			return err
		}
		printSuccess(app.Out, "Regenerated %s with %d charges", key, len(m.Items))
		return nil
	})
}

// RollCmd creates the months due today, as the worker does.
type RollCmd struct{}

func (c *RollCmd) Run(app *App) error {
	return app.withEnv(func(ctx context.Context, env *Env) error {
		created, err := services.NewMonthRoller(env.Session).Roll(ctx, app.Now())
		if err != nil {
			return err
		}
		if len(created) == 0 {
			printInfof(app.Out, "Nothing to create")
			return nil
		}
		for _, key := range created {
			printSuccess(app.Out, "Created %s", key)
		}
		return nil
	})
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
