package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/meetingbaas/settings/internal/formatter"
	"github.com/meetingbaas/settings/internal/models"
	"github.com/meetingbaas/settings/internal/repositories"
	"github.com/meetingbaas/settings/internal/services"
	"github.com/meetingbaas/settings/internal/shared"
	"github.com/meetingbaas/settings/internal/tasks"
	"github.com/urfave/cli/v3"
)

// PrefsShow prints the current preferences grouped by domain.
func (r *Runner) PrefsShow(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.preferenceEngine(ctx)
	if err != nil {
		return err
	}

	catalog := engine.Catalog()
	if d := cmd.String("domain"); d != "" {
		domain, err := models.ParseDomain(d)
		if err != nil {
			return err
		}
		catalog = catalog.ByDomain(domain)
	}

	export := formatter.NewExport(r.config.Account.ID, catalog, engine.Snapshot())
	format := formatter.FormatText
	if cmd.Bool("json") {
		format = formatter.FormatJSON
	}

	data, err := formatter.Render(export, format)
	if err != nil {
		return err
	}
	_, err = r.output.Write(data)
	return err
}

// PrefsSet changes one email type. Unsubscribing asks for confirmation first.
func (r *Runner) PrefsSet(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: email type id", shared.ErrMissingArgument)
	}

	f, err := models.ParseFrequency(cmd.StringArg("frequency"))
	if err != nil {
		return err
	}

	engine, machine, err := r.machine(ctx)
	if err != nil {
		return err
	}

	if f == models.FrequencyNone {
		if _, err := machine.RequestItem(id); err != nil {
			return err
		}
		return r.confirm(ctx, cmd, machine)
	}

	if err := engine.SetFrequency(ctx, id, f); err != nil {
		return err
	}

	item, _ := engine.Catalog().Find(id)
	return r.writePlain("✓ %s: %s\n", item.Name, f.Label())
}

// PrefsService changes every optional email type in a domain.
func (r *Runner) PrefsService(ctx context.Context, cmd *cli.Command) error {
	domain, err := models.ParseDomain(cmd.StringArg("domain"))
	if err != nil {
		return err
	}

	f, err := models.ParseFrequency(cmd.StringArg("frequency"))
	if err != nil {
		return err
	}

	engine, machine, err := r.machine(ctx)
	if err != nil {
		return err
	}

	if f == models.FrequencyNone {
		if _, err := machine.RequestService(domain); err != nil {
			return err
		}
		return r.confirm(ctx, cmd, machine)
	}

	if err := engine.SetServiceFrequency(ctx, domain, f); err != nil {
		return err
	}
	return r.writePlain("✓ %s: %s\n", domain.Config().Name, engine.DomainFrequency(domain).Label())
}

// PrefsResend resends the latest issue of one email type, or of every eligible type with --all.
func (r *Runner) PrefsResend(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.preferenceEngine(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("all") {
		return r.resendAll(ctx, cmd, engine)
	}

	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: email type id or --all", shared.ErrMissingArgument)
	}

	item, ok := engine.Catalog().Find(id)
	if !ok {
		return fmt.Errorf("%w: %s", shared.ErrUnknownEmailType, id)
	}
	if !item.CanResend() {
		return fmt.Errorf("%w: %s cannot be resent", shared.ErrInvalidInput, item.Name)
	}

	if err := engine.Resend(ctx, id); err != nil {
		var limited *services.RateLimitedError
		if errors.As(err, &limited) {
			r.logger.Warn("resend rate limited", "id", id, "retry_after", limited.RetryAfter)
			return r.writePlain("Too many requests, try again in %s\n", retryIn(limited.RetryAfter))
		}
		return err
	}
	return r.writePlain("✓ Resent the latest %s\n", item.Name)
}

func (r *Runner) resendAll(ctx context.Context, cmd *cli.Command, engine *tasks.PreferenceEngine) error {
	result, err := engine.ResendAll(ctx, nil, tasks.BulkResendOpts{
		NumWorkers: cmd.Int("workers"),
		RateLimit:  cmd.Float("rate"),
	})
	if err != nil && result == nil {
		return err
	}

	r.writePlainHeader("Resend")
	for _, res := range result.Results {
		switch {
		case res.Error == nil:
			r.writePlain("✓ %-28s %s\n", res.ID, res.Frequency.Label())
		case errors.Is(res.Error, shared.ErrRateLimited):
			r.writePlain("… %-28s rate limited\n", res.ID)
		default:
			r.writePlain("✗ %-28s %v\n", res.ID, res.Error)
		}
	}
	r.writePlainln("Succeeded: %d  Failed: %d  Rate limited: %d", result.Succeeded, result.Failed, result.RateLimited)
	return err
}

// PrefsUnsubscribe applies an unsubscribe link from an email.
func (r *Runner) PrefsUnsubscribe(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: email type id", shared.ErrMissingArgument)
	}

	_, machine, err := r.machine(ctx)
	if err != nil {
		return err
	}

	if _, err := machine.RequestToken(id, cmd.String("token")); err != nil {
		return err
	}
	return r.confirm(ctx, cmd, machine)
}

// PrefsExport writes the current preferences to a file.
func (r *Runner) PrefsExport(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	engine, err := r.preferenceEngine(ctx)
	if err != nil {
		return err
	}

	export := formatter.NewExport(r.config.Account.ID, engine.Catalog(), engine.Snapshot())
	path, err := formatter.WriteExport(export, format, cmd.String("output"))
	if err != nil {
		return err
	}

	r.logger.Info("preferences exported", "path", path, "format", format)
	return r.writePlain("✓ Exported to %s\n", path)
}

// PrefsHistory lists the local audit log of preference changes.
func (r *Runner) PrefsHistory(ctx context.Context, cmd *cli.Command) error {
	db, err := r.database()
	if err != nil {
		return err
	}

	changes, err := repositories.NewChangeRepository(db).List(map[string]any{
		"account":       r.config.Account.ID,
		"email_type_id": cmd.String("id"),
		"limit":         cmd.Int("limit"),
	})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		if changes == nil {
			changes = []*models.ChangeRecord{}
		}
		return r.writeJSON(changes, true)
	}

	if len(changes) == 0 {
		return r.writePlain("No changes recorded\n")
	}

	r.writePlainHeader("History")
	for _, c := range changes {
		r.writePlain("%s  %-28s %-8s → %-8s %-8s %s\n",
			c.Created.Local().Format(time.DateTime), c.EmailTypeID,
			c.Previous.Label(), c.Next.Label(), c.Source, c.Status)
	}
	return nil
}

// PrefsApply reads a JSON object of id to frequency and applies it through the batch endpoint.
func (r *Runner) PrefsApply(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: snapshot file", shared.ErrMissingArgument)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}

	var desired models.Snapshot
	if err := json.Unmarshal(data, &desired); err != nil {
		return fmt.Errorf("%w: snapshot is not valid JSON: %v", shared.ErrInvalidInput, err)
	}

	engine, err := r.preferenceEngine(ctx)
	if err != nil {
		return err
	}

	if err := engine.ApplySnapshot(ctx, desired); err != nil {
		return err
	}
	return r.writePlain("✓ Applied %d preferences\n", len(desired))
}

func retryIn(at time.Time) string {
	d := time.Until(at).Round(time.Second)
	if d < time.Second {
		d = time.Second
	}
	return d.String()
}
