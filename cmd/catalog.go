package main

import (
	"context"
	"strings"
	"time"

	"github.com/meetingbaas/settings/internal/models"
	"github.com/urfave/cli/v3"
)

// CatalogList prints the email type catalog, served from the cache when fresh.
func (r *Runner) CatalogList(ctx context.Context, cmd *cli.Command) error {
	c, err := r.catalogCache(ctx)
	if err != nil {
		return err
	}

	catalog, err := c.Get(ctx)
	if err != nil {
		return err
	}

	if d := cmd.String("domain"); d != "" {
		domain, err := models.ParseDomain(d)
		if err != nil {
			return err
		}
		catalog = catalog.ByDomain(domain)
	}

	if cmd.Bool("json") {
		return r.writeJSON(catalog, true)
	}

	if at, ok := c.CachedAt(ctx); ok {
		r.writePlainHeader("Email types (cached " + at.Local().Format(time.DateTime) + ")")
	} else {
		r.writePlainHeader("Email types")
	}

	current := models.Domain("")
	for _, item := range catalog {
		if item.Domain != current {
			current = item.Domain
			r.writePlainln("%s", current.Config().Name)
		}

		flags := []string{}
		if item.Required {
			flags = append(flags, "required")
		}
		if item.CanResend() {
			flags = append(flags, "resend")
		}
		line := "  %-28s %-30s %s"
		args := []any{item.ID, item.Name, joinLabels(item.Frequencies)}
		if len(flags) > 0 {
			line += " [%s]"
			args = append(args, strings.Join(flags, ", "))
		}
		r.writePlain(line+"\n", args...)
	}
	return nil
}

// CatalogRefresh drops the cached catalog and fetches it again.
func (r *Runner) CatalogRefresh(ctx context.Context, cmd *cli.Command) error {
	c, err := r.catalogCache(ctx)
	if err != nil {
		return err
	}

	if err := c.Invalidate(ctx); err != nil {
		return err
	}

	catalog, err := c.Get(ctx)
	if err != nil {
		return err
	}

	r.logger.Info("catalog refreshed", "email_types", len(catalog))
	return r.writePlain("✓ Refreshed %d email types\n", len(catalog))
}

func joinLabels(fs []models.Frequency) string {
	labels := make([]string, len(fs))
	for i, f := range fs {
		labels[i] = f.Label()
	}
	return strings.Join(labels, ", ")
}
