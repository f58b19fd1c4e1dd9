package main

import (
	"context"
	"fmt"

	"github.com/meetingbaas/settings/internal/models"
	"github.com/meetingbaas/settings/internal/shared"
	"github.com/urfave/cli/v3"
)

// Open opens the dashboard's email preferences page, optionally as an unsubscribe deep link.
func (r *Runner) Open(ctx context.Context, cmd *cli.Command) error {
	domain := cmd.StringArg("domain")
	if domain != "" {
		if _, err := models.ParseDomain(domain); err != nil {
			return err
		}
	}

	unsubscribeID := cmd.String("unsubscribe")
	token := cmd.String("token")
	if token != "" && unsubscribeID == "" {
		return fmt.Errorf("%w: --token requires --unsubscribe", shared.ErrInvalidArgument)
	}

	url, err := shared.PreferencesURL(r.config.Account.DashboardURL, domain, unsubscribeID, token)
	if err != nil {
		return err
	}

	if cmd.Bool("print") {
		return r.writePlain("%s\n", url)
	}

	r.logger.Info("opening browser", "url", url)
	if err := shared.OpenBrowser(url); err != nil {
		r.logger.Warn("could not open browser", "error", err)
		return r.writePlain("Open this URL in your browser:\n%s\n", url)
	}
	return nil
}
