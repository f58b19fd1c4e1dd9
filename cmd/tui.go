package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/meetingbaas/settings/internal/shared"
	"github.com/meetingbaas/settings/internal/tasks"
	"github.com/meetingbaas/settings/internal/ui"
	"github.com/meetingbaas/settings/internal/unsubscribe"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal UI for email preferences.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(r.config.Log.File)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	fileLogger.SetLevel(r.logger.GetLevel())
	r.SetLogger(fileLogger)

	r.progress = make(chan tasks.ProgressUpdate, 16)
	engine, err := r.newEngine(ctx)
	if err != nil {
		return err
	}

	model := ui.NewModel(ctx, engine, unsubscribe.NewMachine(engine), ui.Options{Logger: r.logger, Progress: r.progress})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
