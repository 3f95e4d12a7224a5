package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/reelx/internal/shared"
	"github.com/desertthunder/reelx/internal/ui"
)

// TUI launches the interactive terminal UI.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireCatalog(); err != nil {
		return err
	}
	if err := r.requireBackend(); err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering. The stores
	// share this logger, so their output moves too.
	logFile, err := shared.LogFile(r.config.Log.File)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}
	r.logger.SetOutput(logFile)
	r.logger.Info("starting TUI", "session", r.sessions.Current())

	model := ui.NewModel(ctx, ui.Deps{
		Sessions:    r.sessions,
		Watchlist:   r.watchlist,
		Collections: r.collections,
		Settings:    r.settings,
		Feed:        r.feed,
		OpenURL:     r.openURL,
	})
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
