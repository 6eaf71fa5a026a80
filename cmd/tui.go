package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spotmirror/spotmirror/internal/shared"
	"github.com/spotmirror/spotmirror/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal UI over the local mirror.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd.String("config"))

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/spotmirror-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	if err := r.ensureEngine(); err != nil {
		return err
	}

	model := ui.NewModel(ctx, r.engine, r.cache, r.queue)
	defer model.Close()
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
