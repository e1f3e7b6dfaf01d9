package main

import (
	"context"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"tessel/internal/driver"
	"tessel/internal/ui"
)

type checkOutcome struct {
	results []driver.FileResult
	err     error
}

// runCheckWithUI checks files while a progress view renders their events.
func runCheckWithUI(ctx context.Context, out io.Writer, files []string, opts driver.Options) ([]driver.FileResult, error) {
	events := make(chan driver.PhaseEvent, 256)
	outcomeCh := make(chan checkOutcome, 1)

	go func() {
		o := opts
		o.Observer = func(ev driver.PhaseEvent) { events <- ev }
		res, err := driver.CheckFiles(ctx, files, o)
		outcomeCh <- checkOutcome{results: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel("checking", files, events)
	program := tea.NewProgram(model, tea.WithOutput(out), tea.WithInput(nil))
	_, uiErr := program.Run()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.results, uiErr
	}
	return outcome.results, outcome.err
}
