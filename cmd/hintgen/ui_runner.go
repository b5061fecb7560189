package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"hintgen/internal/driver"
	"hintgen/internal/metrics"
	"hintgen/internal/ui"
)

type batchOutcome struct {
	results []driver.Result
	summary driver.Summary
	err     error
}

// runBatchWithUI runs the batch in the background while a progress view
// follows its events.
func runBatchWithUI(ctx context.Context, title string, h driver.Hinter, files []string, opts driver.BatchOptions) ([]driver.Result, driver.Summary, error) {
	events := make(chan driver.Event, 256)
	outcomeCh := make(chan batchOutcome, 1)

	go func() {
		o := opts
		o.Sink = metrics.Tee{opts.Sink, driver.ChannelSink{Ch: events}}
		res, sum, err := driver.Batch(ctx, h, files, o)
		outcomeCh <- batchOutcome{results: res, summary: sum, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, files, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout), tea.WithContext(ctx))
	_, uiErr := program.Run()
	// the view may quit early; keep the batch from blocking on a full channel
	go func() {
		for range events {
		}
	}()
	outcome := <-outcomeCh
	if uiErr != nil && outcome.err == nil {
		return outcome.results, outcome.summary, uiErr
	}
	return outcome.results, outcome.summary, outcome.err
}
