package driver

import (
	"time"

	"hintgen/internal/hint"
)

// Status captures the progress of one submission.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusWorking Status = "working"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// Event reports progress for a file, or for the whole batch when File is empty.
type Event struct {
	File    string
	Status  Status
	Outcome hint.Outcome
	Err     error
	Elapsed time.Duration
}

// Sink consumes progress events. OnEvent may be called from several goroutines.
type Sink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

func (f SinkFunc) OnEvent(evt Event) { f(evt) }

func emit(s Sink, evt Event) {
	if s != nil {
		s.OnEvent(evt)
	}
}
