package publishers

import "context"

// logPublisher writes every event to the application log.
type logPublisher struct {
	id  string
	log Logger
}

func newLogPublisher(_ context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	return &logPublisher{id: cfg.ID, log: ensureLogger(log)}, nil
}

func (l *logPublisher) ID() string   { return l.id }
func (l *logPublisher) Type() string { return TypeLog }
func (l *logPublisher) Close() error { return nil }

func (l *logPublisher) Publish(_ context.Context, evt Event) error {
	l.log.InfoObj("joke harvested", "joke_event", evt)
	return nil
}
