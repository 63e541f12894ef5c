package harvest

import (
	"context"

	"github.com/samvad-hq/samvad-joke-harvester/pkg/publishers"
)

// JokeFetcher retrieves the decoded joke array for a named endpoint.
type JokeFetcher interface {
	Fetch(ctx context.Context, endpoint string) ([]any, error)
}

// EventPublisher publishes joke events downstream and reports how many sinks accepted them.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}

// Deduper remembers delivered joke ids.
type Deduper interface {
	SeenJoke(id int64) (bool, error)
	MarkJoke(id int64) error
}
