package publishers

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/samvad-hq/samvad-joke-harvester/internal/domain"
)

// Event represents the payload published downstream.
type Event struct {
	EventID     string      `json:"event_id"`
	Source      string      `json:"source"`
	Joke        domain.Joke `json:"joke"`
	CollectedAt time.Time   `json:"collected_at"`
}

// NewEvent constructs an Event for a joke fetched from the named endpoint.
func NewEvent(source string, joke domain.Joke) Event {
	return Event{
		EventID:     uuid.NewString(),
		Source:      source,
		Joke:        joke,
		CollectedAt: time.Now().UTC(),
	}
}

// attributes returns the routing attributes attached by queue/topic publishers.
func (e Event) attributes() map[string]string {
	return map[string]string{
		"event_id":  e.EventID,
		"joke_id":   strconv.FormatInt(e.Joke.ID, 10),
		"joke_type": e.Joke.Type,
		"source":    e.Source,
	}
}
