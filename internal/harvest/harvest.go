package harvest

import (
	"context"
	"errors"
	"fmt"

	"github.com/samvad-hq/samvad-joke-harvester/internal/domain"
	"github.com/samvad-hq/samvad-joke-harvester/internal/logger"
	"github.com/samvad-hq/samvad-joke-harvester/pkg/jokes"
	"github.com/samvad-hq/samvad-joke-harvester/pkg/publishers"
)

// Summary describes the outcome of one harvest pass.
type Summary struct {
	Endpoint  string
	Fetched   int
	Fresh     int
	Published int
}

// Service runs harvest passes: fetch, validate, dedupe, publish, mark.
type Service struct {
	fetcher   JokeFetcher
	publisher EventPublisher
	dedupe    Deduper
	log       logger.Logger
}

// NewService wires a harvest service. A nil deduper treats every joke as fresh.
func NewService(fetcher JokeFetcher, pub EventPublisher, log logger.Logger, dedupe Deduper) *Service {
	if log == nil {
		log = &logger.NopLogger{}
	}
	return &Service{
		fetcher:   fetcher,
		publisher: pub,
		dedupe:    dedupe,
		log:       log,
	}
}

// Run executes one pass against endpoint. Invalid responses fail the whole
// pass; publish failures are collected and joined.
func (s *Service) Run(ctx context.Context, endpoint string) (Summary, error) {
	summary := Summary{Endpoint: endpoint}
	if s == nil || s.fetcher == nil || s.publisher == nil {
		return summary, fmt.Errorf("harvest service is not initialized")
	}

	records, err := s.fetcher.Fetch(ctx, endpoint)
	if err != nil {
		return summary, fmt.Errorf("fetch %s jokes: %w", endpoint, err)
	}
	summary.Fetched = len(records)

	if err := jokes.ValidateJokes(records, jokes.ExpectedCount(endpoint)); err != nil {
		return summary, fmt.Errorf("validate %s jokes: %w", endpoint, err)
	}
	batch, err := jokes.ToJokes(records)
	if err != nil {
		return summary, fmt.Errorf("convert %s jokes: %w", endpoint, err)
	}

	fresh := s.filterFresh(batch)
	summary.Fresh = len(fresh)

	var errs []error
	for _, joke := range fresh {
		select {
		case <-ctx.Done():
			return summary, errors.Join(errs...)
		default:
		}

		if err := s.publish(ctx, endpoint, joke); err != nil {
			errs = append(errs, err)
			continue
		}
		summary.Published++
	}

	s.log.InfoObj("harvest pass completed", "harvest_result", map[string]any{
		"endpoint":  endpoint,
		"fetched":   summary.Fetched,
		"fresh":     summary.Fresh,
		"published": summary.Published,
		"failed":    len(errs),
	})
	return summary, errors.Join(errs...)
}

// publish delivers one joke and marks it seen once at least one sink accepted it.
func (s *Service) publish(ctx context.Context, endpoint string, joke domain.Joke) error {
	delivered, err := s.publisher.Publish(ctx, publishers.NewEvent(endpoint, joke))
	if delivered > 0 && s.dedupe != nil {
		if markErr := s.dedupe.MarkJoke(joke.ID); markErr != nil {
			s.log.WarnObj("joke mark failed", "dedupe_error", map[string]any{
				"joke_id": joke.ID,
				"error":   markErr.Error(),
			})
		}
	}
	if err != nil {
		s.log.ErrorObj("joke publish failed", "publish_error", map[string]any{
			"joke_id":   joke.ID,
			"delivered": delivered,
			"error":     err.Error(),
		})
		return fmt.Errorf("publish joke %d: %w", joke.ID, err)
	}
	return nil
}

// filterFresh drops jokes the deduper has seen and repeated ids within the batch.
// Lookup errors keep the joke so a broken store never silences the harvester.
func (s *Service) filterFresh(batch []domain.Joke) []domain.Joke {
	out := make([]domain.Joke, 0, len(batch))
	inBatch := make(map[int64]struct{}, len(batch))
	for _, joke := range batch {
		if _, dup := inBatch[joke.ID]; dup {
			continue
		}
		inBatch[joke.ID] = struct{}{}

		if s.dedupe != nil {
			seen, err := s.dedupe.SeenJoke(joke.ID)
			if err != nil {
				s.log.WarnObj("joke dedupe lookup failed", "dedupe_error", map[string]any{
					"joke_id": joke.ID,
					"error":   err.Error(),
				})
			} else if seen {
				continue
			}
		}
		out = append(out, joke)
	}
	return out
}
