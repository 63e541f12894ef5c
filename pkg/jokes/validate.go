package jokes

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
	"github.com/samvad-hq/samvad-joke-harvester/internal/domain"
)

var requiredJokeKeys = []string{"id", "type", "setup", "punchline"}

// structValidator is safe for concurrent use and caches struct metadata.
var structValidator = validator.New(validator.WithRequiredStructEnabled())

// ValidateJokeStructure checks that joke is a decoded joke record with every
// required field, the programming type and non-empty setup/punchline strings.
// It returns a *ValidationError describing the first failed check.
func ValidateJokeStructure(joke any) error {
	rec, ok := asRecord(joke)
	if !ok {
		return failed("joke is a structured record", "Joke should be a dictionary")
	}
	for _, key := range requiredJokeKeys {
		if _, ok := rec[key]; !ok {
			return failed("joke has id, type, setup and punchline", "Joke missing required fields")
		}
	}
	if typ, ok := rec["type"].(string); !ok || typ != domain.JokeTypeProgramming {
		return failed("type == \"programming\"", "Joke type should be 'programming'")
	}

	setup, ok := rec["setup"].(string)
	if !ok {
		return failed("setup is a string", "Setup should be a string")
	}
	punchline, ok := rec["punchline"].(string)
	if !ok {
		return failed("punchline is a string", "Punchline should be a string")
	}
	if len(setup) == 0 {
		return failed("len(setup) > 0", "Setup should not be empty")
	}
	if len(punchline) == 0 {
		return failed("len(punchline) > 0", "Punchline should not be empty")
	}
	return nil
}

// ValidateJokes checks the number of records (skipped when want < 0) and the
// structure of every record.
func ValidateJokes(records []any, want int) error {
	if want >= 0 && len(records) != want {
		msg := fmt.Sprintf("Should return exactly %d jokes", want)
		if want == 1 {
			msg = "Should return exactly one joke"
		}
		return failed(fmt.Sprintf("len(jokes) == %d, got %d", want, len(records)), msg)
	}
	for i, rec := range records {
		if err := ValidateJokeStructure(rec); err != nil {
			return fmt.Errorf("joke[%d]: %w", i, err)
		}
	}
	return nil
}

// ToJoke validates a decoded record and converts it to a domain.Joke.
func ToJoke(joke any) (domain.Joke, error) {
	if err := ValidateJokeStructure(joke); err != nil {
		return domain.Joke{}, err
	}
	rec, _ := asRecord(joke)

	id, ok := toInt64(rec["id"])
	if !ok {
		return domain.Joke{}, failed("id is an integer", "Joke id should be an integer")
	}

	out := domain.Joke{
		ID:        id,
		Type:      rec["type"].(string),
		Setup:     rec["setup"].(string),
		Punchline: rec["punchline"].(string),
	}
	if err := ValidateJoke(out); err != nil {
		return domain.Joke{}, err
	}
	return out, nil
}

// ToJokes converts every record, naming the index of the first bad one.
func ToJokes(records []any) ([]domain.Joke, error) {
	out := make([]domain.Joke, 0, len(records))
	for i, rec := range records {
		j, err := ToJoke(rec)
		if err != nil {
			return nil, fmt.Errorf("joke[%d]: %w", i, err)
		}
		out = append(out, j)
	}
	return out, nil
}

// ValidateJoke runs the struct tag rules of domain.Joke.
func ValidateJoke(j domain.Joke) error {
	err := structValidator.Struct(j)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	fe := fieldErrs[0]
	switch fe.Field() {
	case "Type":
		return failed("type == \"programming\"", "Joke type should be 'programming'")
	case "Setup":
		return failed("len(setup) > 0", "Setup should not be empty")
	case "Punchline":
		return failed("len(punchline) > 0", "Punchline should not be empty")
	default:
		return failed(fe.Tag(), fmt.Sprintf("%s failed validation", fe.Field()))
	}
}

func asRecord(v any) (Record, bool) {
	switch rec := v.(type) {
	case Record:
		return rec, true
	case map[string]any:
		return Record(rec), true
	default:
		return nil, false
	}
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case float64:
		// float64(1<<63) is exact; anything at or past it overflows int64.
		if n != math.Trunc(n) || n < -(1<<63) || n >= 1<<63 {
			return 0, false
		}
		return int64(n), true
	case int:
		return int64(n), true
	case int64:
		return n, true
	case int32:
		return int64(n), true
	default:
		return 0, false
	}
}
