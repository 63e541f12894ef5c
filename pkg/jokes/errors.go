package jokes

import "fmt"

// ClientError is returned once every attempt of a request has failed.
type ClientError struct {
	Attempts int
	Err      error
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("failed to fetch jokes after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ClientError) Unwrap() error { return e.Err }

// ValidationError reports the first structural check a joke record failed.
type ValidationError struct {
	Condition string
	Message   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s (%s)", e.Message, e.Condition)
}

func failed(condition, message string) error {
	return &ValidationError{Condition: condition, Message: message}
}
