// Package jokes is a client for the official joke API.
//
// The client issues GET requests against two fixed endpoints (one random
// programming joke, ten programming jokes), retries transient failures with a
// fixed delay and returns the decoded records untouched so callers can check
// their shape with ValidateJokeStructure before converting them to domain.Joke.
package jokes
