package jokes

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samvad-hq/samvad-joke-harvester/pkg/httpclient"
)

type step struct {
	status int
	body   string
	err    error
}

type fakeResponse struct {
	status int
	body   []byte
}

func (r fakeResponse) Body() []byte    { return r.body }
func (r fakeResponse) StatusCode() int { return r.status }
func (r fakeResponse) IsSuccess() bool { return r.status >= 200 && r.status < 300 }

// scriptedTransport replays steps in order and repeats the last one.
type scriptedTransport struct {
	mu    sync.Mutex
	steps []step
	urls  []string
}

func (s *scriptedTransport) Get(_ context.Context, url string, _ map[string]string) (httpclient.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := len(s.urls)
	s.urls = append(s.urls, url)
	if idx >= len(s.steps) {
		idx = len(s.steps) - 1
	}
	st := s.steps[idx]
	if st.err != nil {
		return nil, st.err
	}
	return fakeResponse{status: st.status, body: []byte(st.body)}, nil
}

func (s *scriptedTransport) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.urls)
}

func jokeJSON(id int) string {
	return fmt.Sprintf(`{"id":%d,"type":"programming","setup":"setup %d","punchline":"punchline %d"}`, id, id, id)
}

func jokesJSON(n int) string {
	parts := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		parts = append(parts, jokeJSON(i))
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// newScriptedClient returns a client over transport whose pauses are recorded instead of slept.
func newScriptedClient(cfg Config, transport *scriptedTransport) (*Client, *[]time.Duration) {
	client := NewClient(cfg, transport, nil)
	var delays []time.Duration
	client.sleep = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	return client, &delays
}

func jokeServer(t *testing.T, calls *atomic.Int32, handle http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handle(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGetRandomJokeReturnsSingleValidJoke(t *testing.T) {
	var calls atomic.Int32
	srv := jokeServer(t, &calls, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, RandomJokePath, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(jokesJSON(1)))
	})

	client := NewClient(Config{BaseURL: srv.URL, Timeout: 2 * time.Second}, nil, nil)
	jokes, err := client.GetRandomJoke(context.Background())

	require.NoError(t, err)
	require.Len(t, jokes, 1)
	assert.NoError(t, ValidateJokeStructure(jokes[0]))
	assert.NoError(t, ValidateJokes(jokes, ExpectedCount(EndpointRandom)))
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetTenJokesReturnsTenValidJokes(t *testing.T) {
	var calls atomic.Int32
	srv := jokeServer(t, &calls, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, TenJokesPath, r.URL.Path)
		_, _ = w.Write([]byte(jokesJSON(10)))
	})

	client := NewClient(Config{BaseURL: srv.URL + "/", Timeout: 2 * time.Second}, nil, nil)
	jokes, err := client.GetTenJokes(context.Background())

	require.NoError(t, err)
	require.Len(t, jokes, 10)
	for _, joke := range jokes {
		assert.NoError(t, ValidateJokeStructure(joke))
	}
}

func TestRequestRetriesTransientFailuresThenSucceeds(t *testing.T) {
	transport := &scriptedTransport{steps: []step{
		{err: errors.New("connection reset")},
		{status: http.StatusServiceUnavailable, body: "busy"},
		{status: http.StatusOK, body: jokesJSON(1)},
	}}
	client, delays := newScriptedClient(Config{MaxRetries: 3, RetryDelay: 2 * time.Second}, transport)

	jokes, err := client.GetRandomJoke(context.Background())

	require.NoError(t, err)
	assert.Len(t, jokes, 1)
	assert.Equal(t, 3, transport.calls())
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, *delays)
}

func TestRequestFailsAfterExhaustingRetries(t *testing.T) {
	transport := &scriptedTransport{steps: []step{
		{err: errors.New("dial tcp: connection refused")},
		{status: http.StatusBadGateway},
		{err: errors.New("i/o timeout")},
		{err: errors.New("no route to host")},
		{status: http.StatusOK, body: jokesJSON(1)},
	}}
	client, delays := newScriptedClient(Config{MaxRetries: 3, RetryDelay: time.Second}, transport)

	jokes, err := client.GetTenJokes(context.Background())

	assert.Nil(t, jokes)
	var clientErr *ClientError
	require.ErrorAs(t, err, &clientErr)
	assert.Equal(t, 4, clientErr.Attempts)
	assert.Equal(t, 4, transport.calls())
	assert.Len(t, *delays, 3)
	assert.Contains(t, err.Error(), "failed to fetch jokes after 4 attempts")
	assert.Contains(t, err.Error(), "no route to host")
}

func TestRequestWithZeroRetriesMakesSingleAttempt(t *testing.T) {
	transport := &scriptedTransport{steps: []step{{err: errors.New("boom")}}}
	client, delays := newScriptedClient(Config{MaxRetries: 0}, transport)

	_, err := client.GetRandomJoke(context.Background())

	var clientErr *ClientError
	require.ErrorAs(t, err, &clientErr)
	assert.Equal(t, 1, clientErr.Attempts)
	assert.Equal(t, 1, transport.calls())
	assert.Empty(t, *delays)
}

func TestRequestRetriesUndecodableBody(t *testing.T) {
	transport := &scriptedTransport{steps: []step{
		{status: http.StatusOK, body: "<html>maintenance</html>"},
		{status: http.StatusOK, body: jokesJSON(1)},
	}}
	client, _ := newScriptedClient(Config{MaxRetries: 1}, transport)

	jokes, err := client.GetRandomJoke(context.Background())

	require.NoError(t, err)
	assert.Len(t, jokes, 1)
	assert.Equal(t, 2, transport.calls())
}

func TestRequestReturnsNonObjectElementsForValidation(t *testing.T) {
	transport := &scriptedTransport{steps: []step{
		{status: http.StatusOK, body: "[" + jokeJSON(1) + `,"oops"]`},
	}}
	client, delays := newScriptedClient(Config{MaxRetries: 3, RetryDelay: time.Second}, transport)

	jokes, err := client.GetRandomJoke(context.Background())

	require.NoError(t, err)
	require.Len(t, jokes, 2)
	assert.Equal(t, "oops", jokes[1])
	assert.Equal(t, 1, transport.calls())
	assert.Empty(t, *delays)

	err = ValidateJokeStructure(jokes[1])
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "Joke should be a dictionary", validationErr.Message)
}

func TestRequestRejectsTrailingDataAfterArray(t *testing.T) {
	transport := &scriptedTransport{steps: []step{
		{status: http.StatusOK, body: jokesJSON(1) + " <html>garbage</html>"},
	}}
	client, _ := newScriptedClient(Config{MaxRetries: 0}, transport)

	_, err := client.GetRandomJoke(context.Background())

	var clientErr *ClientError
	require.ErrorAs(t, err, &clientErr)
	assert.ErrorIs(t, err, errTrailingData)
	assert.Equal(t, 1, transport.calls())
}

func TestRequestAcceptsTrailingWhitespace(t *testing.T) {
	transport := &scriptedTransport{steps: []step{{status: http.StatusOK, body: jokesJSON(1) + "\n  \n"}}}
	client, _ := newScriptedClient(Config{MaxRetries: 0}, transport)

	jokes, err := client.GetRandomJoke(context.Background())

	require.NoError(t, err)
	assert.Len(t, jokes, 1)
}

func TestRequestRetriesNonArrayBodies(t *testing.T) {
	for _, body := range []string{"null", jokeJSON(1), `"text"`} {
		transport := &scriptedTransport{steps: []step{
			{status: http.StatusOK, body: body},
			{status: http.StatusOK, body: jokesJSON(1)},
		}}
		client, delays := newScriptedClient(Config{MaxRetries: 1, RetryDelay: time.Second}, transport)

		jokes, err := client.GetRandomJoke(context.Background())

		require.NoError(t, err, "body %s", body)
		assert.Len(t, jokes, 1, "body %s", body)
		assert.Equal(t, 2, transport.calls(), "body %s", body)
		assert.Len(t, *delays, 1, "body %s", body)
	}
}

func TestNullBodyFailsWithoutRetries(t *testing.T) {
	transport := &scriptedTransport{steps: []step{{status: http.StatusOK, body: "null"}}}
	client, _ := newScriptedClient(Config{MaxRetries: 0}, transport)

	jokes, err := client.GetTenJokes(context.Background())

	assert.Nil(t, jokes)
	assert.ErrorIs(t, err, errNotArray)
}

func TestRequestStopsWhenContextCancelledDuringDelay(t *testing.T) {
	transport := &scriptedTransport{steps: []step{{err: errors.New("boom")}}}
	client := NewClient(Config{MaxRetries: 5, RetryDelay: time.Hour}, transport, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.GetRandomJoke(ctx)

	var clientErr *ClientError
	require.ErrorAs(t, err, &clientErr)
	assert.Equal(t, 1, clientErr.Attempts)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, transport.calls())
}

func TestRequestRetriesAgainstServerWithRealDelay(t *testing.T) {
	var calls atomic.Int32
	srv := jokeServer(t, &calls, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Load() <= 2 {
			http.Error(w, "try later", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(jokesJSON(10)))
	})

	client := NewClient(Config{BaseURL: srv.URL, Timeout: time.Second, MaxRetries: 3, RetryDelay: 10 * time.Millisecond}, nil, nil)
	start := time.Now()
	jokes, err := client.Fetch(context.Background(), EndpointTen)

	require.NoError(t, err)
	assert.Len(t, jokes, 10)
	assert.Equal(t, int32(3), calls.Load())
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestFetchRejectsUnknownEndpoint(t *testing.T) {
	transport := &scriptedTransport{steps: []step{{status: http.StatusOK, body: "[]"}}}
	client := NewClient(DefaultConfig(), transport, nil)

	_, err := client.Fetch(context.Background(), "hundred")

	require.Error(t, err)
	assert.Equal(t, 0, transport.calls())
}

func TestFetchBuildsEndpointURLs(t *testing.T) {
	transport := &scriptedTransport{steps: []step{{status: http.StatusOK, body: "[]"}}}
	client := NewClient(Config{BaseURL: "https://jokes.example/"}, transport, nil)

	_, err := client.Fetch(context.Background(), " RANDOM ")
	require.NoError(t, err)
	_, err = client.Fetch(context.Background(), EndpointTen)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"https://jokes.example" + RandomJokePath,
		"https://jokes.example" + TenJokesPath,
	}, transport.urls)
}

func TestNewClientNormalizesConfig(t *testing.T) {
	client := NewClient(Config{Timeout: -1, MaxRetries: -2, RetryDelay: -time.Second}, &scriptedTransport{}, nil)

	cfg := client.Config()
	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Equal(t, 0, cfg.MaxRetries)
	assert.Equal(t, time.Duration(0), cfg.RetryDelay)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 2*time.Second, cfg.RetryDelay)
}
