package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/dotcommander/ocn/internal/adapter"
)

// Stream subscribes to the server's /event SSE endpoint and reconnects with
// exponential backoff whenever the stream ends or fails.
type Stream struct {
	URL    string
	Client *http.Client
	// NewBackOff builds the reconnect policy. Defaults to DefaultBackOff.
	NewBackOff func() backoff.BackOff
	Logger     *slog.Logger
}

// DefaultBackOff retries forever, from 500ms up to 30s between attempts.
func DefaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0
	return b
}

// Name implements Source.
func (s *Stream) Name() string { return "stream" }

// Run streams events until ctx is canceled, which is the only way it returns nil.
func (s *Stream) Run(ctx context.Context, handle Handler) error {
	log := s.Logger
	if log == nil {
		log = slog.Default()
	}
	newBackOff := s.NewBackOff
	if newBackOff == nil {
		newBackOff = DefaultBackOff
	}
	b := backoff.WithContext(newBackOff(), ctx)

	for {
		connected, err := s.subscribe(ctx, log, handle)
		if ctx.Err() != nil {
			return nil
		}
		if connected {
			b.Reset()
		}

		wait := b.NextBackOff()
		if wait == backoff.Stop {
			if err == nil {
				err = errors.New("event stream closed")
			}
			return fmt.Errorf("event stream gave up: %w", err)
		}
		log.Warn("event stream disconnected, reconnecting", "url", s.URL, "in", wait, "error", err)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// subscribe runs one connection. connected reports whether the server
// accepted the subscription, so the backoff can be reset.
func (s *Stream) subscribe(ctx context.Context, log *slog.Logger, handle Handler) (connected bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, EventURL(s.URL), nil)
	if err != nil {
		return false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return false, fmt.Errorf("connect: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("unexpected status %s", resp.Status)
	}
	log.Debug("event stream connected", "url", s.URL)

	err = readSSE(resp.Body, func(data string) {
		ev, decodeErr := adapter.DecodeRawEvent([]byte(data))
		if decodeErr != nil {
			log.Debug("skipping malformed stream event", "error", decodeErr)
			return
		}
		handle(ctx, ev)
	})
	return true, err
}

// EventURL returns the SSE endpoint for a server base URL.
func EventURL(base string) string {
	return strings.TrimRight(base, "/") + "/event"
}

// readSSE parses a text/event-stream body and calls emit with the data of
// each event. Multi-line data is joined with "\n"; comments and other fields
// are ignored. A final event without a trailing blank line is dropped, as the
// format requires.
func readSSE(r io.Reader, emit func(data string)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var (
		data    strings.Builder
		hasData bool
	)
	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")

		if line == "" {
			if hasData {
				emit(data.String())
			}
			data.Reset()
			hasData = false
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		if field != "data" {
			continue
		}
		if hasData {
			data.WriteByte('\n')
		}
		data.WriteString(value)
		hasData = true
	}
	return scanner.Err()
}
