package source

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/dotcommander/ocn/internal/adapter"
)

// maxLineBytes caps a single JSON line. Event payloads are small objects;
// longer lines are skipped whole.
const maxLineBytes = 1 << 20

// Plugin reads one JSON event per line, as written by the bridge plugin.
type Plugin struct {
	Reader io.Reader
	Logger *slog.Logger
}

// Name implements Source.
func (p *Plugin) Name() string { return "plugin" }

// Run delivers every decodable line to handle. Blank, malformed and oversized
// lines are skipped. It returns nil at EOF or as soon as ctx is canceled, even
// while a read is pending; a Reader that is an io.Closer is closed then.
func (p *Plugin) Run(ctx context.Context, handle Handler) error {
	log := p.Logger
	if log == nil {
		log = slog.Default()
	}
	if c, ok := p.Reader.(io.Closer); ok {
		defer func() {
			if ctx.Err() != nil {
				_ = c.Close()
			}
		}()
	}

	lines := make(chan lineResult)
	done := make(chan struct{})
	defer close(done)
	go readLines(bufio.NewReaderSize(p.Reader, 64*1024), lines, done)

	for lineNo := 1; ; lineNo++ {
		var res lineResult
		select {
		case <-ctx.Done():
			return nil
		case res = <-lines:
		}
		if ctx.Err() != nil {
			return nil
		}

		switch {
		case res.tooLong:
			log.Debug("skipping oversized event line", "line", lineNo)
		case len(res.line) > 0:
			p.dispatch(ctx, log, lineNo, res.line, handle)
		}

		if res.err != nil {
			if errors.Is(res.err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read events: %w", res.err)
		}
	}
}

type lineResult struct {
	line    []byte
	tooLong bool
	err     error
}

// readLines feeds out until the first read error or until done is closed.
func readLines(r *bufio.Reader, out chan<- lineResult, done <-chan struct{}) {
	for {
		line, tooLong, err := readLine(r, maxLineBytes)
		select {
		case out <- lineResult{line: line, tooLong: tooLong, err: err}:
		case <-done:
			return
		}
		if err != nil {
			return
		}
	}
}

func (p *Plugin) dispatch(ctx context.Context, log *slog.Logger, lineNo int, line []byte, handle Handler) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return
	}
	ev, err := adapter.DecodeRawEvent(line)
	if err != nil {
		log.Debug("skipping malformed event line", "line", lineNo, "error", err)
		return
	}
	handle(ctx, ev)
}

// readLine returns the next line without its terminator. A line longer than
// limit is consumed entirely and reported with tooLong set.
func readLine(r *bufio.Reader, limit int) (line []byte, tooLong bool, err error) {
	var buf []byte
	for {
		chunk, readErr := r.ReadSlice('\n')
		if !tooLong {
			if len(buf)+len(chunk) > limit+1 {
				tooLong = true
				buf = nil
			} else {
				buf = append(buf, chunk...)
			}
		}

		if errors.Is(readErr, bufio.ErrBufferFull) {
			continue
		}
		if tooLong {
			return nil, true, readErr
		}
		return bytes.TrimRight(buf, "\r\n"), false, readErr
	}
}
