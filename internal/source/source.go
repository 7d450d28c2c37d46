// Package source feeds raw host events into a handler, either from the
// bridge plugin's JSON lines or from the server's SSE event stream.
package source

import (
	"context"

	"github.com/dotcommander/ocn/internal/adapter"
)

// Handler receives raw events one at a time, in arrival order.
type Handler func(ctx context.Context, ev adapter.RawEvent)

// Source produces raw events until its input ends or ctx is canceled.
type Source interface {
	Name() string
	Run(ctx context.Context, handle Handler) error
}
