// Package fetchlog records every trust oracle request for the debug
// endpoint. It stores request telemetry only, never response payloads.
package fetchlog

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mbd888/trustboard/internal/logging"
	"github.com/mbd888/trustboard/internal/oracle"
)

// DefaultLimit and MaxLimit bound Recent queries.
const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// Entry is one recorded oracle call.
type Entry struct {
	ID         string    `json:"id"`
	Endpoint   string    `json:"endpoint"`
	Query      string    `json:"query,omitempty"`
	StatusCode int       `json:"status_code,omitempty"`
	Outcome    string    `json:"outcome"`
	DurationMS int64     `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store persists entries.
type Store interface {
	Record(ctx context.Context, e *Entry) error
	// Recent returns up to limit entries, newest first. An empty endpoint
	// matches all.
	Recent(ctx context.Context, endpoint string, limit int) ([]*Entry, error)
}

// FromCall converts an oracle call into an entry.
func FromCall(ctx context.Context, call oracle.Call) *Entry {
	e := &Entry{
		ID:         uuid.NewString(),
		Endpoint:   call.Endpoint,
		Query:      call.Query,
		StatusCode: call.StatusCode,
		Outcome:    call.Outcome,
		DurationMS: call.Duration.Milliseconds(),
		RequestID:  logging.RequestID(ctx),
		CreatedAt:  time.Now().UTC(),
	}
	if call.Err != nil {
		e.Error = call.Err.Error()
	}
	return e
}

// ClampLimit applies the default and maximum to a requested limit.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

// Recorder writes entries on a background goroutine so oracle calls never
// wait on the store. When the buffer is full, entries are dropped.
type Recorder struct {
	store  Store
	ch     chan *Entry
	logger *slog.Logger
	done   chan struct{}
}

// NewRecorder creates a recorder with a buffer of size entries.
func NewRecorder(store Store, size int, logger *slog.Logger) *Recorder {
	if size <= 0 {
		size = 256
	}
	return &Recorder{
		store:  store,
		ch:     make(chan *Entry, size),
		logger: logging.Component(logger, "fetchlog"),
		done:   make(chan struct{}),
	}
}

// Observe is an oracle.Observer.
func (r *Recorder) Observe(ctx context.Context, call oracle.Call) {
	select {
	case r.ch <- FromCall(ctx, call):
	default:
		r.logger.Debug("fetch log buffer full, dropping entry", "endpoint", call.Endpoint)
	}
}

// Run drains the buffer until ctx is cancelled, then flushes what is left.
func (r *Recorder) Run(ctx context.Context) {
	defer close(r.done)
	for {
		select {
		case e := <-r.ch:
			r.write(e)
		case <-ctx.Done():
			for {
				select {
				case e := <-r.ch:
					r.write(e)
				default:
					return
				}
			}
		}
	}
}

// Done is closed when Run returns.
func (r *Recorder) Done() <-chan struct{} { return r.done }

func (r *Recorder) write(e *Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.store.Record(ctx, e); err != nil {
		r.logger.Warn("failed to record fetch", "endpoint", e.Endpoint, "error", err)
	}
}
