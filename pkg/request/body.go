package request

import (
	"bytes"
	"context"
	"io"
	"sync/atomic"
)

// BodyState is the state of a BodySource.
type BodyState int32

const (
	// BodyAvailable means the body has not been drained yet.
	BodyAvailable BodyState = iota
	// BodyConsumed means Drain has been called; further drains fail.
	BodyConsumed
)

func (s BodyState) String() string {
	if s == BodyConsumed {
		return "consumed"
	}
	return "available"
}

// drainChunkSize is the read size used while draining.
const drainChunkSize = 32 << 10

// BodySource is a request body that may be drained at most once.
type BodySource struct {
	r     io.Reader
	limit int64
	state atomic.Int32
}

// BodyOption configures a BodySource.
type BodyOption func(*BodySource)

// WithLimit caps the number of bytes Drain accepts. Zero or negative means no limit.
func WithLimit(n int64) BodyOption {
	return func(b *BodySource) {
		b.limit = n
	}
}

// NewBodySource wraps r. A nil reader is an empty body.
func NewBodySource(r io.Reader, opts ...BodyOption) *BodySource {
	b := &BodySource{r: r}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// State reports whether the body can still be drained.
func (b *BodySource) State() BodyState {
	return BodyState(b.state.Load())
}

// Drain reads the whole body and moves the source to BodyConsumed. The state
// changes before reading starts, so a failed drain cannot be retried.
//
// If the reader is an io.Closer it is closed when ctx is done, which unblocks
// a pending Read. Bytes read before a failure are discarded.
func (b *BodySource) Drain(ctx context.Context) ([]byte, error) {
	return b.drain(ctx, b.limit)
}

func (b *BodySource) drain(ctx context.Context, limit int64) ([]byte, error) {
	if !b.state.CompareAndSwap(int32(BodyAvailable), int32(BodyConsumed)) {
		return nil, ErrBodyConsumed
	}
	if b.r == nil {
		return []byte{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if c, ok := b.r.(io.Closer); ok {
		stop := context.AfterFunc(ctx, func() { _ = c.Close() })
		defer stop()
	}

	var buf bytes.Buffer
	chunk := make([]byte, drainChunkSize)
	for {
		n, err := b.r.Read(chunk)
		buf.Write(chunk[:n])
		if limit > 0 && int64(buf.Len()) > limit {
			return nil, ErrBodyTooLarge
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	out := buf.Bytes()
	if out == nil {
		out = []byte{}
	}
	return out, nil
}
