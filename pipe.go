package base64stream

import (
	"errors"
	"sync"
)

// ErrWriteAfterComplete is returned by Pipe.Write once Complete was called.
var ErrWriteAfterComplete = errors.New("write after pipe completed")

// Pipe is an in-memory flow-controlled byte source. A producer appends
// bytes with Write and eventually calls Complete; a single consumer pulls
// them through the PipeReader side.
//
// The consumer acknowledges bytes with Advance: the consumed prefix is
// released, and everything up to the examined mark is retained but will
// not cause Read to resolve again until strictly new bytes arrive. This
// is the backpressure hook incremental parsers need: examine everything,
// consume nothing, and the next Read waits for more input.
type Pipe struct {
	mu   sync.Mutex
	cond *sync.Cond

	buf      []byte // unconsumed bytes; released prefix is trimmed off
	examined int    // prefix of buf already examined by the consumer

	ended   bool
	err     error
	cancel  bool // pending-read cancel, cleared when it fires
	reading bool // a Read result is outstanding until Advance
}

// NewPipe returns an empty, open Pipe.
func NewPipe() *Pipe {
	p := &Pipe{}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Write appends b to the buffered stream and wakes a blocked Read.
// The bytes are copied; the caller keeps ownership of b.
func (p *Pipe) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ended {
		return 0, ErrWriteAfterComplete
	}
	p.buf = append(p.buf, b...)
	p.cond.Broadcast()
	return len(b), nil
}

// Complete marks the stream ended. A non-nil err is surfaced by every
// subsequent Read instead of data. Complete is idempotent.
func (p *Pipe) Complete(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.ended {
		p.ended = true
		p.err = err
	}
	p.cond.Broadcast()
}

// Read blocks until unexamined bytes are available, the pipe is complete,
// or a cancel is pending, then returns the whole unconsumed window.
func (p *Pipe) Read() (ReadResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.reading {
		panic("base64stream: Pipe.Read called before Advance")
	}

	for {
		// A failed pipe reports its error even with a cancel pending; a
		// canceled data result must never mask the terminal failure.
		if p.err != nil {
			return ReadResult{}, p.err
		}
		if p.cancel {
			p.cancel = false
			p.reading = true
			return ReadResult{Buffer: p.buf, IsCanceled: true}, nil
		}
		if len(p.buf) > p.examined || p.ended {
			p.reading = true
			return ReadResult{Buffer: p.buf, IsCompleted: p.ended}, nil
		}
		p.cond.Wait()
	}
}

// Advance releases the first consumed bytes of the last Read's buffer and
// marks the first examined bytes as inspected. consumed must not exceed
// examined, and examined must not exceed the buffer length.
func (p *Pipe) Advance(consumed, examined int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.reading {
		panic("base64stream: Pipe.Advance called without Read")
	}
	if consumed < 0 || consumed > examined || examined > len(p.buf) {
		panic("base64stream: Pipe.Advance extents out of range")
	}

	p.buf = p.buf[consumed:]
	p.examined = examined - consumed
	p.reading = false
	p.cond.Broadcast()
}

// CancelPendingRead makes the pending (or next) Read return immediately
// with IsCanceled set, carrying whatever is buffered. Single-shot: the
// flag clears when it fires, and no buffered bytes are dropped.
func (p *Pipe) CancelPendingRead() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cancel = true
	p.cond.Broadcast()
}
