package base64stream

import (
	"sync"
)

// Reader decodes a base64-encoded byte stream pulled from an underlying
// PipeReader, one encoded unit at a time.
//
// Read returns decoded bytes as soon as complete 4-byte groups are
// available and stops at the first padding character, so back-to-back
// padded units on one stream come out one unit per Read even when later
// units are already buffered. Advance acknowledgments on decoded bytes
// are translated into acknowledgments of the raw bytes that produced
// them; a trailing partial group (up to 3 raw bytes) is carried across
// calls. Reader itself satisfies PipeReader.
//
// Reader is driven by a single consumer: Read calls must not overlap, and
// every Read must be followed by Advance before the next Read. Only
// CancelPendingRead may be called concurrently.
type Reader struct {
	inner PipeReader

	mu    sync.Mutex
	armed bool // single-shot cancel gate

	left  [3]byte // partial group carried between reads
	nLeft int

	scratch []byte // leftover ++ pulled composition
	dec     []byte // decoded output storage

	// Bookkeeping for the outstanding Read, consumed by Advance.
	run      []byte
	pulled   int
	prevLeft int
	rawUsed  int
	nDst     int
	isolated bool // remainder past rawUsed stays in the source (boundary or error stop)
	skip     int  // decoded bytes already delivered from a partially consumed group

	outstanding bool
	failed      error
}

// NewReader returns a Reader decoding the raw base64 bytes pulled from
// inner.
func NewReader(inner PipeReader) *Reader {
	return &Reader{inner: inner}
}

// Read returns the next run of decoded bytes.
//
// Read blocks while fewer than four raw bytes are available and the
// source has not ended; it resolves early with IsCanceled set when
// CancelPendingRead fires, carrying any decoded bytes that were already
// available. IsCompleted is set once the source has ended and every raw
// byte has been decoded and delivered. A stream ending mid-group yields
// ErrUnexpectedEnd; a byte outside the alphabet yields ErrInvalidByte.
// Both are terminal.
func (r *Reader) Read() (ReadResult, error) {
	if r.outstanding {
		panic("base64stream: Reader.Read called before Advance")
	}
	if r.failed != nil {
		return ReadResult{}, r.failed
	}

	for {
		res, err := r.inner.Read()
		if err != nil {
			r.failed = err
			return ReadResult{}, err
		}
		pulled := len(res.Buffer)

		run := res.Buffer
		if r.nLeft > 0 {
			r.scratch = append(r.scratch[:0], r.left[:r.nLeft]...)
			r.scratch = append(r.scratch, res.Buffer...)
			run = r.scratch
		}

		canceled := r.disarm() || res.IsCanceled
		ended := res.IsCompleted

		if need := len(run) / 4 * 3; len(r.dec) < need {
			r.dec = make([]byte, need)
		}

		// A canceled read decodes best-effort: a trailing partial group is
		// not an error, it simply stays buffered.
		nDst, nSrc, boundary, derr := decodeRun(r.dec, run, ended && !canceled)

		if derr != nil && nDst == 0 && !canceled {
			r.failed = derr
			return ReadResult{}, derr
		}

		if nSrc == 0 && !ended && !canceled && derr == nil {
			// Nothing decodable yet: keep what was pulled and wait for more.
			r.inner.Advance(0, pulled)
			continue
		}

		r.run = run
		r.pulled = pulled
		r.prevLeft = r.nLeft
		r.rawUsed = nSrc
		r.nDst = nDst
		r.isolated = boundary || derr != nil
		r.outstanding = true

		if canceled {
			return ReadResult{Buffer: r.dec[r.skip:nDst], IsCanceled: true}, nil
		}
		// derr, if any, resurfaces on the next Read once this clean prefix
		// has been delivered; the offending bytes stay in the source.
		completed := ended && derr == nil && nSrc == len(run)
		return ReadResult{Buffer: r.dec[r.skip:nDst], IsCompleted: completed}, nil
	}
}

// Advance acknowledges the buffer returned by the last Read: consumed
// decoded bytes release the raw bytes they were decoded from, and the
// examined extent is forwarded so the source knows whether to wait for
// new data. Raw bytes are released at group granularity; a partially
// consumed group is retained and its unconsumed decoded bytes are
// re-delivered by the next Read.
func (r *Reader) Advance(consumed, examined int) {
	if !r.outstanding {
		panic("base64stream: Reader.Advance called without Read")
	}
	n := r.nDst - r.skip
	if consumed < 0 || consumed > examined || examined > n {
		panic("base64stream: Reader.Advance extents out of range")
	}

	total := r.skip + consumed
	totalEx := r.skip + examined

	var rawCon, newSkip int
	if total == r.nDst {
		rawCon = r.rawUsed
	} else {
		g := total / 3
		rawCon = g * 4
		newSkip = total - g*3
	}

	// A partial examined extent rounds down to the raw groups whose decode
	// the caller has fully seen; rounding up would mark raw bytes examined
	// whose decoded output was never delivered, and a zero-consume re-read
	// of them would block for new data it does not need.
	var rawEx int
	if totalEx == r.nDst {
		rawEx = r.rawUsed
	} else if rawEx = totalEx / 3 * 4; rawEx > r.rawUsed {
		rawEx = r.rawUsed
	}
	if rawEx < rawCon {
		rawEx = rawCon
	}

	innerCon := max(rawCon-r.prevLeft, 0)
	innerEx := max(rawEx-r.prevLeft, innerCon)

	if totalEx == r.nDst && !r.isolated {
		// The caller examined everything and no boundary or error cut the
		// run short: everything pulled is examined, so the source waits
		// for strictly new data. Bytes past a boundary belong to the next
		// unit the caller has not seen, and are deliberately not marked.
		innerEx = r.pulled
	}

	if rem := len(r.run) - r.rawUsed; total == r.nDst && !r.isolated && rem <= 3 {
		// Fully consumed with no boundary in sight: carry the trailing
		// partial group ourselves and release everything pulled.
		copy(r.left[:], r.run[r.rawUsed:])
		r.nLeft = rem
		innerCon = r.pulled
		innerEx = r.pulled
	} else if rawCon > 0 {
		r.nLeft = 0
	}

	r.skip = newSkip
	r.run = nil
	r.outstanding = false
	r.inner.Advance(innerCon, innerEx)
}

// CancelPendingRead arms the cancellation gate: the suspended (or next)
// Read resolves with IsCanceled set instead of blocking. The gate is
// single-shot and firing it loses no buffered state. The request is
// forwarded to the underlying source so a suspended pull wakes promptly.
func (r *Reader) CancelPendingRead() {
	r.mu.Lock()
	r.armed = true
	r.mu.Unlock()

	r.inner.CancelPendingRead()
}

func (r *Reader) disarm() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	fired := r.armed
	r.armed = false
	return fired
}
