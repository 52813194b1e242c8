// Package base64stream decodes an incrementally-arriving base64 byte
// stream into raw bytes without buffering the whole payload.
//
// Transports that carry binary frames over text channels (gRPC-Web and
// similar) base64-encode each frame independently and concatenate the
// encoded units back-to-back on one stream; the padding character that
// terminates a unit is the only delimiter. Reader splits such a stream at
// those boundaries, returning one unit at a time, and translates the
// caller's acknowledgments of decoded bytes back into acknowledgments of
// the raw encoded bytes.
package base64stream

// ReadResult is the outcome of one Read call on a PipeReader.
//
// Buffer is valid until the matching Advance call. IsCompleted reports
// that the producer has finished and every buffered byte was delivered.
// IsCanceled reports that the result was produced by CancelPendingRead;
// it carries whatever bytes were already available and implies neither
// completion nor failure.
type ReadResult struct {
	Buffer      []byte
	IsCompleted bool
	IsCanceled  bool
}

// PipeReader is a pull-based, flow-controlled byte source.
//
// Read blocks until bytes beyond the last examined mark are available,
// the source is complete, or a cancel is pending. After every Read the
// caller must call Advance exactly once before the next Read: consumed
// bytes are released, bytes in [consumed, examined) are retained but will
// not cause Read to resolve again until new data arrives.
//
// Both Pipe (raw bytes) and Reader (decoded bytes) satisfy PipeReader, so
// a decoder can be layered transparently over any source.
type PipeReader interface {
	Read() (ReadResult, error)
	Advance(consumed, examined int)
	CancelPendingRead()
}
