package base64stream

import (
	"encoding/base64"
	"errors"
	"io"
)

var errWriterClosed = errors.New("writer is closed")

// Writer encodes raw bytes to base64 and writes them to an underlying
// io.Writer. Write emits only whole unpadded groups; Flush terminates the
// current encoded unit by padding out the buffered remainder, so that
// successive Flush-delimited units form exactly the back-to-back padded
// stream Reader splits at its boundaries.
type Writer struct {
	out  io.Writer
	rem  [3]byte // bytes short of a full 3-byte block
	nRem int
	buf  []byte // encode scratch
}

// NewWriter returns a new [Writer].
//
// It is the caller's responsibility to call Close on the [Writer] when done.
func NewWriter(w io.Writer) *Writer {
	return &Writer{out: w}
}

// Write encodes p and writes the encoded whole groups to the underlying
// writer. Up to two trailing bytes are held back until the next Write or
// Flush completes their group.
func (w *Writer) Write(p []byte) (n int, err error) {
	if w.out == nil {
		return 0, errWriterClosed
	}

	if w.nRem > 0 {
		k := copy(w.rem[w.nRem:], p)
		w.nRem += k
		p = p[k:]
		n += k
		if w.nRem < 3 {
			return n, nil
		}
		if err := w.encode(w.rem[:3]); err != nil {
			// Put the carried remainder back the way it was: the bytes of
			// p that completed it were neither written nor buffered.
			w.nRem -= k
			return n - k, err
		}
		w.nRem = 0
	}

	full := len(p) / 3 * 3
	if full > 0 {
		if err := w.encode(p[:full]); err != nil {
			return n, err
		}
		n += full
	}
	w.nRem = copy(w.rem[:], p[full:])
	n += w.nRem
	return n, nil
}

// Flush ends the current encoded unit: the buffered remainder, if any, is
// written as a final padded group. A unit whose length is a multiple of
// three ends without padding; such units carry no boundary marker and run
// together with the following unit on the wire.
func (w *Writer) Flush() error {
	if w.out == nil {
		return errWriterClosed
	}
	if w.nRem == 0 {
		return nil
	}
	if err := w.encode(w.rem[:w.nRem]); err != nil {
		return err
	}
	w.nRem = 0
	return nil
}

// Close flushes the final unit. It is an error to call Write after Close.
func (w *Writer) Close() error {
	if w.out == nil {
		return errWriterClosed
	}
	err := w.Flush()
	w.out = nil
	return err
}

func (w *Writer) encode(p []byte) error {
	if grow := base64.StdEncoding.EncodedLen(len(p)) - len(w.buf); grow > 0 {
		w.buf = append(w.buf, make([]byte, grow)...)
	}
	out := w.buf[:base64.StdEncoding.EncodedLen(len(p))]
	base64.StdEncoding.Encode(out, p)
	_, err := w.out.Write(out)
	return err
}
