package base64stream

import (
	"errors"
	"fmt"
)

const pad = '='

const (
	badByte = 0xff // not in the alphabet and not padding
	padByte = 0xfe // the '=' padding character
)

// decodeTable maps a raw byte to its 6-bit value, padByte or badByte.
// Standard RFC 4648 alphabet only.
var decodeTable = func() (t [256]byte) {
	for i := range t {
		t[i] = badByte
	}
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"
	for i := 0; i < len(alphabet); i++ {
		t[alphabet[i]] = byte(i)
	}
	t[pad] = padByte
	return
}()

var (
	// ErrUnexpectedEnd reports a stream that ended mid-group: the trailing
	// bytes can never form a complete group, so the stream is corrupt.
	ErrUnexpectedEnd = errors.New("Unexpected end of data when reading base64 content.")

	// ErrInvalidByte reports a byte outside the base64 alphabet, or padding
	// at a position where it cannot occur.
	ErrInvalidByte = errors.New("invalid base64 data")
)

// decodeRun decodes whole 4-byte groups from src into dst, left to right.
//
// A group containing padding is decoded (two bytes for one trailing '=',
// one byte for two) and terminates the run with boundary=true, even if
// src holds further bytes: padding ends an encoded unit and the remainder
// belongs to the next one. Without padding every complete group is
// decoded and the 0-3 trailing bytes are left unconsumed.
//
// ended reports that no more source bytes will ever arrive; a non-empty
// tail shorter than a group is then ErrUnexpectedEnd.
//
// dst must hold at least len(src)/4*3 bytes. nSrc is always a multiple
// of four.
func decodeRun(dst, src []byte, ended bool) (nDst, nSrc int, boundary bool, err error) {
	for nSrc+4 <= len(src) {
		g := src[nSrc : nSrc+4]

		c0 := decodeTable[g[0]]
		c1 := decodeTable[g[1]]
		c2 := decodeTable[g[2]]
		c3 := decodeTable[g[3]]

		// Padding is only valid in the last two positions, and a padded
		// third position forces a padded fourth.
		if c0 >= padByte || c1 >= padByte {
			return nDst, nSrc, false, invalidGroup(g)
		}
		if c2 == badByte || c3 == badByte || (c2 == padByte && c3 != padByte) {
			return nDst, nSrc, false, invalidGroup(g)
		}

		dst[nDst] = c0<<2 | c1>>4
		nDst++
		nSrc += 4

		if c2 == padByte {
			return nDst, nSrc, true, nil
		}
		dst[nDst] = c1<<4 | c2>>2
		nDst++

		if c3 == padByte {
			return nDst, nSrc, true, nil
		}
		dst[nDst] = c2<<6 | c3
		nDst++
	}

	if ended && nSrc < len(src) {
		return nDst, nSrc, false, ErrUnexpectedEnd
	}
	return nDst, nSrc, false, nil
}

func invalidGroup(g []byte) error {
	return fmt.Errorf("%w: group %q", ErrInvalidByte, g)
}
