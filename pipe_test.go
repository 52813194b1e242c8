package base64stream

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPipeReadBlocksUntilWrite(t *testing.T) {
	p := NewPipe()

	results := make(chan ReadResult, 1)
	go func() {
		res, err := p.Read()
		require.NoError(t, err)
		results <- res
	}()

	select {
	case <-results:
		t.Fatal("read resolved before any write")
	case <-time.After(50 * time.Millisecond):
	}

	_, err := p.Write([]byte("abc"))
	require.NoError(t, err)

	res := <-results
	require.Equal(t, "abc", string(res.Buffer))
	require.False(t, res.IsCompleted)
	require.False(t, res.IsCanceled)
}

func TestPipeExaminedHoldsRead(t *testing.T) {
	p := NewPipe()

	_, err := p.Write([]byte("ab"))
	require.NoError(t, err)

	res, err := p.Read()
	require.NoError(t, err)
	require.Equal(t, "ab", string(res.Buffer))

	// Nothing consumed, everything examined: the retained bytes must not
	// wake the next read on their own.
	p.Advance(0, 2)

	results := make(chan ReadResult, 1)
	go func() {
		res, err := p.Read()
		require.NoError(t, err)
		results <- res
	}()

	select {
	case <-results:
		t.Fatal("read resolved without new data")
	case <-time.After(50 * time.Millisecond):
	}

	_, err = p.Write([]byte("c"))
	require.NoError(t, err)

	res = <-results
	require.Equal(t, "abc", string(res.Buffer))
}

func TestPipeConsumeReleasesPrefix(t *testing.T) {
	p := NewPipe()

	_, err := p.Write([]byte("abcdef"))
	require.NoError(t, err)

	res, err := p.Read()
	require.NoError(t, err)
	require.Equal(t, "abcdef", string(res.Buffer))

	p.Advance(4, 4)

	res, err = p.Read()
	require.NoError(t, err)
	require.Equal(t, "ef", string(res.Buffer))
	p.Advance(2, 2)
}

func TestPipeCancelSingleShot(t *testing.T) {
	p := NewPipe()
	p.CancelPendingRead()

	res, err := p.Read()
	require.NoError(t, err)
	require.True(t, res.IsCanceled)
	require.Empty(t, res.Buffer)
	p.Advance(0, 0)

	// The flag cleared when it fired: the next read blocks again.
	results := make(chan ReadResult, 1)
	go func() {
		res, err := p.Read()
		require.NoError(t, err)
		results <- res
	}()

	select {
	case <-results:
		t.Fatal("read resolved after single-shot cancel already fired")
	case <-time.After(50 * time.Millisecond):
	}

	_, err = p.Write([]byte("x"))
	require.NoError(t, err)

	res = <-results
	require.False(t, res.IsCanceled)
	require.Equal(t, "x", string(res.Buffer))
}

func TestPipeCancelCarriesBuffered(t *testing.T) {
	p := NewPipe()

	_, err := p.Write([]byte("abc"))
	require.NoError(t, err)

	res, err := p.Read()
	require.NoError(t, err)
	require.Equal(t, "abc", string(res.Buffer))
	p.Advance(0, 3)

	p.CancelPendingRead()
	res, err = p.Read()
	require.NoError(t, err)
	require.True(t, res.IsCanceled)
	require.Equal(t, "abc", string(res.Buffer))
	p.Advance(0, 3)
}

func TestPipeComplete(t *testing.T) {
	p := NewPipe()

	_, err := p.Write([]byte("ab"))
	require.NoError(t, err)
	p.Complete(nil)

	_, err = p.Write([]byte("cd"))
	require.ErrorIs(t, err, ErrWriteAfterComplete)

	res, err := p.Read()
	require.NoError(t, err)
	require.True(t, res.IsCompleted)
	require.Equal(t, "ab", string(res.Buffer))
	p.Advance(2, 2)

	// Completed and drained: reads keep resolving empty.
	res, err = p.Read()
	require.NoError(t, err)
	require.True(t, res.IsCompleted)
	require.Empty(t, res.Buffer)
	p.Advance(0, 0)
}

func TestPipeCompleteWithError(t *testing.T) {
	p := NewPipe()
	failure := errors.New("upstream broke")
	p.Complete(failure)

	_, err := p.Read()
	require.ErrorIs(t, err, failure)
}

func TestPipeErrorBeatsCancel(t *testing.T) {
	p := NewPipe()
	failure := errors.New("upstream broke")

	_, err := p.Write([]byte("ab"))
	require.NoError(t, err)
	p.Complete(failure)
	p.CancelPendingRead()

	_, err = p.Read()
	require.ErrorIs(t, err, failure)
}
