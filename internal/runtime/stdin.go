package runtime

import (
	"io"
	"sync"
)

// Marks the end of an exec's stdin stream.
//
// Stdin in this package is always a finite stream: a tar copy into the
// container or a cached environment blob. The done channel closes when the
// stream ends — on EOF, or when the producing side of a pipe fails — so the
// exec's stdin FIFO can be closed and the in-container reader sees end of
// input instead of blocking on a half-open descriptor.
type stdinReader struct {
	r    io.Reader
	once sync.Once
	done chan struct{}
}

func newStdinReader(r io.Reader) *stdinReader {
	return &stdinReader{r: r, done: make(chan struct{})}
}

// Delegates to the underlying reader and closes the done channel on the
// first terminal error. A producer failure ends the stream the same way
// EOF does; the error itself still reaches the copier.
func (s *stdinReader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if err != nil {
		s.once.Do(func() { close(s.done) })
	}
	return n, err
}
