package runtime

import (
	"io"
	"sync"
	"sync/atomic"
)

// Stdin of an exec process.
//
// Counts the bytes handed to the process and closes done on the first EOF,
// so the caller can close the process's stdin FIFO. The containerd shim holds
// both ends of that FIFO open and never forwards EOF by itself.
type stdinStream struct {
	r    io.Reader
	n    atomic.Int64
	once sync.Once
	done chan struct{}
}

func newStdinStream(r io.Reader) *stdinStream {
	if s, ok := r.(*stdinStream); ok {
		return s
	}
	return &stdinStream{r: r, done: make(chan struct{})}
}

func (s *stdinStream) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	s.n.Add(int64(n))
	if err == io.EOF {
		s.once.Do(func() { close(s.done) })
	}
	return n, err
}

// Bytes read so far.
func (s *stdinStream) Bytes() int64 {
	return s.n.Load()
}

// Counts bytes written through to w.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// Keeps the last max bytes written, where tools print their actual error.
type tailBuffer struct {
	max int
	buf []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = t.buf[over:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	return string(t.buf)
}
