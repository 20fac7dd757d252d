package logging

import (
	"bytes"
	"io"
	"sync"
	"time"
)

// Timestamper wraps a writer and prefixes every output line with the time it
// was written. Partial lines are stamped when their first byte arrives, so
// interleaved chunks of the same line are not stamped twice.
type Timestamper struct {
	mu      sync.Mutex
	w       io.Writer
	midline bool
	now     func() time.Time
}

// NewTimestamper creates a line-stamping writer around w.
func NewTimestamper(w io.Writer) *Timestamper {
	return &Timestamper{w: w, now: time.Now}
}

func (t *Timestamper) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := len(p)
	var out bytes.Buffer
	for len(p) > 0 {
		if !t.midline {
			out.WriteString(t.now().Format("15:04:05.000 "))
			t.midline = true
		}
		idx := bytes.IndexByte(p, '\n')
		if idx < 0 {
			out.Write(p)
			p = nil
			break
		}
		out.Write(p[:idx+1])
		t.midline = false
		p = p[idx+1:]
	}

	if _, err := t.w.Write(out.Bytes()); err != nil {
		return 0, err
	}
	return n, nil
}
