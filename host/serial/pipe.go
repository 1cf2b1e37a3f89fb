package serial

import (
	"io"
	"sync"
)

// pipePort is one end of an in-memory full-duplex link
type pipePort struct {
	r *io.PipeReader
	w *io.PipeWriter

	once sync.Once
}

// Pipe returns two connected ports: what one writes the other reads
func Pipe() (Port, Port) {
	ar, bw := io.Pipe()
	br, aw := io.Pipe()
	return &pipePort{r: ar, w: aw}, &pipePort{r: br, w: bw}
}

func (p *pipePort) Read(b []byte) (int, error)  { return p.r.Read(b) }
func (p *pipePort) Write(b []byte) (int, error) { return p.w.Write(b) }

func (p *pipePort) Close() error {
	p.once.Do(func() {
		p.w.Close()
		p.r.Close()
	})
	return nil
}

// Flush is a no-op: a pipe holds no unread input
func (p *pipePort) Flush() error { return nil }
