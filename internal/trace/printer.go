package trace

import (
	"fmt"
	"io"
	"sync"
)

// Printer writes each observed event as a console line.
type Printer struct {
	mu      sync.Mutex
	w       io.Writer
	withSeq bool
}

// NewPrinter creates a Printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// WithSeq prefixes each line with the event's sequence number.
func (p *Printer) WithSeq() *Printer {
	p.withSeq = true
	return p
}

// Observe implements Observer. Write errors are ignored; the console has
// nowhere better to report them.
func (p *Printer) Observe(ev Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.withSeq {
		fmt.Fprintf(p.w, "%6d  %s\n", ev.Seq, ev.Line())
		return
	}
	fmt.Fprintln(p.w, ev.Line())
}
