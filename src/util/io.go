package util

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// Writer buffers output in a strings.Builder and flushes it to the
// listener goroutine started by ListenWrite over a channel. This
// compiler's pipeline runs one function at a time, so there is only ever
// one live Writer, but the asynchronous flush-over-channel shape lets the
// driver start writing a function's output while the next function is
// still being lowered.
type Writer struct {
	sb strings.Builder
	c  chan string
}

var (
	wc chan string
	cc chan error
	wg *sync.WaitGroup
)

// Write appends a formatted string to the Writer's buffer.
func (w *Writer) Write(format string, args ...interface{}) {
	w.sb.WriteString(fmt.Sprintf(format, args...))
}

// WriteString appends a plain string to the Writer's buffer.
func (w *Writer) WriteString(s string) {
	w.sb.WriteString(s)
}

// Flush sends the Writer's buffered contents to the listener and resets
// the buffer.
func (w *Writer) Flush() {
	w.c <- w.sb.String()
	w.sb = strings.Builder{}
}

// Close flushes the Writer and signals the listener that this Writer is
// done.
func (w *Writer) Close() {
	w.Flush()
	wg.Done()
}

// NewWriter returns a Writer bound to the channel started by ListenWrite.
// Must not be called before ListenWrite.
func NewWriter() Writer {
	wg.Add(1)
	return Writer{c: wc}
}

// ReadSource reads the compiler's input file named in opt.Src.
func ReadSource(opt Options) (string, error) {
	b, err := os.ReadFile(opt.Src)
	if err != nil {
		return "", errors.Wrapf(err, "could not read source file %q", opt.Src)
	}
	return string(b), nil
}

// ListenWrite starts the background listener that drains Writer flushes to
// either f (when non-nil) or stdout, until Close is called. Grounded on
// util/io.go's ListenWrite/Close pair.
func ListenWrite(f *os.File, wgg *sync.WaitGroup) {
	wg = wgg
	wc = make(chan string, 4)
	cc = make(chan error, 1)
	var bw *bufio.Writer
	if f != nil {
		bw = bufio.NewWriter(f)
	} else {
		bw = bufio.NewWriter(os.Stdout)
	}

	go func(wc chan string, cc chan error) {
		defer close(wc)
		defer close(cc)
		for {
			select {
			case s := <-wc:
				if _, err := bw.WriteString(s); err != nil {
					fmt.Fprintln(os.Stderr, err)
				}
				if err := bw.Flush(); err != nil {
					fmt.Fprintln(os.Stderr, err)
				}
			case <-cc:
				return
			}
		}
	}(wc, cc)
}

// OpenOutput opens opt.Out for writing, or returns nil (meaning "write to
// stdout") when opt.Stdout is set.
func OpenOutput(opt Options) (*os.File, error) {
	if opt.Stdout {
		return nil, nil
	}
	f, err := os.Create(opt.Out)
	if err != nil {
		return nil, errors.Wrapf(err, "could not create output file %q", opt.Out)
	}
	return f, nil
}

// Close signals the ListenWrite goroutine to stop and waits for any
// in-flight Writer to finish flushing.
func Close() {
	if wg != nil {
		wg.Wait()
	}
	cc <- nil
}
