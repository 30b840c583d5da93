package stream

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"
)

// Buffer collects tokens and the final text.
type Buffer struct {
	mu     sync.Mutex
	tokens []string
	full   string
}

// Callbacks returns callbacks that write into b.
func (b *Buffer) Callbacks() Callbacks {
	return Callbacks{
		OnToken: func(s string) {
			b.mu.Lock()
			b.tokens = append(b.tokens, s)
			b.mu.Unlock()
		},
		OnComplete: func(s string) {
			b.mu.Lock()
			b.full = s
			b.mu.Unlock()
		},
	}
}

// Tokens returns a copy of the received fragments.
func (b *Buffer) Tokens() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.tokens...)
}

// Text returns the completed text, or "" before completion.
func (b *Buffer) Text() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.full
}

// Writer prints each token to w as it arrives and a newline on completion.
func Writer(w io.Writer) Callbacks {
	return Callbacks{
		OnToken:    func(s string) { fmt.Fprint(w, s) },
		OnComplete: func(string) { fmt.Fprintln(w) },
	}
}

// File writes tokens to path. The file is created on start, flushed after
// every token and closed on completion or error. Write failures are
// reported through errf when it is non-nil.
func File(path string, errf func(error)) Callbacks {
	var (
		f *os.File
		w *bufio.Writer
	)
	report := func(err error) {
		if err != nil && errf != nil {
			errf(err)
		}
	}
	closeFile := func() {
		if f == nil {
			return
		}
		report(w.Flush())
		report(f.Close())
		f, w = nil, nil
	}

	return Callbacks{
		OnStart: func() {
			var err error
			if f, err = os.Create(path); err != nil {
				report(fmt.Errorf("creating stream file: %w", err))
				f = nil
				return
			}
			w = bufio.NewWriter(f)
		},
		OnToken: func(s string) {
			if w == nil {
				return
			}
			if _, err := w.WriteString(s); err != nil {
				report(err)
				return
			}
			report(w.Flush())
		},
		OnComplete: func(string) { closeFile() },
		OnError:    func(error) { closeFile() },
	}
}
