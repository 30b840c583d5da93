package stream

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"strings"
)

const doneMarker = "[DONE]"

// DecodeSSE reads Server-Sent Events from r and yields one Chunk per
// "data: " line until "[DONE]" or EOF. Other lines are ignored. A malformed
// payload or read error is yielded once and ends the sequence.
func DecodeSSE(r io.Reader) iter.Seq2[Chunk, error] {
	return func(yield func(Chunk, error) bool) {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "" {
				continue
			}
			if data == doneMarker {
				return
			}

			var c Chunk
			if err := json.Unmarshal([]byte(data), &c); err != nil {
				yield(Chunk{}, fmt.Errorf("failed to parse stream chunk: %w", err))
				return
			}
			if !yield(c, nil) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield(Chunk{}, fmt.Errorf("failed to read stream: %w", err))
		}
	}
}

// EncodeSSE writes c as a single "data: " event.
func EncodeSSE(w io.Writer, c Chunk) error {
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}

// EncodeDone writes the stream terminator.
func EncodeDone(w io.Writer) error {
	_, err := fmt.Fprintf(w, "data: %s\n\n", doneMarker)
	return err
}
