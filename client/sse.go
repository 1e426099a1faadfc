package client

import (
	"bufio"
	"bytes"
	"io"
)

// maxFrameSize bounds a single SSE line. Envelopes are small; anything
// near this limit is a protocol violation, not a legitimate payload.
const maxFrameSize = 1 << 20

// frameScanner decodes server-sent-event frames from a response body.
// Only data lines are consumed; event, id, retry, and comment lines are
// skipped. Multiple data lines in one frame are joined with newlines per
// the SSE wire format.
type frameScanner struct {
	scanner *bufio.Scanner
}

func newFrameScanner(r io.Reader) *frameScanner {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), maxFrameSize)
	return &frameScanner{scanner: s}
}

// Next returns the payload of the next complete frame. io.EOF signals a
// clean end of stream; a partial frame at EOF is discarded.
func (f *frameScanner) Next() ([]byte, error) {
	var data [][]byte

	for f.scanner.Scan() {
		line := f.scanner.Bytes()

		if len(line) == 0 {
			if len(data) == 0 {
				continue
			}
			return bytes.Join(data, []byte("\n")), nil
		}

		if line[0] == ':' {
			continue
		}

		rest, ok := bytes.CutPrefix(line, []byte("data:"))
		if !ok {
			continue
		}
		rest = bytes.TrimPrefix(rest, []byte(" "))

		// Copy: the scanner reuses its buffer on the next Scan
		data = append(data, append([]byte(nil), rest...))
	}

	if err := f.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}
