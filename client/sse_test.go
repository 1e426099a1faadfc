package client

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameScanner_SingleFrame(t *testing.T) {
	f := newFrameScanner(strings.NewReader("data: {\"a\":1}\n\n"))

	frame, err := f.Next()
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(frame))

	_, err = f.Next()
	assert.Equal(t, io.EOF, err)
}

func TestFrameScanner_MultipleFrames(t *testing.T) {
	input := "data: one\n\ndata: two\n\ndata: three\n\n"
	f := newFrameScanner(strings.NewReader(input))

	var frames []string
	for {
		frame, err := f.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		frames = append(frames, string(frame))
	}
	assert.Equal(t, []string{"one", "two", "three"}, frames)
}

func TestFrameScanner_MultilineData(t *testing.T) {
	f := newFrameScanner(strings.NewReader("data: line1\ndata: line2\n\n"))

	frame, err := f.Next()
	require.NoError(t, err)
	assert.Equal(t, "line1\nline2", string(frame))
}

func TestFrameScanner_SkipsCommentsAndOtherFields(t *testing.T) {
	input := ": heartbeat\nevent: message\nid: 42\nretry: 1000\ndata: payload\n\n"
	f := newFrameScanner(strings.NewReader(input))

	frame, err := f.Next()
	require.NoError(t, err)
	assert.Equal(t, "payload", string(frame))
}

func TestFrameScanner_NoSpaceAfterColon(t *testing.T) {
	f := newFrameScanner(strings.NewReader("data:compact\n\n"))

	frame, err := f.Next()
	require.NoError(t, err)
	assert.Equal(t, "compact", string(frame))
}

func TestFrameScanner_PartialFrameAtEOFDiscarded(t *testing.T) {
	f := newFrameScanner(strings.NewReader("data: incomplete"))

	_, err := f.Next()
	assert.Equal(t, io.EOF, err)
}

func TestFrameScanner_BlankLinesBetweenFramesIgnored(t *testing.T) {
	f := newFrameScanner(strings.NewReader("\n\n\ndata: x\n\n\n\n"))

	frame, err := f.Next()
	require.NoError(t, err)
	assert.Equal(t, "x", string(frame))

	_, err = f.Next()
	assert.Equal(t, io.EOF, err)
}
