package relay

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tidwall/gjson"
)

const (
	dataPrefix   = "data: "
	doneSentinel = "data: [DONE]"
)

// FrameHandler observes frames the reader could not use
type FrameHandler interface {
	FrameSkipped(line string, err error)
}

// StreamReader turns an OpenAI-style event stream into cumulative text.
//
// The body is read line by line; a partial line is kept until the rest of it
// arrives. Blank lines and the [DONE] sentinel are ignored, data frames are
// parsed and their choices[0].delta.content appended. Frames that fail to
// parse are reported to the FrameHandler and skipped.
type StreamReader struct {
	onUpdate UpdateFunc
	handler  FrameHandler
	acc      Accumulator
}

// NewStreamReader creates a reader. Both arguments may be nil.
func NewStreamReader(onUpdate UpdateFunc, handler FrameHandler) *StreamReader {
	return &StreamReader{onUpdate: onUpdate, handler: handler}
}

var errMalformedFrame = errors.New("malformed frame")

// Read consumes body until EOF or cancellation and returns the final text.
// A stream that ends without the sentinel still completes normally; a last
// line without a trailing newline is processed too.
func (r *StreamReader) Read(ctx context.Context, body io.Reader) (string, error) {
	br := bufio.NewReader(body)

	for {
		if err := ctx.Err(); err != nil {
			return r.acc.String(), err
		}

		line, err := br.ReadString('\n')
		if line != "" {
			r.handleLine(line)
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				return r.acc.String(), nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return r.acc.String(), ctxErr
			}
			return r.acc.String(), fmt.Errorf("stream read error: %w", err)
		}
	}
}

// Content returns the text accumulated so far
func (r *StreamReader) Content() string {
	return r.acc.String()
}

func (r *StreamReader) handleLine(raw string) {
	line := strings.TrimSpace(raw)
	if line == "" || line == doneSentinel {
		return
	}
	if !strings.HasPrefix(line, dataPrefix) {
		return
	}

	data := line[len(dataPrefix):]
	if !gjson.Valid(data) {
		if r.handler != nil {
			r.handler.FrameSkipped(line, errMalformedFrame)
		}
		return
	}

	delta := gjson.Get(data, "choices.0.delta.content").String()
	if delta == "" {
		return
	}

	content := r.acc.Append(delta)
	if r.onUpdate != nil {
		r.onUpdate(content)
	}
}
