package agent

import (
	"bufio"
	"encoding/json"
	"io"
)

// defaultBufferSize caps the length of one stream-json line. Tool results
// can embed whole files, so this is deliberately generous.
const defaultBufferSize = 10 * 1024 * 1024

// Parser turns an agent's stdout into a channel of [Event] values.
//
// The channel is closed on EOF, reader closure, or an unrecoverable read
// error. Malformed lines are skipped so partial output never kills a run.
type Parser interface {
	Parse(reader io.Reader) <-chan Event
}

// StreamJSONParser implements [Parser] for claude's stream-json format:
// one complete JSON object per line.
type StreamJSONParser struct {
	// BufferSize is the maximum size in bytes for a single line.
	// Defaults to 10MB when zero or negative.
	BufferSize int
}

// NewStreamJSONParser creates a [StreamJSONParser] with default settings.
func NewStreamJSONParser() *StreamJSONParser {
	return &StreamJSONParser{BufferSize: defaultBufferSize}
}

// Parse reads JSON lines from the reader and emits parsed events.
// Empty and unparseable lines are skipped.
func (p *StreamJSONParser) Parse(reader io.Reader) <-chan Event {
	events := make(chan Event)

	go func() {
		defer close(events)

		scanner := bufio.NewScanner(reader)
		bufSize := p.BufferSize
		if bufSize <= 0 {
			bufSize = defaultBufferSize
		}
		scanner.Buffer(make([]byte, 0, 64*1024), bufSize)

		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				continue
			}

			var streamEvent StreamEvent
			if err := json.Unmarshal([]byte(line), &streamEvent); err != nil {
				continue
			}

			events <- NewEventFromStream(&streamEvent)
		}
		// scanner.Err() is intentionally ignored: EOF and pipe closure
		// are the normal end of a session.
	}()

	return events
}

// PlainTextParser implements [Parser] for providers without structured
// output: every stdout line becomes an assistant text event.
type PlainTextParser struct{}

// NewPlainTextParser creates a [PlainTextParser].
func NewPlainTextParser() *PlainTextParser {
	return &PlainTextParser{}
}

// Parse emits one text event per stdout line.
func (p *PlainTextParser) Parse(reader io.Reader) <-chan Event {
	events := make(chan Event)

	go func() {
		defer close(events)

		scanner := bufio.NewScanner(reader)
		scanner.Buffer(make([]byte, 0, 64*1024), defaultBufferSize)
		for scanner.Scan() {
			events <- TextEvent(scanner.Text())
		}
	}()

	return events
}

// ParseSingle parses one stream-json line into an [Event]. Unlike
// [Parser.Parse] it reports malformed input instead of skipping it;
// useful in tests.
func ParseSingle(line string) (Event, error) {
	var streamEvent StreamEvent
	if err := json.Unmarshal([]byte(line), &streamEvent); err != nil {
		return Event{}, err
	}
	return NewEventFromStream(&streamEvent), nil
}
