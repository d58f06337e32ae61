// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package sse reads and writes Server-Sent Events streams.
package sse

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-a2a/a2a-engine/internal/pool"
)

// ContentType is the media type of an event stream.
const ContentType = "text/event-stream"

// Event represents a Server-Sent Event.
type Event struct {
	Type  string
	Data  string
	ID    string
	Retry int
}

// Encoder writes events to an http response, flushing after each one.
type Encoder struct {
	w       io.Writer
	flusher http.Flusher
}

// NewEncoder sets the event stream headers on w and returns an [Encoder] for it.
func NewEncoder(w http.ResponseWriter) *Encoder {
	h := w.Header()
	h.Set("Content-Type", ContentType)
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	enc := &Encoder{w: w}
	if f, ok := w.(http.Flusher); ok {
		enc.flusher = f
	}
	enc.flush()
	return enc
}

func (e *Encoder) flush() {
	if e.flusher != nil {
		e.flusher.Flush()
	}
}

// Encode writes ev. Multi-line data is split over several data fields.
func (e *Encoder) Encode(ev Event) error {
	b := pool.Builder.Get()
	defer pool.Builder.Put(b)

	if ev.ID != "" {
		fmt.Fprintf(b, "id: %s\n", ev.ID)
	}
	if ev.Type != "" {
		fmt.Fprintf(b, "event: %s\n", ev.Type)
	}
	if ev.Retry > 0 {
		fmt.Fprintf(b, "retry: %d\n", ev.Retry)
	}
	for line := range strings.SplitSeq(ev.Data, "\n") {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')

	if _, err := io.WriteString(e.w, b.String()); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	e.flush()
	return nil
}

// Decoder decodes Server-Sent Events from an io.Reader.
type Decoder struct {
	scanner *bufio.Scanner
}

// maxLine bounds a single field line.
const maxLine = 4 << 20

// NewDecoder creates a new SSE decoder.
func NewDecoder(r io.Reader) *Decoder {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64<<10), maxLine)
	return &Decoder{scanner: s}
}

// Decode decodes the next event from the stream. It returns io.EOF once the stream is
// exhausted.
func (d *Decoder) Decode() (*Event, error) {
	event := &Event{}
	var hasData bool

	for d.scanner.Scan() {
		line := d.scanner.Text()

		// an empty line dispatches the event
		if line == "" {
			if hasData || event.Type != "" {
				return event, nil
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")

		switch field {
		case "event":
			event.Type = value
		case "data":
			if hasData {
				event.Data += "\n"
			}
			event.Data += value
			hasData = true
		case "id":
			event.ID = value
		case "retry":
			if n, err := strconv.Atoi(value); err == nil {
				event.Retry = n
			}
		}
	}

	if err := d.scanner.Err(); err != nil {
		return nil, fmt.Errorf("SSE scanner error: %w", err)
	}
	if hasData || event.Type != "" {
		return event, nil
	}
	return nil, io.EOF
}

// Events returns a sequence over the events of r. A decode error is yielded once and
// ends the sequence; the end of the stream ends it cleanly.
func Events(r io.Reader) iter.Seq2[*Event, error] {
	return func(yield func(*Event, error) bool) {
		dec := NewDecoder(r)
		for {
			ev, err := dec.Decode()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(ev, nil) {
				return
			}
		}
	}
}
