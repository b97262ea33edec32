package sse

import (
	"bufio"
	"context"
	"io"
)

// HTTPBodyEventStream adapts a raw text/event-stream http.Response body into
// the per-record Next/Close shape upstream.EventStream callers expect,
// reusing Parser as the tokenizer. Used for the agentpipeline terminal-agent
// hop, whose response is this same gateway's own /v1/chat/completions
// output rather than an SDK-native stream.
type HTTPBodyEventStream struct {
	body   io.ReadCloser
	reader *bufio.Reader
	parser *Parser
	queue  []RawRecord
}

// NewHTTPBodyEventStream wraps body, which the caller must not read from or
// close directly afterward.
func NewHTTPBodyEventStream(body io.ReadCloser) *HTTPBodyEventStream {
	return &HTTPBodyEventStream{
		body:   body,
		reader: bufio.NewReader(body),
		parser: NewParser(nil),
	}
}

// Next returns the next record's event name and data, reading and
// tokenizing further bytes from the body as needed. ok is false once the
// body is exhausted and no more complete or flushed records remain.
func (s *HTTPBodyEventStream) Next(ctx context.Context) (string, string, bool, error) {
	for len(s.queue) == 0 {
		select {
		case <-ctx.Done():
			return "", "", false, ctx.Err()
		default:
		}

		line, err := s.reader.ReadBytes('\n')
		if len(line) > 0 {
			s.queue = append(s.queue, s.parser.Feed(line)...)
		}
		if err != nil {
			if err == io.EOF {
				s.queue = append(s.queue, s.parser.Close()...)
			}
			if len(s.queue) == 0 {
				if err == io.EOF {
					return "", "", false, nil
				}
				return "", "", false, err
			}
			break
		}
	}

	rec := s.queue[0]
	s.queue = s.queue[1:]
	if rec.IsDone() {
		return "", "", false, nil
	}
	return rec.Event, rec.Data, true, nil
}

// Close releases the underlying body.
func (s *HTTPBodyEventStream) Close() error {
	return s.body.Close()
}
