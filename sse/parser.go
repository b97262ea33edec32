package sse

import "strings"

// RawRecord is a single `{event?, data?}` record as tokenized off the wire,
// before any per-event translation runs.
type RawRecord struct {
	Event string
	Data  string
	// Raw is the original bytes this record was assembled from, newline
	// joined, kept for diagnostics and for SseEvent.OriginalRawLine.
	Raw string
}

// IsDone reports whether this record is the OpenAI end-of-stream marker
// (`data: [DONE]`).
func (r RawRecord) IsDone() bool {
	return strings.TrimSpace(r.Data) == "[DONE]"
}

// IsPing reports whether this record is a no-op keepalive the buffer must
// skip without staging output (spec.md §4.5 rule 6).
func (r RawRecord) IsPing() bool {
	return r.Event == "ping"
}

// Parser tokenizes a byte stream of text/event-stream into RawRecords. It is
// stateful across Feed calls so a record split across two reads (a partial
// trailing line) is buffered until the rest arrives, per spec.md §4.3.
type Parser struct {
	pending     []byte
	curEvent    string
	curData     []string
	curRawLines []string
	onWarn      func(line string, reason string)
}

// NewParser constructs a Parser. onWarn, if non-nil, is called for each
// malformed line the parser drops (spec.md §4.3 "malformed lines are logged
// and dropped").
func NewParser(onWarn func(line, reason string)) *Parser {
	return &Parser{onWarn: onWarn}
}

// Feed appends newly-read bytes and returns every complete record they
// produced. Any partial trailing line is retained internally for the next
// call.
func (p *Parser) Feed(chunk []byte) []RawRecord {
	p.pending = append(p.pending, chunk...)

	var records []RawRecord
	for {
		idx := indexNewline(p.pending)
		if idx < 0 {
			break
		}
		line := string(p.pending[:idx])
		p.pending = p.pending[idx+1:]
		line = strings.TrimSuffix(line, "\r")

		if line == "" {
			if rec, ok := p.flushRecord(); ok {
				records = append(records, rec)
			}
			continue
		}
		p.consumeLine(line)
	}
	return records
}

// Close flushes any record left assembled but not yet terminated by a blank
// line, including a final line the upstream sent without a trailing newline.
func (p *Parser) Close() []RawRecord {
	var records []RawRecord
	if len(p.pending) > 0 {
		line := strings.TrimSuffix(string(p.pending), "\r")
		p.pending = nil
		if line != "" {
			p.consumeLine(line)
		}
	}
	if rec, ok := p.flushRecord(); ok {
		records = append(records, rec)
	}
	return records
}

func (p *Parser) consumeLine(line string) {
	switch {
	case strings.HasPrefix(line, ":"):
		// comment line, ignored
	case strings.HasPrefix(line, "event:"):
		p.curEvent = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		p.curRawLines = append(p.curRawLines, line)
	case strings.HasPrefix(line, "data:"):
		p.curData = append(p.curData, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		p.curRawLines = append(p.curRawLines, line)
	default:
		if p.onWarn != nil {
			p.onWarn(line, "unrecognized SSE field")
		}
	}
}

func (p *Parser) flushRecord() (RawRecord, bool) {
	if p.curEvent == "" && len(p.curData) == 0 {
		return RawRecord{}, false
	}
	rec := RawRecord{
		Event: p.curEvent,
		Data:  strings.Join(p.curData, "\n"),
		Raw:   strings.Join(p.curRawLines, "\n"),
	}
	p.curEvent = ""
	p.curData = nil
	p.curRawLines = nil
	return rec, true
}

func indexNewline(b []byte) int {
	for i, c := range b {
		if c == '\n' {
			return i
		}
	}
	return -1
}
