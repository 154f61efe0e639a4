// Package process parses the plain-text process table served by the
// scheduler backend.
//
// The payload is newline-delimited. The first non-blank line may be a
// header; every other line is a record with at least four
// whitespace-separated fields: id, arrival time, burst time and priority.
// Lines that do not satisfy that shape are dropped without failing the
// parse.
package process

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrEmptyPayload is returned when the payload has no non-blank line.
	ErrEmptyPayload = errors.New("no process data found")
	// ErrNoDataRows is returned when the payload holds a single line.
	ErrNoDataRows = errors.New("no processes found in the file")
)

const minFields = 4

// MalformedRow describes a dropped data line.
type MalformedRow struct {
	Line   int    `json:"line"`
	Text   string `json:"text"`
	Reason string `json:"reason"`
}

func (m MalformedRow) Error() string {
	return fmt.Sprintf("line %d: %s", m.Line, m.Reason)
}

// Result is the outcome of ParseDetailed.
type Result struct {
	Header  string
	Records []Record
	Dropped []MalformedRow
}

// Parse converts a raw payload into records in input order.
func Parse(payload string) ([]Record, error) {
	res, err := ParseDetailed(payload)
	if err != nil {
		return nil, err
	}
	return res.Records, nil
}

// ParseDetailed is Parse plus the detected header and the dropped lines.
func ParseDetailed(payload string) (*Result, error) {
	lines := nonBlankLines(payload)
	switch len(lines) {
	case 0:
		return nil, ErrEmptyPayload
	case 1:
		return nil, ErrNoDataRows
	}

	res := &Result{Records: make([]Record, 0, len(lines))}
	start := 0
	if isHeader(lines[0].text) {
		res.Header = lines[0].text
		start = 1
	}

	for _, l := range lines[start:] {
		rec, err := parseRecord(l.text)
		if err != nil {
			res.Dropped = append(res.Dropped, MalformedRow{Line: l.number, Text: l.text, Reason: err.Error()})
			continue
		}
		res.Records = append(res.Records, rec)
	}
	return res, nil
}

type line struct {
	number int
	text   string
}

func nonBlankLines(payload string) []line {
	payload = strings.ReplaceAll(payload, "\r\n", "\n")
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil
	}
	raw := strings.Split(payload, "\n")
	out := make([]line, 0, len(raw))
	for i, l := range raw {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		out = append(out, line{number: i + 1, text: l})
	}
	return out
}

// isHeader reports whether the first line names the columns rather than
// carrying a record.
func isHeader(text string) bool {
	if strings.Contains(strings.ToLower(text), "process") {
		return true
	}
	_, err := parseRecord(text)
	return err != nil
}

func parseRecord(text string) (Record, error) {
	fields := strings.Fields(text)
	if len(fields) < minFields {
		return Record{}, fmt.Errorf("expected %d fields, got %d", minFields, len(fields))
	}
	arrival, err := parseTime(fields[1])
	if err != nil {
		return Record{}, fmt.Errorf("arrival time: %w", err)
	}
	burst, err := parseTime(fields[2])
	if err != nil {
		return Record{}, fmt.Errorf("burst time: %w", err)
	}
	return Record{
		ID:          fields[0],
		ArrivalTime: arrival,
		BurstTime:   burst,
		Priority:    fields[3],
	}, nil
}

func parseTime(v string) (float64, error) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%q is not a finite number", v)
	}
	return f, nil
}
