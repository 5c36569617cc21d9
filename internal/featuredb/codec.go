package featuredb

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/ironsheep/shapeid/internal/features"
)

// Decode parses the text database format, one entry per line:
//
//	<f0> <f1> ... <f8> <label>
//
// Fields are whitespace separated. Blank lines are skipped. The first
// malformed record, including one holding NaN or an infinity, stops decoding
// with a *FormatError naming its line.
func Decode(r io.Reader) ([]Entry, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), 1024*1024)

	var entries []Entry
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != features.Size+1 {
			return nil, &FormatError{
				Record: line,
				Reason: fmt.Sprintf("got %d fields, want %d numbers and a label", len(fields), features.Size),
			}
		}

		var e Entry
		for i := 0; i < features.Size; i++ {
			f, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				return nil, &FormatError{
					Record: line,
					Reason: fmt.Sprintf("field %d (%s): %v", i, features.Names[i], err),
				}
			}
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return nil, &FormatError{
					Record: line,
					Reason: fmt.Sprintf("field %d (%s): %s is not a finite number", i, features.Names[i], fields[i]),
				}
			}
			e.Features[i] = f
		}
		e.Label = fields[features.Size]
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("featuredb: read: %w", err)
	}
	return entries, nil
}

// Encode writes one record: nine numbers, the label and a trailing space.
// Numbers use the shortest representation that parses back to the same value.
func Encode(w io.Writer, e Entry) error {
	var b strings.Builder
	for _, f := range e.Features {
		b.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
		b.WriteByte(' ')
	}
	b.WriteString(e.Label)
	b.WriteString(" \n")
	_, err := io.WriteString(w, b.String())
	return err
}
