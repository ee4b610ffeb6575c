package local

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/aretw0/tabula/pkg/domain"
)

// frame is the decoded form of a table snapshot.
type frame struct {
	Cols []string         `json:"cols"`
	Data map[string][]any `json:"data"`
	Rows int              `json:"rows"`
}

func newFrame() *frame {
	return &frame{Cols: []string{}, Data: map[string][]any{}}
}

func (f *frame) has(col string) bool {
	_, ok := f.Data[col]
	return ok
}

// column returns the values of col or an error naming the missing column.
func (f *frame) column(col string) ([]any, error) {
	values, ok := f.Data[col]
	if !ok {
		return nil, fmt.Errorf("column %q does not exist", col)
	}
	return values, nil
}

// set adds or replaces a column. New columns are appended after existing ones.
func (f *frame) set(col string, values []any) {
	if !f.has(col) {
		f.Cols = append(f.Cols, col)
	}
	f.Data[col] = values
}

// clone copies the column list and map so a derived frame never aliases its parent.
func (f *frame) clone() *frame {
	out := &frame{
		Cols: append([]string(nil), f.Cols...),
		Data: make(map[string][]any, len(f.Data)),
		Rows: f.Rows,
	}
	for k, v := range f.Data {
		out.Data[k] = v
	}
	return out
}

func (f *frame) row(i int, cols []string) map[string]any {
	r := make(map[string]any, len(cols))
	for _, c := range cols {
		r[c] = f.Data[c][i]
	}
	return r
}

func (f *frame) snapshot() (domain.Snapshot, error) {
	b, err := json.Marshal(f)
	if err != nil {
		return "", fmt.Errorf("encode table: %w", err)
	}
	return domain.Snapshot(b), nil
}

func decodeFrame(s string) (*frame, error) {
	if s == "" {
		return nil, errors.New("empty table snapshot")
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()

	var f frame
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode table: %w", err)
	}
	if f.Data == nil {
		f.Data = map[string][]any{}
	}
	if f.Cols == nil {
		f.Cols = []string{}
	}
	for _, c := range f.Cols {
		values, ok := f.Data[c]
		if !ok {
			return nil, fmt.Errorf("decode table: column %q has no data", c)
		}
		if len(values) != f.Rows {
			return nil, fmt.Errorf("decode table: column %q has %d values, want %d", c, len(values), f.Rows)
		}
		for i, v := range values {
			values[i] = normalize(v)
		}
	}
	return &f, nil
}

// frameFromRecords builds a frame from a JSON array of row objects.
// Columns keep the order in which they are first seen; rows missing a column hold null.
func frameFromRecords(records string) (*frame, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(records)))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return nil, errors.New("records must be a JSON array of objects")
	}

	f := newFrame()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("read record %d: %w", f.Rows, err)
		}
		if d, ok := tok.(json.Delim); !ok || d != '{' {
			return nil, fmt.Errorf("record %d is not an object", f.Rows)
		}

		seen := map[string]bool{}
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("read record %d: %w", f.Rows, err)
			}
			key := keyTok.(string)

			var value any
			if err := dec.Decode(&value); err != nil {
				return nil, fmt.Errorf("read record %d field %q: %w", f.Rows, key, err)
			}
			if !f.has(key) {
				// Backfill earlier rows for a column that appears late.
				f.set(key, make([]any, f.Rows))
			}
			if seen[key] {
				f.Data[key][f.Rows] = normalize(value)
				continue
			}
			seen[key] = true
			f.Data[key] = append(f.Data[key], normalize(value))
		}
		if _, err := dec.Token(); err != nil {
			return nil, fmt.Errorf("read record %d: %w", f.Rows, err)
		}

		f.Rows++
		for _, c := range f.Cols {
			if len(f.Data[c]) < f.Rows {
				f.Data[c] = append(f.Data[c], nil)
			}
		}
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after records array")
	}
	return f, nil
}

// normalize turns decoded JSON numbers into int64 when they hold a whole value
// and float64 otherwise, recursing into lists and objects.
func normalize(v any) any {
	switch t := v.(type) {
	case json.Number:
		return domain.Number(t)
	case float64:
		return wholeToInt(t)
	case int:
		return int64(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = e
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = normalize(e)
		}
		return out
	}
	return v
}

func wholeToInt(f float64) any {
	if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
		return int64(f)
	}
	return f
}
