package recipe

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Format names a records encoding.
type Format string

const (
	// FormatAuto sniffs the input: '[' starts a JSON array, '{' starts NDJSON,
	// anything else is read as CSV.
	FormatAuto   Format = ""
	FormatJSON   Format = "json"
	FormatNDJSON Format = "ndjson"
	FormatCSV    Format = "csv"
)

// ParseFormat accepts json, ndjson (or jsonl), csv, and auto or "".
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto":
		return FormatAuto, nil
	case "json":
		return FormatJSON, nil
	case "ndjson", "jsonl":
		return FormatNDJSON, nil
	case "csv":
		return FormatCSV, nil
	}
	return "", fmt.Errorf("unknown records format %q (use json, ndjson or csv)", name)
}

// FormatFromPath picks the format from a file extension, FormatAuto when it
// says nothing.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".ndjson", ".jsonl":
		return FormatNDJSON
	case ".csv":
		return FormatCSV
	}
	return FormatAuto
}

// ReadRecords reads records and returns them as the text of a JSON array of
// objects, ready for LoadJSON. JSON input passes through verbatim, so column
// order and number precision survive. Blank lines in NDJSON are skipped. CSV
// takes its columns from the header row and keeps every value as a string;
// short rows are padded with empty strings.
func ReadRecords(r io.Reader, format Format) (string, error) {
	br := bufio.NewReader(r)
	first, err := firstByte(br)
	if errors.Is(err, io.EOF) {
		return "[]", nil
	}
	if err != nil {
		return "", err
	}

	if format == FormatAuto {
		switch first {
		case '[':
			format = FormatJSON
		case '{':
			format = FormatNDJSON
		default:
			format = FormatCSV
		}
	}

	switch format {
	case FormatJSON:
		return readArray(br)
	case FormatNDJSON:
		return readNDJSON(br)
	case FormatCSV:
		return readCSV(br)
	}
	return "", fmt.Errorf("unknown records format %q", format)
}

func readArray(r io.Reader) (string, error) {
	var raw []json.RawMessage
	dec := json.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return "", fmt.Errorf("invalid JSON array: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return "", errors.New("invalid JSON array: unexpected data after the array")
	}
	for i, rec := range raw {
		if !isObject(rec) {
			return "", fmt.Errorf("invalid JSON array: record %d is not an object", i+1)
		}
	}
	return joinArray(raw), nil
}

func readNDJSON(r io.Reader) (string, error) {
	var raw []json.RawMessage
	dec := json.NewDecoder(r)
	for line := 1; ; line++ {
		var rec json.RawMessage
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			return joinArray(raw), nil
		}
		if err != nil {
			return "", fmt.Errorf("invalid NDJSON record %d: %w", line, err)
		}
		if !isObject(rec) {
			return "", fmt.Errorf("invalid NDJSON record %d: not an object", line)
		}
		raw = append(raw, rec)
	}
}

func readCSV(r io.Reader) (string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	headers, err := cr.Read()
	if err != nil {
		return "", fmt.Errorf("failed to read CSV headers: %w", err)
	}
	keys := make([][]byte, len(headers))
	for i, h := range headers {
		if keys[i], err = json.Marshal(strings.TrimSpace(h)); err != nil {
			return "", err
		}
	}

	var raw []json.RawMessage
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return joinArray(raw), nil
		}
		if err != nil {
			return "", fmt.Errorf("invalid CSV record %d: %w", line, err)
		}

		var b bytes.Buffer
		b.WriteByte('{')
		for i, key := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			value := ""
			if i < len(row) {
				value = row[i]
			}
			v, err := json.Marshal(value)
			if err != nil {
				return "", err
			}
			b.Write(key)
			b.WriteByte(':')
			b.Write(v)
		}
		b.WriteByte('}')
		raw = append(raw, b.Bytes())
	}
}

func isObject(rec json.RawMessage) bool {
	trimmed := bytes.TrimSpace(rec)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

func joinArray(raw []json.RawMessage) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, rec := range raw {
		if i > 0 {
			b.WriteByte(',')
		}
		b.Write(bytes.TrimSpace(rec))
	}
	b.WriteByte(']')
	return b.String()
}

// firstByte returns the first non-whitespace byte without consuming it.
func firstByte(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		if !bytes.ContainsRune([]byte(" \t\r\n"), rune(b)) {
			return b, br.UnreadByte()
		}
	}
}
