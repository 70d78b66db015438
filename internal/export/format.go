package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"

	"gsc-insights/internal/report"
)

// Format is an export encoding.
type Format string

// Supported formats.
const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ContentType is the MIME type stored with uploaded objects.
func (f Format) ContentType() string {
	if f == FormatJSON {
		return "application/json"
	}
	return "text/csv"
}

// FormatFor picks the format from the key extension; anything but .json is
// CSV.
func FormatFor(key string) Format {
	if strings.EqualFold(path.Ext(key), ".json") {
		return FormatJSON
	}
	return FormatCSV
}

// Encode writes t to w. CSV has a header row and cells formatted like the
// CLI table; JSON is an array of column-keyed records.
func Encode(w io.Writer, t *report.Table, f Format) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(t.Records()); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		return nil
	case FormatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write(t.Columns); err != nil {
			return fmt.Errorf("encode csv header: %w", err)
		}
		if err := cw.WriteAll(t.Strings()); err != nil {
			return fmt.Errorf("encode csv: %w", err)
		}
		return nil
	}
	return fmt.Errorf("unsupported export format %q", f)
}

func encodeBytes(t *report.Table, f Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, t, f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
