package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/aretw0/tabula/internal/recipe"
)

// ReadRecordsFile reads JSON, NDJSON or CSV records from path as a JSON array;
// "-" reads stdin. With FormatAuto the file extension picks the format, and
// stdin or an unknown extension is sniffed.
func ReadRecordsFile(path string, format recipe.Format, stdin io.Reader) (string, error) {
	if path == "-" {
		return recipe.ReadRecords(stdin, format)
	}
	if format == recipe.FormatAuto {
		format = recipe.FormatFromPath(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open records: %w", err)
	}
	defer f.Close()
	records, err := recipe.ReadRecords(f, format)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}
