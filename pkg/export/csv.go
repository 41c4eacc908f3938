// Package export flattens joined (user, post, comment) triples into the
// CSV output file.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/Sternrassler/placeholder-export/pkg/logging"
	"github.com/Sternrassler/placeholder-export/pkg/pipeline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// rowsExportedTotal counts data rows written across runs of the process.
var rowsExportedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "export_rows_total",
	Help: "Total CSV data rows written",
})

// Header is the fixed CSV column set, one data row per triple.
var Header = []string{
	"user_id",
	"user_name",
	"user_email",
	"post_id",
	"post_title",
	"comment_id",
	"comment_name",
	"comment_email",
	"comment_body",
}

// WriteCSV writes the triples to path as UTF-8 comma-delimited CSV,
// overwriting any existing file. An empty triple slice produces a
// header-only file, which is not an error. Returns the data row count.
func WriteCSV(path string, triples []pipeline.Triple) (int, error) {
	logger := logging.NewLogger("exporter")

	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create output file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	if err := writer.Write(Header); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}

	for _, triple := range triples {
		record := []string{
			strconv.FormatInt(triple.User.ID, 10),
			triple.User.Name,
			triple.User.Email,
			strconv.FormatInt(triple.Post.ID, 10),
			triple.Post.Title,
			strconv.FormatInt(triple.Comment.ID, 10),
			triple.Comment.Name,
			triple.Comment.Email,
			triple.Comment.Body,
		}
		if err := writer.Write(record); err != nil {
			return 0, fmt.Errorf("write row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return 0, fmt.Errorf("flush output: %w", err)
	}
	if err := file.Close(); err != nil {
		return 0, fmt.Errorf("close output file: %w", err)
	}

	rowsExportedTotal.Add(float64(len(triples)))
	logger.Info().
		Str("path", path).
		Int("rows", len(triples)).
		Msg("CSV written")

	return len(triples), nil
}
