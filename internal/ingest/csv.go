package ingest

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// readCSV reads a CSV file, transparently decompressing *.zst files.
func readCSV(ctx context.Context, src Source) ([]RawRow, error) {
	f, err := os.Open(src.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(strings.ToLower(src.Path), ".zst") {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open zstd stream: %w", err)
		}
		defer dec.Close()
		r = dec
	}
	return parseCSV(ctx, r, src.Label())
}

func parseCSV(ctx context.Context, r io.Reader, label string) ([]RawRow, error) {
	cr := csv.NewReader(bufio.NewReader(r))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = false

	first, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s: empty file", label)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: read header: %w", label, err)
	}
	h := parseHeader(first)
	if missing := h.missing(); len(missing) > 0 {
		return nil, fmt.Errorf("%s: missing required columns %v", label, missing)
	}

	var rows []RawRow
	line := 1
	for {
		if line%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		cells, err := cr.Read()
		line++
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				rows = append(rows, RawRow{Source: label, Line: line, Malformed: "parse_error"})
				continue
			}
			return nil, fmt.Errorf("%s: line %d: %w", label, line, err)
		}
		if blank(cells) {
			continue
		}
		row := h.row(cells, label, line)
		if len(cells) != len(first) {
			row.Malformed = "column_count"
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
