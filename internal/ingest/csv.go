// EventBnb - Event-Aware Rental Pricing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventbnb

package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
)

// readCSV resolves the header against columns and calls fn for every data
// row. Rows are numbered from 1, header excluded. A malformed CSV line is
// reported through bad and reading continues.
func readCSV(r io.Reader, source string, columns []column, fn func(rec record, row int), bad func(row int, err error)) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("ingest: %s: empty input", source)
	}
	if err != nil {
		return fmt.Errorf("ingest: %s: read header: %w", source, err)
	}
	cols, err := resolveHeader(source, header, columns)
	if err != nil {
		return err
	}

	for row := 1; ; row++ {
		cells, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			bad(row, parseErr.Err)
			continue
		}
		if err != nil {
			return fmt.Errorf("ingest: %s: row %d: %w", source, row, err)
		}
		if isBlank(cells) {
			continue
		}
		fn(record{cells: cells, cols: cols}, row)
	}
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}

func openFile(path string) (*os.File, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from operator configuration
	if err != nil {
		return nil, fmt.Errorf("ingest: open %s: %w", path, err)
	}
	return f, nil
}
