package taxonomy

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"case-reasons-training/internal/domain"
)

// Column headers of the source sheet.
const (
	ColReason1     = "Case Reason 1 (mandatory)"
	ColReason2     = "Case Reason 2 (mandatory)"
	ColReason3     = "Case Reason 3 (optional)"
	ColDescription = "Definition / Notes"
)

var (
	// ErrMissingColumn is returned when a required header is absent.
	ErrMissingColumn = errors.New("taxonomy: missing required column")
	// ErrIncompleteRecord is returned when a row has no Reason 1 or Reason 2
	// even after forward-fill.
	ErrIncompleteRecord = errors.New("taxonomy: record without reason 1 or reason 2")
	// ErrEmpty is returned when the file has a header but no records.
	ErrEmpty = errors.New("taxonomy: no records")
)

// Parse reads the taxonomy CSV. Reason 1 and Reason 2 are forward-filled
// independently (the sheet uses merged cells for groups); Reason 3 and the
// description never are.
func Parse(r io.Reader) (*Taxonomy, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("taxonomy: read header: %w", err)
	}
	cols, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	var (
		records   []domain.Scenario
		lastR1    string
		lastR2    string
		rowNumber int
	)
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("taxonomy: read row: %w", err)
		}
		rowNumber++
		if blankRow(row) {
			continue
		}

		rec := domain.Scenario{
			Reason1:     cell(row, cols[ColReason1]),
			Reason2:     cell(row, cols[ColReason2]),
			Reason3:     cell(row, cols[ColReason3]),
			Description: cell(row, cols[ColDescription]),
		}
		if rec.Reason1 == "" {
			rec.Reason1 = lastR1
		} else {
			lastR1 = rec.Reason1
		}
		if rec.Reason2 == "" {
			rec.Reason2 = lastR2
		} else {
			lastR2 = rec.Reason2
		}
		if rec.Reason1 == "" || rec.Reason2 == "" {
			return nil, fmt.Errorf("%w: data row %d", ErrIncompleteRecord, rowNumber)
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return nil, ErrEmpty
	}
	return New(records), nil
}

func columnIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, seen := idx[name]; !seen {
			idx[name] = i
		}
	}
	for _, required := range []string{ColReason1, ColReason2, ColReason3, ColDescription} {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, required)
		}
	}
	return idx, nil
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
