package pipeline

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// ReadInputCSV reads the raw slot records. The "company" and "slot_type"
// columns are required; "person_name", "domain", and "prior_hash" are
// optional.
func ReadInputCSV(r io.Reader) ([]InputRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"company", "slot_type"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("missing required column %q", required)
		}
	}

	field := func(rec []string, name string) string {
		idx, ok := col[name]
		if !ok || idx >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[idx])
	}

	var rows []InputRow
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		rows = append(rows, InputRow{
			Company:    field(rec, "company"),
			SlotType:   field(rec, "slot_type"),
			PersonName: field(rec, "person_name"),
			Domain:     field(rec, "domain"),
			PriorHash:  field(rec, "prior_hash"),
		})
	}
	return rows, nil
}

// WriteCSV writes output rows under the stable header.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header()); err != nil {
		return err
	}
	for _, row := range rows {
		if err := cw.Write(row.record()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
