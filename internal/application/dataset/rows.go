package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Row is one record keyed by upper-case column name.
type Row map[string]string

// Listing is the subset of a row needed to list a property.
type Listing struct {
	ExternalID string
	Address    string
	City       string
	State      string
	Zip        string
	Valuation  float64
}

// ReadCSV reads up to limit data rows (all when limit <= 0) after the header.
func ReadCSV(r io.Reader, limit int) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	for i, h := range header {
		header[i] = strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	}

	var rows []Row
	for limit <= 0 || len(rows) < limit {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv row %d: %w", len(rows)+1, err)
		}
		row := make(Row, len(header))
		for i, v := range rec {
			if i < len(header) {
				row[header[i]] = strings.TrimSpace(v)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// RowFromJSON converts a decoded JSON object into a Row.
func RowFromJSON(obj map[string]interface{}) Row {
	row := make(Row, len(obj))
	for k, v := range obj {
		key := strings.ToUpper(strings.TrimSpace(k))
		switch t := v.(type) {
		case nil:
		case string:
			row[key] = strings.TrimSpace(t)
		case float64:
			row[key] = strconv.FormatFloat(t, 'f', -1, 64)
		case bool:
			row[key] = strconv.FormatBool(t)
		default:
			row[key] = fmt.Sprint(t)
		}
	}
	return row
}

// Value returns the first positive number among ESTIMATED_VALUE and SOLD_PRICE.
func (r Row) Value() float64 {
	for _, col := range []string{"ESTIMATED_VALUE", "SOLD_PRICE"} {
		if v, ok := r.number(col); ok && v > 0 {
			return v
		}
	}
	return 0
}

func (r Row) number(col string) (float64, bool) {
	raw := strings.ReplaceAll(strings.TrimPrefix(r[col], "$"), ",", "")
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Address prefers STREET_ADDRESS and falls back to ADDRESS.
func (r Row) Address() string {
	if a := r["STREET_ADDRESS"]; a != "" {
		return a
	}
	return r["ADDRESS"]
}

// Listing extracts a listable property. Rows without an id, street address, city or a
// positive value are rejected.
func (r Row) Listing() (Listing, bool) {
	l := Listing{
		ExternalID: r["PROPERTY_ID"],
		Address:    r["STREET_ADDRESS"],
		City:       r["CITY"],
		State:      r["STATE"],
		Zip:        r["ZIP"],
		Valuation:  r.Value(),
	}
	if l.ExternalID == "" || l.Address == "" || l.City == "" || l.Valuation <= 0 {
		return Listing{}, false
	}
	return l, true
}
