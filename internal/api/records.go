package api

import (
	"encoding/json"
	"fmt"

	"github.com/ppiankov/uscensus/internal/table"
)

// DecodeRecords decodes the API's array-of-arrays data response into a table.
// The first record is the header. Cells keep their JSON type: strings stay
// strings, bare numbers become float64 and nulls become nil.
func DecodeRecords(raw json.RawMessage) (*table.Table, error) {
	if len(raw) == 0 {
		return table.New(), nil
	}

	var records [][]any
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	if len(records) == 0 {
		return table.New(), nil
	}

	header := make([]string, len(records[0]))
	seen := make(map[string]bool, len(header))
	for i, h := range records[0] {
		name, ok := h.(string)
		if !ok {
			return nil, fmt.Errorf("decode records: column %d is %v, want a name", i, h)
		}
		if seen[name] {
			return nil, fmt.Errorf("decode records: duplicate column %q", name)
		}
		seen[name] = true
		header[i] = name
	}

	t := table.New(header...)
	for n, rec := range records[1:] {
		if len(rec) != len(header) {
			return nil, fmt.Errorf("decode records: row %d has %d fields, want %d", n+1, len(rec), len(header))
		}
		for i, v := range rec {
			switch v.(type) {
			case nil, string, float64, bool:
			default:
				return nil, fmt.Errorf("decode records: row %d column %q holds a nested value", n+1, header[i])
			}
		}
		t.Append(rec...)
	}
	return t, nil
}
