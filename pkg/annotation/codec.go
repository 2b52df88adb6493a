package annotation

import (
	"strconv"

	"github.com/ajitpratap0/nebula-profiler/pkg/json"
	"github.com/ajitpratap0/nebula-profiler/pkg/models"
)

// storedRow is the encoded form of a sampled row. JSON numbers carry no
// type, so the columns holding floating point values are listed and every
// other number is decoded as an int64.
type storedRow struct {
	ID     string                 `json:"id"`
	Values map[string]interface{} `json:"values"`
	Floats []string               `json:"floats,omitempty"`
}

func encodeRows(rows []models.Row) ([]byte, error) {
	stored := make([]storedRow, len(rows))
	for i, r := range rows {
		sr := storedRow{ID: r.ID, Values: r.Values}
		for col, v := range r.Values {
			switch v.(type) {
			case float32, float64:
				sr.Floats = append(sr.Floats, col)
			}
		}
		stored[i] = sr
	}
	return json.Marshal(stored)
}

func decodeRows(data []byte) ([]models.Row, error) {
	var stored []storedRow
	if err := json.UnmarshalNumbers(data, &stored); err != nil {
		return nil, err
	}

	rows := make([]models.Row, len(stored))
	for i, sr := range stored {
		floats := make(map[string]bool, len(sr.Floats))
		for _, col := range sr.Floats {
			floats[col] = true
		}
		row := models.Row{ID: sr.ID, Values: make(map[string]interface{}, len(sr.Values))}
		for col, v := range sr.Values {
			n, ok := v.(json.Number)
			if !ok {
				row.Values[col] = v
				continue
			}
			row.Values[col] = numberValue(n, floats[col])
		}
		rows[i] = row
	}
	return rows, nil
}

func numberValue(n json.Number, float bool) interface{} {
	if !float {
		if v, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
			return v
		}
	}
	if v, err := strconv.ParseFloat(n.String(), 64); err == nil {
		return v
	}
	return n.String()
}
