package bulk

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"

	"parcel-harvester/pkg/models"
)

type ajaxResponse struct {
	Data []json.RawMessage `json:"data"`
}

// decodeRows reads the "data" array of a GetAjax response. Rows are either
// objects, keyed by property name, or arrays, keyed by column index.
func decodeRows(body []byte) ([]models.Record, error) {
	var resp ajaxResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}

	rows := make([]models.Record, 0, len(resp.Data))
	for _, raw := range resp.Data {
		row, err := decodeRow(raw)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func decodeRow(raw json.RawMessage) (models.Record, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, errors.New("empty row")
	}

	switch raw[0] {
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, err
		}
		row := make(models.Record, len(obj))
		for k, v := range obj {
			row[k] = scalar(v)
		}
		return row, nil
	case '[':
		var arr []json.RawMessage
		if err := json.Unmarshal(raw, &arr); err != nil {
			return nil, err
		}
		row := make(models.Record, len(arr))
		for i, v := range arr {
			row[strconv.Itoa(i)] = scalar(v)
		}
		return row, nil
	}
	return nil, errors.New("row is neither an object nor an array")
}

// scalar renders one JSON value as a table cell: strings unquoted, numbers
// in plain decimal notation, null blank, anything nested as compact JSON.
func scalar(v json.RawMessage) string {
	v = bytes.TrimSpace(v)
	if len(v) == 0 || bytes.Equal(v, []byte("null")) {
		return ""
	}
	switch v[0] {
	case '"':
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			return s
		}
	case '{', '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, v); err == nil {
			return buf.String()
		}
	case 't', 'f':
		return string(v)
	default:
		// as written, so long integers stay exact
		if !bytes.ContainsAny(v, "eE") {
			return string(v)
		}
		if f, err := strconv.ParseFloat(string(v), 64); err == nil {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
	}
	return string(v)
}
