// Package typed is the boundary where consolidated string cells become
// values a dashboard can chart. Nothing upstream of it infers types.
package typed

import (
	"strconv"
	"strings"
)

type Kind int

const (
	Missing Kind = iota
	Number
	String
)

func (k Kind) String() string {
	switch k {
	case Number:
		return "number"
	case String:
		return "string"
	}
	return "missing"
}

// Value is a cell after best-effort coercion.
type Value struct {
	Kind Kind
	Num  float64
	Str  string
}

// Parse coerces one cell. Currency punctuation ($ and ,) is stripped before
// the numeric attempt; a cell that still does not parse keeps its original
// text.
func Parse(cell string) Value {
	trimmed := strings.TrimSpace(cell)
	if trimmed == "" {
		return Value{Kind: Missing}
	}
	cleaned := strings.NewReplacer("$", "", ",", "").Replace(trimmed)
	if f, err := strconv.ParseFloat(strings.TrimSpace(cleaned), 64); err == nil {
		return Value{Kind: Number, Num: f, Str: cell}
	}
	return Value{Kind: String, Str: cell}
}

// DateColumns are kept as strings even when every cell looks numeric.
var DateColumns = map[string]bool{
	"MostRecentSaleDate": true,
}

// Column is one column of a table after inference.
type Column struct {
	Name    string
	Kind    Kind
	Values  []Value
	Missing int
}

// InferColumn types a whole column: it is numeric only if every non-missing
// cell parses as a number, otherwise every cell stays a string. An all-blank
// column is Missing.
func InferColumn(name string, cells []string) Column {
	col := Column{Name: name, Values: make([]Value, len(cells))}

	numeric := !DateColumns[name]
	seen := false
	for i, c := range cells {
		v := Parse(c)
		col.Values[i] = v
		switch v.Kind {
		case Missing:
			col.Missing++
		case String:
			numeric = false
			seen = true
		case Number:
			seen = true
		}
	}

	switch {
	case !seen:
		col.Kind = Missing
	case numeric:
		col.Kind = Number
	default:
		col.Kind = String
		for i, v := range col.Values {
			if v.Kind == Number {
				col.Values[i] = Value{Kind: String, Str: cells[i]}
			}
		}
	}
	return col
}

// InferColumns types every column of a header + rows table.
func InferColumns(header []string, rows [][]string) []Column {
	out := make([]Column, len(header))
	for j, name := range header {
		cells := make([]string, len(rows))
		for i, row := range rows {
			if j < len(row) {
				cells[i] = row[j]
			}
		}
		out[j] = InferColumn(name, cells)
	}
	return out
}
