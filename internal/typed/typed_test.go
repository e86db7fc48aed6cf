package typed

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		cell     string
		expected Value
	}{
		{cell: "", expected: Value{Kind: Missing}},
		{cell: "   ", expected: Value{Kind: Missing}},
		{cell: "$150,000", expected: Value{Kind: Number, Num: 150000, Str: "$150,000"}},
		{cell: "0.25", expected: Value{Kind: Number, Num: 0.25, Str: "0.25"}},
		{cell: "DOE JOHN", expected: Value{Kind: String, Str: "DOE JOHN"}},
		{cell: "2021-03-01", expected: Value{Kind: String, Str: "2021-03-01"}},
	}

	for _, test := range testCases {
		require.Equal(t, test.expected, Parse(test.cell), test.cell)
	}
}

func TestInferColumnWholeColumn(t *testing.T) {
	col := InferColumn("price", []string{"$1,000", "", "$2,500"})
	require.Equal(t, Number, col.Kind)
	require.Equal(t, 1, col.Missing)
	require.Equal(t, 2500.0, col.Values[2].Num)

	// one non-numeric cell keeps the whole column as text
	col = InferColumn("sbl", []string{"90", "90.1-2-3"})
	require.Equal(t, String, col.Kind)
	require.Equal(t, Value{Kind: String, Str: "90"}, col.Values[0])

	col = InferColumn("empty", []string{"", ""})
	require.Equal(t, Missing, col.Kind)
}

func TestInferColumnOrderIndependent(t *testing.T) {
	a := InferColumn("c", []string{"1", "x", ""})
	b := InferColumn("c", []string{"", "x", "1"})
	require.Equal(t, a.Kind, b.Kind)
	require.Equal(t, a.Missing, b.Missing)
}

func TestInferColumnDate(t *testing.T) {
	col := InferColumn("MostRecentSaleDate", []string{"20210301", "20220415"})
	require.Equal(t, String, col.Kind)
}

func TestInferColumns(t *testing.T) {
	cols := InferColumns([]string{"a", "b"}, [][]string{{"1", "x"}, {"2"}})
	require.Len(t, cols, 2)
	require.Equal(t, Number, cols[0].Kind)
	require.Equal(t, String, cols[1].Kind)
	require.Equal(t, 1, cols[1].Missing)
}
