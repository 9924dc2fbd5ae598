package pricing

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNumber(t *testing.T) {
	cases := []struct {
		in    string
		valid bool
		want  string
	}{
		{"12", true, "12"},
		{" 12.50 ", true, "12.5"},
		{"-3", true, "-3"},
		{"", false, "0"},
		{"   ", false, "0"},
		{"12abc", false, "0"},
		{"1,5", false, "0"},
		{"1e3", true, "1000"},
		{"1e2000000000", false, "0"},
		{"1e-2147483647", false, "0"},
		{"1234567890123456789012345678901", false, "0"},
		{"0.000000000000000000001", false, "0"},
	}
	for _, c := range cases {
		n := ParseNumber(c.in)
		assert.Equal(t, c.valid, n.Valid, c.in)
		assert.Equal(t, c.in, n.Raw)
		assert.Equal(t, c.want, n.value().String(), c.in)
	}
}

func TestNumber_UnmarshalJSON(t *testing.T) {
	var doc struct {
		A Number `json:"a"`
		B Number `json:"b"`
		C Number `json:"c"`
		D Number `json:"d"`
	}
	err := json.Unmarshal([]byte(`{"a": 2.5, "b": "7", "c": "seven", "d": null}`), &doc)
	require.NoError(t, err)

	assert.True(t, doc.A.Valid)
	assert.Equal(t, "2.5", doc.A.Value.String())
	assert.True(t, doc.B.Valid)
	assert.False(t, doc.C.Valid)
	assert.Equal(t, "seven", doc.C.Raw)
	assert.False(t, doc.D.Valid)
}

func TestNumberFromFloat(t *testing.T) {
	n := NumberFromFloat(1200.5)
	assert.True(t, n.Valid)
	assert.Equal(t, "1200.5", n.Raw)
}

func TestParseNumber_BoundedInputStaysComputable(t *testing.T) {
	it := MakeLineItem("Panel", "99999999999999999999", "99999999999999999999", "0.00000000000000000001", "100")
	require.Empty(t, ValidateItems([]LineItem{it}))

	assert.NotPanics(t, func() {
		ComputeTotals([]LineItem{it, it})
	})
}
