package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowFloat(t *testing.T) {
	row := Row{
		FieldPrice:       "12.34",
		FieldVolume:      "-",
		FieldPledgeRatio: "",
		FieldRevenue:     "abc",
	}

	assert.Equal(t, 12.34, row.Float(FieldPrice, 0))
	assert.Equal(t, 7.0, row.Float(FieldVolume, 7), "dash placeholder falls back to default")
	assert.Equal(t, 7.0, row.Float(FieldPledgeRatio, 7))
	assert.Equal(t, 7.0, row.Float(FieldRevenue, 7))
	assert.Equal(t, 7.0, row.Float("missing", 7))
}

func TestTableEncodeDecode(t *testing.T) {
	in := &Table{
		Columns: []string{FieldCode, FieldName},
		Rows:    []Row{{FieldCode: "600519", FieldName: "贵州茅台"}},
	}

	data, err := in.Encode()
	require.NoError(t, err)

	out, err := DecodeTable(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = DecodeTable([]byte("{not json"))
	assert.Error(t, err)
}

func TestTableEmptyAndLen(t *testing.T) {
	var nilTable *Table
	assert.True(t, nilTable.Empty())
	assert.Equal(t, 0, nilTable.Len())
	assert.True(t, (&Table{}).Empty())
	assert.False(t, (&Table{Rows: []Row{{}}}).Empty())
}

func TestPadCode(t *testing.T) {
	assert.Equal(t, "600519", padCode("sh600519"))
	assert.Equal(t, "000001", padCode("SZ000001"))
	assert.Equal(t, "000001", padCode("1"))
	assert.Equal(t, "600519", padCode(" 600519 "))
}

func TestSecID(t *testing.T) {
	assert.Equal(t, "1.600519", secID("600519"))
	assert.Equal(t, "0.000001", secID("000001"))
	assert.Equal(t, "0.300750", secID("300750"))
}
