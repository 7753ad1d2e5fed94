package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCode_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Code
	}{
		{"number", `1`, "1"},
		{"large number", `26734`, "26734"},
		{"string", `"001"`, "001"},
		{"numeric string", `"12"`, "12"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Code
			require.NoError(t, json.Unmarshal([]byte(tt.in), &c))
			assert.Equal(t, tt.want, c)
		})
	}
}

func TestProvince_DecodeDepth2(t *testing.T) {
	body := `{"code":1,"name":"Hà Nội","districts":[{"code":1,"name":"Ba Đình","wards":[]},{"code":2,"name":"Hoàn Kiếm"}]}`

	var p Province
	require.NoError(t, json.Unmarshal([]byte(body), &p))

	assert.Equal(t, Code("1"), p.Code)
	assert.Equal(t, []Option{
		{Value: "1", Label: "Ba Đình"},
		{Value: "2", Label: "Hoàn Kiếm"},
	}, DistrictOptions(p.Districts))
}

func TestAddressSelection_WithKeepsDescendants(t *testing.T) {
	sel := AddressSelection{ProvinceCode: "01", DistrictCode: "001", WardCode: "00001"}

	next := sel.With(LevelProvince, "02")

	assert.Equal(t, "02", next.ProvinceCode)
	assert.Equal(t, "001", next.DistrictCode)
	assert.Equal(t, "00001", next.WardCode)
	assert.Equal(t, "01", sel.ProvinceCode, "receiver must not change")
}

func TestAddressSelection_Parent(t *testing.T) {
	sel := AddressSelection{ProvinceCode: "01", DistrictCode: "001"}

	assert.Equal(t, "", sel.Parent(LevelProvince))
	assert.Equal(t, "01", sel.Parent(LevelDistrict))
	assert.Equal(t, "001", sel.Parent(LevelWard))
}

func TestParseAddressLevel(t *testing.T) {
	for _, l := range []AddressLevel{LevelProvince, LevelDistrict, LevelWard} {
		got, ok := ParseAddressLevel(l.String())
		assert.True(t, ok)
		assert.Equal(t, l, got)
	}

	_, ok := ParseAddressLevel("country")
	assert.False(t, ok)
}
