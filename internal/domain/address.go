package domain

import "encoding/json"

// AddressLevel names one field of the province → district → ward cascade.
type AddressLevel int

const (
	LevelProvince AddressLevel = iota
	LevelDistrict
	LevelWard
)

func (l AddressLevel) String() string {
	switch l {
	case LevelProvince:
		return "province"
	case LevelDistrict:
		return "district"
	case LevelWard:
		return "ward"
	default:
		return "unknown"
	}
}

// ParseAddressLevel is the inverse of AddressLevel.String.
func ParseAddressLevel(s string) (AddressLevel, bool) {
	switch s {
	case "province":
		return LevelProvince, true
	case "district":
		return LevelDistrict, true
	case "ward":
		return LevelWard, true
	}
	return 0, false
}

// AddressSelection is the value of the three cascade fields. A code is only
// meaningful while its parent is set.
type AddressSelection struct {
	ProvinceCode string `json:"provinceCode,omitempty"`
	DistrictCode string `json:"districtCode,omitempty"`
	WardCode     string `json:"wardCode,omitempty"`
}

// Code returns the selected value of level.
func (s AddressSelection) Code(level AddressLevel) string {
	switch level {
	case LevelProvince:
		return s.ProvinceCode
	case LevelDistrict:
		return s.DistrictCode
	case LevelWard:
		return s.WardCode
	}
	return ""
}

// With returns a copy with level set to code. Descendant codes are kept;
// callers decide whether a stale descendant is cleared.
func (s AddressSelection) With(level AddressLevel, code string) AddressSelection {
	switch level {
	case LevelProvince:
		s.ProvinceCode = code
	case LevelDistrict:
		s.DistrictCode = code
	case LevelWard:
		s.WardCode = code
	}
	return s
}

// Parent returns the code the options of level depend on. The province
// level has no parent code and returns "".
func (s AddressSelection) Parent(level AddressLevel) string {
	switch level {
	case LevelDistrict:
		return s.ProvinceCode
	case LevelWard:
		return s.DistrictCode
	}
	return ""
}

// Option is one choice of a select field.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Code is an administrative unit code. The provinces API sends numbers;
// form values are strings.
type Code string

func (c *Code) UnmarshalJSON(b []byte) error {
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*c = Code(n.String())
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*c = Code(s)
	return nil
}

// Province is a top-level administrative unit. Districts is only filled
// when requested with depth=2.
type Province struct {
	Code      Code       `json:"code"`
	Name      string     `json:"name"`
	Districts []District `json:"districts,omitempty"`
}

// District is a second-level unit.
type District struct {
	Code  Code   `json:"code"`
	Name  string `json:"name"`
	Wards []Ward `json:"wards,omitempty"`
}

// Ward is a third-level unit.
type Ward struct {
	Code Code   `json:"code"`
	Name string `json:"name"`
}

// ProvinceOptions converts provinces to select options.
func ProvinceOptions(ps []Province) []Option {
	out := make([]Option, 0, len(ps))
	for _, p := range ps {
		out = append(out, Option{Value: string(p.Code), Label: p.Name})
	}
	return out
}

// DistrictOptions converts districts to select options.
func DistrictOptions(ds []District) []Option {
	out := make([]Option, 0, len(ds))
	for _, d := range ds {
		out = append(out, Option{Value: string(d.Code), Label: d.Name})
	}
	return out
}

// WardOptions converts wards to select options.
func WardOptions(ws []Ward) []Option {
	out := make([]Option, 0, len(ws))
	for _, w := range ws {
		out = append(out, Option{Value: string(w.Code), Label: w.Name})
	}
	return out
}
