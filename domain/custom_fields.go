package domain

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"time"
)

const (
	KindText   = CustomKind("text")
	KindDate   = CustomKind("date")
	KindOption = CustomKind("option")
)

type CustomKind string

func KindOf(t FieldType) CustomKind {
	switch t {
	case FieldDate:
		return KindDate
	case FieldSelect:
		return KindOption
	}
	return KindText
}

// CustomValue is the value of a non-standard form field. On the wire it is the bare
// string, the kind is assigned from the form field catalog when a request is validated.
type CustomValue struct {
	Kind CustomKind
	Raw  string
}

func Text(raw string) CustomValue {
	return CustomValue{Kind: KindText, Raw: raw}
}

func (v CustomValue) Date() (time.Time, bool) {
	if v.Kind != KindDate {
		return time.Time{}, false
	}
	t, err := time.Parse(DateLayout, v.Raw)
	return t, err == nil
}

func (v CustomValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Raw)
}

func (v *CustomValue) UnmarshalJSON(data []byte) error {
	v.Kind = ""
	if bytes.Equal(data, []byte("null")) {
		v.Raw = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v.Raw = s
		return nil
	}
	// legacy rows may hold numbers or booleans
	v.Raw = string(data)
	return nil
}

type CustomFields map[string]CustomValue

func (t CustomFields) Value() (driver.Value, error) {
	if t == nil {
		return nil, nil
	}
	jsonBytes, err := json.Marshal(&t)
	if err != nil {
		return nil, err
	}
	return string(jsonBytes), nil
}

func (t *CustomFields) Scan(v interface{}) error {
	return scanJSON(v, t)
}
