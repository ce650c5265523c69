package models

import (
	json "github.com/goccy/go-json"
	"github.com/spf13/cast"
)

// FlexInt decodes numbers that the archive exports either as JSON numbers or
// as numeric strings.
type FlexInt int

func (f *FlexInt) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	if v == nil {
		*f = 0
		return nil
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return err
	}
	*f = FlexInt(n)
	return nil
}
