package internetarchive

import (
	"encoding/json"
	"strconv"
	"strings"
)

// The archive's search index serves the same field as a string, a number,
// or an array depending on the item, so each flexible type accepts every
// shape it has been observed in.

type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*f = flexString(strings.Join(list, "; "))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexString(n.String())
		return nil
	}
	*f = ""
	return nil
}

type flexList []string

func (f *flexList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*f = list
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil && s != "" {
		*f = []string{s}
		return nil
	}
	*f = nil
	return nil
}

type flexInt int64

func (f *flexInt) UnmarshalJSON(data []byte) error {
	var n int64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexInt(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if parsed, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			*f = flexInt(parsed)
			return nil
		}
	}
	var float float64
	if err := json.Unmarshal(data, &float); err == nil {
		*f = flexInt(int64(float))
		return nil
	}
	*f = 0
	return nil
}

type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	var float float64
	if err := json.Unmarshal(data, &float); err == nil {
		*f = flexFloat(float)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			*f = flexFloat(parsed)
			return nil
		}
	}
	*f = 0
	return nil
}
