package util

import (
	"encoding/json"
	"strconv"
)

// ToFloat64 coerces the numeric encodings the feeds actually send into one
// canonical float64. NVD JSON yields float64 or json.Number depending on the
// decoder, EPSS CSV yields strings, and AQL result maps yield float64.
// Normalizing here keeps scoring arithmetic identical across runs; a value
// that cannot be coerced returns nil and the caller treats it as missing.
func ToFloat64(v interface{}) *float64 {
	switch n := v.(type) {
	case nil:
		return nil
	case float64:
		return &n
	case float32:
		f := float64(n)
		return &f
	case int:
		f := float64(n)
		return &f
	case int64:
		f := float64(n)
		return &f
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return &f
		}
		return nil
	case string:
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return &f
		}
		return nil
	default:
		return nil
	}
}

// Float64Ptr returns a pointer to v. Handy for literals in tests and rows.
func Float64Ptr(v float64) *float64 {
	return &v
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}
