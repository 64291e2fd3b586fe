// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package agents

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Coercion helpers for decoded JSON values. Numbers arrive as float64.

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// asFloat accepts JSON numbers and numeric strings. NaN and infinities are
// rejected.
func asFloat(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case int:
		f = float64(x)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// asInt accepts whole numbers, either as JSON numbers or numeric strings.
func asInt(v any) (int, bool) {
	f, ok := asFloat(v)
	if !ok || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

// stringList converts a JSON array to strings. Nil and empty items are
// dropped; other scalars are formatted. ok is false when v is not an array.
func stringList(v any) ([]string, bool) {
	items, ok := v.([]any)
	if !ok {
		return []string{}, false
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		s, isString := item.(string)
		if !isString {
			s = fmt.Sprint(item)
		}
		if strings.TrimSpace(s) == "" {
			continue
		}
		out = append(out, s)
	}
	return out, true
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// missingKeys returns the keys absent from m, in the order given.
func missingKeys(m map[string]any, keys ...string) []string {
	var missing []string
	for _, k := range keys {
		if _, ok := m[k]; !ok {
			missing = append(missing, k)
		}
	}
	return missing
}
