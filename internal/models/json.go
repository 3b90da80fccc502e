package models

import (
	"encoding/json"
	"math"
)

// Premiums are never clamped, so summaries and attributions may carry
// non-finite values. encoding/json rejects those; they are written as the
// strings "inf", "-inf" and "nan" instead.

// JSONFloat returns v, or its string form when v is not finite.
func JSONFloat(v float64) any {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return v
}

func (s Summary) MarshalJSON() ([]byte, error) {
	type alias Summary
	return json.Marshal(struct {
		alias
		PremiumValue any `json:"premium_value"`
	}{alias: alias(s), PremiumValue: JSONFloat(s.PremiumValue)})
}

func (c Contribution) MarshalJSON() ([]byte, error) {
	type alias Contribution
	return json.Marshal(struct {
		alias
		Impact any `json:"impact"`
	}{alias: alias(c), Impact: JSONFloat(c.Impact)})
}

func (e Explanation) MarshalJSON() ([]byte, error) {
	type alias Explanation
	var impacts map[string]any
	if e.Impacts != nil {
		impacts = make(map[string]any, len(e.Impacts))
	}
	for name, v := range e.Impacts {
		impacts[name] = JSONFloat(v)
	}
	return json.Marshal(struct {
		alias
		ExpectedValue any            `json:"expected_value"`
		Impacts       map[string]any `json:"impacts"`
	}{alias: alias(e), ExpectedValue: JSONFloat(e.ExpectedValue), Impacts: impacts})
}
