package signal

// FieldStatus describes one required field of a payload for diagnostics.
type FieldStatus struct {
	Exists   bool   `json:"exists"`
	Value    any    `json:"value"`
	HasValue bool   `json:"hasValue"`
	Type     string `json:"type"`
}

// ValueCheck compares a received value with what the automated path expects.
type ValueCheck struct {
	Received any    `json:"received"`
	Expected string `json:"expected"`
	Valid    bool   `json:"valid"`
}

// Analysis is a side-effect-free report on an automated payload.
type Analysis struct {
	Fields  map[string]FieldStatus `json:"field_analysis"`
	Missing []string               `json:"missing_fields,omitempty"`
	Checks  map[string]ValueCheck  `json:"validation_details,omitempty"`
	Invalid []string               `json:"invalid_fields,omitempty"`
}

// OK reports whether the payload would pass automated validation of the
// required fields.
func (a Analysis) OK() bool { return len(a.Missing) == 0 && len(a.Invalid) == 0 }

// Analyze inspects p against AutomatedRules without touching any state.
// Value checks only run when every required field is present.
func Analyze(p Payload) Analysis {
	a := Analysis{Fields: make(map[string]FieldStatus, len(AutomatedRules.Required))}
	for _, field := range AutomatedRules.Required {
		v, exists := p[field]
		a.Fields[field] = FieldStatus{
			Exists:   exists,
			Value:    v,
			HasValue: p.Has(field),
			Type:     typeName(v),
		}
		if !p.Has(field) {
			a.Missing = append(a.Missing, field)
		}
	}
	if len(a.Missing) > 0 {
		return a
	}

	sym, _ := p["symbol"].(string)
	raw, _ := p["action"].(string)
	_, actionOK := ParseAction(raw)
	price, priceOK := p.Number("price")

	a.Checks = map[string]ValueCheck{
		"symbol": {Received: p["symbol"], Expected: Symbol, Valid: sym == Symbol},
		"action": {Received: p["action"], Expected: "BUY, SELL, or CLOSE", Valid: actionOK},
		"price":  {Received: p["price"], Expected: "positive number", Valid: priceOK && price > 0},
	}
	for _, field := range AutomatedRules.Required {
		if !a.Checks[field].Valid {
			a.Invalid = append(a.Invalid, field)
		}
	}
	return a
}
