package signal

import "strings"

// Rules parameterize validation per inbound path.
type Rules struct {
	// Required fields must be present, non-null and non-empty. Checked in order.
	Required []string
	// EnforceSymbol rejects payloads whose symbol is not Symbol.
	EnforceSymbol bool
}

var (
	AutomatedRules = Rules{Required: []string{"symbol", "action", "price"}, EnforceSymbol: true}
	ManualRules    = Rules{Required: []string{"action", "price"}}
)

// Fields is the validated, type-coerced view of a payload.
type Fields struct {
	Symbol     string
	Action     Action
	Price      float64
	StopLoss   *float64
	TakeProfit *float64
	Timeframe  string
	Reason     string
	Strategy   string
	UserID     string
}

// Validate checks p against rules and returns the coerced fields.
// It has no side effects; the first failing rule is reported as a *FieldError.
func Validate(p Payload, rules Rules) (Fields, error) {
	for _, field := range rules.Required {
		if !p.Has(field) {
			return Fields{}, &FieldError{Field: field, Err: ErrMissingField}
		}
	}

	var f Fields
	if rules.EnforceSymbol {
		sym, ok := p["symbol"].(string)
		if !ok || sym != Symbol {
			return Fields{}, &FieldError{Field: "symbol", Err: ErrInvalidSymbol}
		}
		f.Symbol = sym
	}

	raw, _ := p["action"].(string)
	action, ok := ParseAction(raw)
	if !ok {
		return Fields{}, &FieldError{Field: "action", Err: ErrInvalidAction}
	}
	f.Action = action

	price, ok := p.Number("price")
	if !ok || price <= 0 {
		return Fields{}, &FieldError{Field: "price", Err: ErrInvalidPrice}
	}
	f.Price = price

	sl, err := optionalPositive(p, "stop_loss", ErrInvalidStopLoss)
	if err != nil {
		return Fields{}, err
	}
	f.StopLoss = sl

	tp, err := optionalPositive(p, "take_profit", ErrInvalidTakeProfit)
	if err != nil {
		return Fields{}, err
	}
	f.TakeProfit = tp

	f.Timeframe = strings.TrimSpace(p.Text("timeframe"))
	f.Reason = p.Text("reason")
	f.Strategy = p.Text("strategy")
	f.UserID = strings.TrimSpace(p.Text("userId"))
	return f, nil
}

func optionalPositive(p Payload, key string, rule error) (*float64, error) {
	if !p.Has(key) {
		return nil, nil
	}
	v, ok := p.Number(key)
	if !ok || v <= 0 {
		return nil, &FieldError{Field: key, Err: rule}
	}
	return &v, nil
}
