package signal

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDecode(t *testing.T, raw string) Payload {
	t.Helper()
	p, err := Decode([]byte(raw))
	require.NoError(t, err)
	return p
}

func TestDecodeRejectsNonObjects(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{``, `{`, `[]`, `"x"`, `42`, `null`, `{"a":1} {"b":2}`} {
		_, err := Decode([]byte(raw))
		assert.ErrorIs(t, err, ErrMalformedPayload, "input %q", raw)
		assert.Equal(t, "MalformedPayload", Code(err))
	}
}

func TestValidateAutomated(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		raw   string
		want  error
		field string
	}{
		{name: "ok", raw: `{"symbol":"XAUUSD","action":"BUY","price":2650.5}`},
		{name: "string numbers", raw: `{"symbol":"XAUUSD","action":"sell","price":" 2650.50 ","stop_loss":"2660","take_profit":"2640"}`},
		{name: "null optionals", raw: `{"symbol":"XAUUSD","action":"CLOSE","price":1,"stop_loss":null,"take_profit":""}`},
		{name: "missing symbol", raw: `{"action":"BUY","price":1}`, want: ErrMissingField, field: "symbol"},
		{name: "empty action", raw: `{"symbol":"XAUUSD","action":"","price":1}`, want: ErrMissingField, field: "action"},
		{name: "null price", raw: `{"symbol":"XAUUSD","action":"BUY","price":null}`, want: ErrMissingField, field: "price"},
		{name: "missing reported in order", raw: `{"price":1}`, want: ErrMissingField, field: "symbol"},
		{name: "wrong symbol", raw: `{"symbol":"EURUSD","action":"BUY","price":1}`, want: ErrInvalidSymbol, field: "symbol"},
		{name: "lowercase symbol", raw: `{"symbol":"xauusd","action":"BUY","price":1}`, want: ErrInvalidSymbol, field: "symbol"},
		{name: "symbol before action", raw: `{"symbol":"BTC","action":"HOLD","price":-1}`, want: ErrInvalidSymbol, field: "symbol"},
		{name: "bad action", raw: `{"symbol":"XAUUSD","action":"HOLD","price":1}`, want: ErrInvalidAction, field: "action"},
		{name: "numeric action", raw: `{"symbol":"XAUUSD","action":1,"price":1}`, want: ErrInvalidAction, field: "action"},
		{name: "zero price", raw: `{"symbol":"XAUUSD","action":"BUY","price":0}`, want: ErrInvalidPrice, field: "price"},
		{name: "negative price", raw: `{"symbol":"XAUUSD","action":"BUY","price":"-5"}`, want: ErrInvalidPrice, field: "price"},
		{name: "garbage price", raw: `{"symbol":"XAUUSD","action":"BUY","price":"abc"}`, want: ErrInvalidPrice, field: "price"},
		{name: "NaN price", raw: `{"symbol":"XAUUSD","action":"BUY","price":"NaN"}`, want: ErrInvalidPrice, field: "price"},
		{name: "bool price", raw: `{"symbol":"XAUUSD","action":"BUY","price":true}`, want: ErrInvalidPrice, field: "price"},
		{name: "zero stop loss", raw: `{"symbol":"XAUUSD","action":"BUY","price":1,"stop_loss":0}`, want: ErrInvalidStopLoss, field: "stop_loss"},
		{name: "garbage take profit", raw: `{"symbol":"XAUUSD","action":"BUY","price":1,"take_profit":"x"}`, want: ErrInvalidTakeProfit, field: "take_profit"},
		{name: "stop loss before take profit", raw: `{"symbol":"XAUUSD","action":"BUY","price":1,"stop_loss":-1,"take_profit":-1}`, want: ErrInvalidStopLoss, field: "stop_loss"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Validate(mustDecode(t, tt.raw), AutomatedRules)
			if tt.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.want)
			var fe *FieldError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, tt.field, fe.Field)
			assert.True(t, IsValidation(err))
		})
	}
}

func TestValidateCoercesFields(t *testing.T) {
	t.Parallel()
	p := mustDecode(t, `{"symbol":"XAUUSD","action":" buy ","price":"2650.50","stop_loss":2645,"take_profit":"2660.00","timeframe":15,"reason":"breakout","strategy":"SMC"}`)
	f, err := Validate(p, AutomatedRules)
	require.NoError(t, err)

	assert.Equal(t, Buy, f.Action)
	assert.InDelta(t, 2650.50, f.Price, 1e-9)
	require.NotNil(t, f.StopLoss)
	assert.InDelta(t, 2645.0, *f.StopLoss, 1e-9)
	require.NotNil(t, f.TakeProfit)
	assert.InDelta(t, 2660.0, *f.TakeProfit, 1e-9)
	assert.Equal(t, "15", f.Timeframe)
	assert.Equal(t, "breakout", f.Reason)
	assert.Equal(t, "SMC", f.Strategy)
}

func TestValidateManualIgnoresSymbol(t *testing.T) {
	t.Parallel()
	f, err := Validate(mustDecode(t, `{"symbol":"EURUSD","action":"SELL","price":10,"userId":"desk-1"}`), ManualRules)
	require.NoError(t, err)
	assert.Equal(t, Sell, f.Action)
	assert.Equal(t, "desk-1", f.UserID)

	_, err = Validate(mustDecode(t, `{"price":10}`), ManualRules)
	assert.ErrorIs(t, err, ErrMissingField)
	assert.Equal(t, "Missing required field: action", err.Error())
}

func TestErrorMessagesAndCodes(t *testing.T) {
	t.Parallel()
	cases := map[error]string{
		ErrInvalidSymbol:     "InvalidSymbol",
		ErrInvalidAction:     "InvalidAction",
		ErrInvalidPrice:      "InvalidPrice",
		ErrInvalidStopLoss:   "InvalidStopLoss",
		ErrInvalidTakeProfit: "InvalidTakeProfit",
		ErrMissingField:      "MissingField",
	}
	for sentinel, code := range cases {
		err := &FieldError{Field: "x", Err: sentinel}
		assert.Equal(t, code, Code(err))
	}
	assert.Equal(t, "Only XAUUSD signals are supported", (&FieldError{Field: "symbol", Err: ErrInvalidSymbol}).Error())
	assert.Equal(t, "", Code(errors.New("other")))
	assert.False(t, IsValidation(ErrMalformedPayload))
}

func TestAnalyze(t *testing.T) {
	t.Parallel()

	a := Analyze(mustDecode(t, `{"symbol":"XAUUSD","action":""}`))
	assert.False(t, a.OK())
	assert.Equal(t, []string{"action", "price"}, a.Missing)
	assert.True(t, a.Fields["action"].Exists)
	assert.False(t, a.Fields["action"].HasValue)
	assert.False(t, a.Fields["price"].Exists)
	assert.Equal(t, "null", a.Fields["price"].Type)
	assert.Nil(t, a.Checks)

	a = Analyze(mustDecode(t, `{"symbol":"XAUUSD","action":"hold","price":"2650.50"}`))
	assert.False(t, a.OK())
	assert.Equal(t, []string{"action"}, a.Invalid)
	assert.True(t, a.Checks["price"].Valid)
	assert.Equal(t, "string", a.Fields["price"].Type)

	a = Analyze(mustDecode(t, `{"symbol":"XAUUSD","action":"buy","price":1}`))
	assert.True(t, a.OK())
	assert.Equal(t, "number", a.Fields["price"].Type)
}
