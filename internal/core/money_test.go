package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half away from zero
		{" 2.50 ", 250, true},
		{"-1", 0, false},
		{"0", 0, false},
		{"0.004", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
		{"92233720368547758.07", 9223372036854775807, true},
		{"92233720368547758.08", 0, false},
		{"184467440737095516.17", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMoneyString(t *testing.T) {
	cases := map[int64]string{
		1250:  "12.50",
		5:     "0.05",
		0:     "0.00",
		-3333: "-33.33",
	}
	for cents, want := range cases {
		if got := (Money{Cents: cents}).String(); got != want {
			t.Errorf("Money{%d}.String() = %q, want %q", cents, got, want)
		}
	}
}

func TestMoneyJSON(t *testing.T) {
	var payload struct {
		Amount Money `json:"amount"`
	}
	inputs := map[string]int64{
		`{"amount": 100.5}`:    10050,
		`{"amount": "33.335"}`: 3334,
		`{"amount": 7}`:        700,
	}
	for in, want := range inputs {
		if err := json.Unmarshal([]byte(in), &payload); err != nil {
			t.Fatalf("unmarshal %s: %v", in, err)
		}
		if payload.Amount.Cents != want {
			t.Errorf("unmarshal %s = %d cents, want %d", in, payload.Amount.Cents, want)
		}
	}

	out, err := json.Marshal(struct {
		Amount Money `json:"amount"`
	}{Money{Cents: 10050}})
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != `{"amount":100.50}` {
		t.Errorf("marshal = %s", out)
	}

	if err := json.Unmarshal([]byte(`{"amount": "ten"}`), &payload); err == nil {
		t.Error("expected error for non numeric amount")
	}

	for _, in := range []string{
		`{"amount": 184467440737095516.17}`,
		`{"amount": "184467440737095516.17"}`,
		`{"amount": -92233720368547758.09}`,
	} {
		payload.Amount = Money{Cents: 42}
		err := json.Unmarshal([]byte(in), &payload)
		if !errors.Is(err, ErrMoneyOutOfRange) || !errors.Is(err, ErrInvalidInput) {
			t.Errorf("unmarshal %s error = %v, want %v", in, err, ErrMoneyOutOfRange)
		}
		if payload.Amount.Cents != 42 {
			t.Errorf("unmarshal %s overwrote amount with %d cents", in, payload.Amount.Cents)
		}
	}
}
