package types

import (
	"encoding/json"
	"math/big"
	"testing"
)

func TestAmountConstructors(t *testing.T) {
	tests := []struct {
		name string
		got  Amount
		want string
	}{
		{"Zero", Zero(), "0"},
		{"NewAmount", NewAmount(4900), "4900"},
		{"ParseAmount", MustParseAmount("340282366920938463463374607431768211456"), "340282366920938463463374607431768211456"},
		{"MaxAmount", MaxAmount(), "115792089237316195423570985008687907853269984665640564039457584007913129639935"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got.String() != tt.want {
				t.Errorf("got %s, want %s", tt.got.String(), tt.want)
			}
		})
	}
}

func TestParseAmountRejects(t *testing.T) {
	inputs := []string{"", "-1", "+1", "1.5", "abc", "0x10",
		"115792089237316195423570985008687907853269984665640564039457584007913129639936"}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			if _, err := ParseAmount(in); err == nil {
				t.Errorf("expected error for %q", in)
			}
		})
	}
}

func TestAmountArithmetic(t *testing.T) {
	tests := []struct {
		name   string
		op     func() (Amount, bool)
		want   Amount
		wantOK bool
	}{
		{"Add", func() (Amount, bool) { return NewAmount(100).Add(NewAmount(200)) }, NewAmount(300), true},
		{"Sub", func() (Amount, bool) { return NewAmount(500).Sub(NewAmount(200)) }, NewAmount(300), true},
		{"Sub to zero", func() (Amount, bool) { return NewAmount(7).Sub(NewAmount(7)) }, Zero(), true},
		{"Sub underflow", func() (Amount, bool) { return NewAmount(1).Sub(NewAmount(2)) }, Amount{}, false},
		{"Add overflow", func() (Amount, bool) { return MaxAmount().Add(NewAmount(1)) }, Amount{}, false},
		{"Sum", func() (Amount, bool) { return Sum(NewAmount(1), NewAmount(2), NewAmount(3)) }, NewAmount(6), true},
		{"Sum overflow", func() (Amount, bool) { return Sum(MaxAmount(), NewAmount(1)) }, Amount{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.op()
			if ok != tt.wantOK {
				t.Fatalf("ok: got %v, want %v", ok, tt.wantOK)
			}
			if ok && !got.Equal(tt.want) {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestAmountComparison(t *testing.T) {
	small, big := NewAmount(1), NewAmount(2)

	if !small.LessThan(big) {
		t.Error("1 should be less than 2")
	}
	if big.LessThan(small) {
		t.Error("2 should not be less than 1")
	}
	if small.Cmp(big) != -1 || big.Cmp(small) != 1 || small.Cmp(NewAmount(1)) != 0 {
		t.Error("Cmp returned an unexpected ordering")
	}
	if !Zero().IsZero() || small.IsZero() {
		t.Error("IsZero mismatch")
	}
	if NewAmount(5) != NewAmount(5) {
		t.Error("equal amounts should compare equal with ==")
	}
}

func TestAmountFormat(t *testing.T) {
	tests := []struct {
		amount   Amount
		decimals uint8
		want     string
	}{
		{NewAmount(4900), 2, "49.00"},
		{NewAmount(5), 2, "0.05"},
		{NewAmount(100), 0, "100"},
		{MustParseAmount("1000000000000000000"), 18, "1.000000000000000000"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.amount.Format(tt.decimals); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParseDisplay(t *testing.T) {
	got, err := ParseDisplay("12.5", 2)
	if err != nil {
		t.Fatalf("ParseDisplay failed: %v", err)
	}
	if !got.Equal(NewAmount(1250)) {
		t.Errorf("got %s, want 1250", got)
	}

	if _, err := ParseDisplay("0.001", 2); err == nil {
		t.Error("expected error for sub-unit precision")
	}
	if _, err := ParseDisplay("-1", 2); err == nil {
		t.Error("expected error for negative value")
	}
}

func TestAmountFromBig(t *testing.T) {
	a, err := AmountFromBig(big.NewInt(42))
	if err != nil {
		t.Fatalf("AmountFromBig failed: %v", err)
	}
	if a.BigInt().Int64() != 42 {
		t.Errorf("got %s, want 42", a)
	}

	if _, err := AmountFromBig(big.NewInt(-1)); err == nil {
		t.Error("expected error for negative value")
	}

	tooWide := new(big.Int).Lsh(big.NewInt(1), 256)
	if _, err := AmountFromBig(tooWide); err == nil {
		t.Error("expected error for 2^256")
	}
}

func TestAmountJSON(t *testing.T) {
	a := MustParseAmount("18446744073709551616")

	data, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `"18446744073709551616"` {
		t.Errorf("got %s", data)
	}

	var decoded Amount
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if !decoded.Equal(a) {
		t.Errorf("got %s, want %s", decoded, a)
	}

	var fromNumber Amount
	if err := json.Unmarshal([]byte(`1500`), &fromNumber); err != nil {
		t.Fatalf("Unmarshal number failed: %v", err)
	}
	if !fromNumber.Equal(NewAmount(1500)) {
		t.Errorf("got %s, want 1500", fromNumber)
	}
}

func TestAmountValueScan(t *testing.T) {
	original := NewAmount(987654321)
	val, err := original.Value()
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}

	var scanned Amount
	if err := scanned.Scan(val); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if !scanned.Equal(original) {
		t.Errorf("got %s, want %s", scanned, original)
	}

	if err := scanned.Scan(int64(-5)); err == nil {
		t.Error("expected error scanning a negative integer")
	}
	if err := scanned.Scan(nil); err != nil || !scanned.IsZero() {
		t.Errorf("Scan(nil): got %s, err %v", scanned, err)
	}
}

func TestAccountID(t *testing.T) {
	if !AccountID("").IsZero() {
		t.Error("empty account should be zero")
	}
	if got := ParseAccountID("  alice "); got != "alice" {
		t.Errorf("got %q, want alice", got)
	}

	a := AccountID("bob")
	p := a.Ptr()
	a = "carol"
	if *p != "bob" {
		t.Errorf("Ptr should copy: got %q", *p)
	}
}
