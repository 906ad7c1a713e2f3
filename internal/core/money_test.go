package core

import "testing"

func TestParseMoney(t *testing.T) {
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
		{"-1.005", -101, true},
		{" 2.50 ", 250, true},
		{"-50", -5000, true},
		{"0", 0, true},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseMoney(tc.in)
		if tc.ok {
			if err != nil || got.Cents != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got.Cents, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestParseNonNegativeMoney(t *testing.T) {
	if _, err := ParseNonNegativeMoney("-1"); err != ErrNegativeAmount {
		t.Fatalf("expected ErrNegativeAmount, got %v", err)
	}
	m, err := ParseNonNegativeMoney("200")
	if err != nil || m.Cents != 20000 {
		t.Fatalf("unexpected: %v %v", m, err)
	}
}

func TestMoneyFormat(t *testing.T) {
	if got := (Money{Cents: -5000}).Format("R"); got != "R-50.00" {
		t.Fatalf("got %q", got)
	}
	if got := (Money{Cents: 1234}).String(); got != "12.34" {
		t.Fatalf("got %q", got)
	}
}
