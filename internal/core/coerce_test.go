package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCoerceNumeric(t *testing.T) {
	tests := []struct {
		raw       string
		want      string
		wantValid bool
	}{
		{"5000", "5000", true},
		{" 5000.0 ", "5000", true},
		{"5e3", "5000", true},
		{"-12.5", "-12.5", true},
		{".5", "0.5", true},
		{"TRUE", "1", true},
		{"false", "0", true},
		{"", "0", false},
		{"   ", "0", false},
		{"abc", "0", false},
		{"1,5", "0", false},
		{`="250"`, "250", true},
		{"1e30", "1e30", true},
		{"1e2000000000", "0", false},
		{"-5e-2000000000", "0", false},
		{"0.0000000000000000000000000000001", "0", false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, valid := CoerceNumeric(tt.raw)
			assert.Equal(t, tt.wantValid, valid)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "CoerceNumeric(%q) = %s, want %s", tt.raw, got, tt.want)
		})
	}
}

func TestIsUnset(t *testing.T) {
	for raw, want := range map[string]bool{
		"0":     true,
		"0.0":   true,
		"":      true,
		"no":    true,
		"false": true,
		"1":     false,
		"true":  false,
		"2":     false,
	} {
		assert.Equal(t, want, IsUnset(CoerceAmount(raw)), "IsUnset(%q)", raw)
	}
}

func TestCoerceKey(t *testing.T) {
	tests := []struct {
		raw   string
		want  int64
		valid bool
	}{
		{"12", 12, true},
		{"12.0", 12, true},
		{" 7 ", 7, true},
		{"1e2", 100, true},
		{"12.5", 0, false},
		{"", 0, false},
		{"true", 0, false},
		{"x1", 0, false},
		{"99999999999999999999", 0, false},
		{"1e2000000000", 0, false},
		{"1e-2000000000", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := CoerceKey(tt.raw)
			assert.Equal(t, tt.valid, got.Valid)
			if tt.valid {
				assert.Equal(t, tt.want, got.Int64)
			}
		})
	}
}

func TestCoerceHugeExponentReturnsPromptly(t *testing.T) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		CoerceKey("1e2000000000")
		ds := Dataset{
			Registrations: []Registration{{TitleID: CoerceKey("1"), FeeAmount: CoerceAmount("1e2000000000"), FeeCollected: decimal.Zero}},
		}
		Reconcile(ds, MergeOptions{})
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("coercion of a huge exponent did not return within 5s")
	}
}

func TestMinorToMajor(t *testing.T) {
	got := MinorToMajor(decimal.NewFromInt(30250))
	assert.Equal(t, "302.50", got.StringFixed(2))

	got = MinorToMajor(decimal.RequireFromString("1"))
	assert.Equal(t, "0.01", got.StringFixed(2))
}

func TestCleanCell(t *testing.T) {
	tests := map[string]string{
		"  hello  ": "hello",
		`="00123"`:  "00123",
		"=SUM":      "SUM",
		`"quoted"`:  "quoted",
		"":          "",
	}
	for in, want := range tests {
		assert.Equal(t, want, CleanCell(in), "CleanCell(%q)", in)
	}
}

func TestMakeHeaderIndex(t *testing.T) {
	idx := MakeHeaderIndex([]string{"ID", " Titulo ", "id"})
	assert.Equal(t, 0, idx["id"], "first duplicate wins")
	assert.Equal(t, 1, idx["titulo"])
	assert.Len(t, idx, 2)
}

func TestToPgText(t *testing.T) {
	assert.False(t, ToPgText("   ").Valid)

	got := ToPgText(" Foo ")
	assert.True(t, got.Valid)
	assert.Equal(t, "Foo", got.String)
}
