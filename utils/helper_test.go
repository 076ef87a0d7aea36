package utils

import (
	"testing"
)

func TestParseDecimal(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"100", "100", false},
		{" 250.75 ", "250.75", false},
		{"0.0001", "0.0001", false},
		{"", "", true},
		{"   ", "", true},
		{"abc", "", true},
	}
	for _, c := range cases {
		got, err := ParseDecimal(c.in)
		if c.wantErr {
			if err == nil {
				t.Fatalf("ParseDecimal(%q): expected error, got %s", c.in, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseDecimal(%q): unexpected error: %v", c.in, err)
		}
		if got.String() != c.want {
			t.Fatalf("ParseDecimal(%q) = %s, want %s", c.in, got, c.want)
		}
	}
}

func TestIsValidEmail(t *testing.T) {
	valid := []string{"owner@example.com", "a.b+c@sub.domain.io"}
	invalid := []string{"", "no-at-sign", "missing@tld", "@example.com"}

	for _, e := range valid {
		if !IsValidEmail(e) {
			t.Fatalf("IsValidEmail(%q) = false, want true", e)
		}
	}
	for _, e := range invalid {
		if IsValidEmail(e) {
			t.Fatalf("IsValidEmail(%q) = true, want false", e)
		}
	}
}

func TestValidatePhoneNumber(t *testing.T) {
	cases := []struct {
		phone   string
		country string
		wantErr bool
	}{
		{"+919876543210", "IN", false},
		{"9876543210", "IN", false},
		{"+12025550123", "US", false},
		{"123", "IN", true},
		{"not-a-phone", "IN", true},
		{"", "IN", true},
	}
	for _, c := range cases {
		err := ValidatePhoneNumber(c.phone, c.country)
		if c.wantErr && err == nil {
			t.Fatalf("ValidatePhoneNumber(%q, %q): expected error", c.phone, c.country)
		}
		if !c.wantErr && err != nil {
			t.Fatalf("ValidatePhoneNumber(%q, %q): unexpected error: %v", c.phone, c.country, err)
		}
	}
}

func TestUniqueSlice(t *testing.T) {
	got := UniqueSlice([]string{"Cash", "Bank", "Cash", "Petty Cash", "Bank"})
	want := []string{"Cash", "Bank", "Petty Cash"}
	if len(got) != len(want) {
		t.Fatalf("UniqueSlice returned %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("UniqueSlice[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestDereferencePtr(t *testing.T) {
	v := "HDFC"
	if DereferencePtr(&v) != "HDFC" {
		t.Fatalf("DereferencePtr should return pointed value")
	}
	if DereferencePtr[string](nil) != "" {
		t.Fatalf("DereferencePtr(nil) should return zero value")
	}
	if DereferencePtr[string](nil, "fallback") != "fallback" {
		t.Fatalf("DereferencePtr(nil, default) should return default")
	}
}
