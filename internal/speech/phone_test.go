package speech

import "testing"

func TestExtractPhoneNumber(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"spoken digits leading zero", "zero three three three one two three four five six seven", "+923331234567", true},
		{"digits leading zero", "03331234567", "+923331234567", true},
		{"already has country code", "923331234567", "+923331234567", true},
		{"ten digits no zero", "3331234567", "+923331234567", true},
		{"eleven digits rejected", "plus one four one five five five five one two one two", "", false},
		{"triple expansion", "zero three three triple one two three four five six", "+9233333123456", true},
		{"too short", "12345", "", false},
		{"no digits", "call me maybe", "", false},
		{"empty", "", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ExtractPhoneNumber(tc.in)
			if ok != tc.ok {
				t.Fatalf("ExtractPhoneNumber(%q) ok = %v, want %v (got %q)", tc.in, ok, tc.ok, got)
			}
			if tc.ok && got != tc.want {
				t.Errorf("ExtractPhoneNumber(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestExtractPhoneNumberIn(t *testing.T) {
	got, ok := ExtractPhoneNumberIn("03001234567", "44")
	if !ok || got != "+443001234567" {
		t.Errorf("ExtractPhoneNumberIn with country 44 = %q (ok=%v), want +443001234567", got, ok)
	}
}

func TestValidatePhone(t *testing.T) {
	if !ValidatePhone("+923331234567") {
		t.Error("expected +923331234567 to validate")
	}
	if ValidatePhone("12") {
		t.Error("expected short number to fail validation")
	}
	if ValidatePhone("") {
		t.Error("expected empty value to fail validation")
	}
}

func TestNormalizePhone(t *testing.T) {
	cases := map[string]string{
		"(333) 123-4567": "+3331234567",
		"+92 333 1234":   "+923331234",
		"":               "",
	}
	for in, want := range cases {
		if got := NormalizePhone(in); got != want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", in, got, want)
		}
	}
}
