package validation

import "testing"

func TestIsValidEmail(t *testing.T) {
	cases := map[string]bool{
		"ada@example.com":     true,
		"Ada@Example.COM":     true,
		" ada@example.fr ":    true,
		"ada@example":         false,
		"ada.example.com":     false,
		"":                    false,
		"ada@school.academy":  true,
	}
	for in, want := range cases {
		if got := IsValidEmail(in); got != want {
			t.Errorf("IsValidEmail(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestStringValidation(t *testing.T) {
	if NewStringValidation("   ").Validate() {
		t.Error("blank required value accepted")
	}
	if !NewStringValidation("").WithRequired(false).Validate() {
		t.Error("empty optional value rejected")
	}
	if NewStringValidation("abcde").WithMinLength(PasswordMinLength).Validate() {
		t.Error("5 characters accepted for a 6 minimum")
	}
	if !NewStringValidation("éèàùçô").WithMinLength(6).WithMaxLength(6).Validate() {
		t.Error("lengths should count runes")
	}
}
