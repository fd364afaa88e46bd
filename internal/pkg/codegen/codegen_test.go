package codegen

import (
	"regexp"
	"strings"
	"testing"
	"time"
)

var editCodePattern = regexp.MustCompile(`^[A-Z0-9]{6}$`)

func TestGenerateEditCode(t *testing.T) {
	seen := make(map[rune]bool)
	for i := 0; i < 500; i++ {
		code, err := GenerateEditCode()
		if err != nil {
			t.Fatalf("GenerateEditCode: %v", err)
		}
		if !editCodePattern.MatchString(code) {
			t.Fatalf("code %q does not match %s", code, editCodePattern)
		}
		if !IsEditCode(code) {
			t.Fatalf("IsEditCode(%q) = false", code)
		}
		for _, r := range code {
			seen[r] = true
		}
	}
	// 3000 draws over 36 symbols should hit both letters and digits
	var letters, digits bool
	for r := range seen {
		if r >= 'A' && r <= 'Z' {
			letters = true
		} else {
			digits = true
		}
	}
	if !letters || !digits {
		t.Fatalf("alphabet coverage too narrow: %v", seen)
	}
}

func TestGenerateID(t *testing.T) {
	ids := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		id := GenerateID()
		if id == "" || strings.Trim(id, "0123456789abcdefghijklmnopqrstuvwxyz") != "" {
			t.Fatalf("id %q is not base-36", id)
		}
		if _, dup := ids[id]; dup {
			t.Fatalf("duplicate id %q", id)
		}
		ids[id] = struct{}{}
	}
}

func TestGenerateUserID(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	id := GenerateUserID(now)
	if !strings.HasPrefix(id, "user_1700000000123_") {
		t.Fatalf("unexpected user id %q", id)
	}
	if GenerateUserID(now) == id {
		t.Fatal("user ids generated at the same instant should still differ")
	}
}

func TestIsEditCode(t *testing.T) {
	cases := map[string]bool{
		"ABC123":  true,
		"abc123":  false,
		"ABC12":   false,
		"ABC1234": false,
		"ABC-12":  false,
		"":        false,
	}
	for in, want := range cases {
		if got := IsEditCode(in); got != want {
			t.Errorf("IsEditCode(%q) = %v, want %v", in, got, want)
		}
	}
}
