package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/yigit/submity/internal/app/models"
	"github.com/yigit/submity/internal/pkg/apperrors"
	"golang.org/x/crypto/bcrypt"
)

func newTestService(now time.Time) *JWTService {
	s := NewJWTService(JWTConfig{
		SecretKey:      "test-secret",
		AccessTokenExp: time.Hour,
		TokenIssuer:    "submity.test",
	})
	s.now = func() time.Time { return now }
	return s
}

func TestGenerateAndValidateToken(t *testing.T) {
	now := time.Now()
	s := newTestService(now)
	user := &models.User{ID: "user_1_abc", Email: "ada@example.com", Name: "Ada"}

	token, expiresIn, err := s.GenerateToken(user, "sess-1")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if expiresIn != 3600 {
		t.Fatalf("expiresIn = %d, want 3600", expiresIn)
	}

	claims, err := s.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.UserID != user.ID || claims.Email != user.Email || claims.Name != user.Name {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if claims.SessionID() != "sess-1" {
		t.Fatalf("SessionID() = %q", claims.SessionID())
	}
}

func TestValidateTokenExpired(t *testing.T) {
	issued := time.Now().Add(-2 * time.Hour)
	token, _, err := newTestService(issued).GenerateToken(&models.User{ID: "u"}, "s")
	if err != nil {
		t.Fatal(err)
	}

	_, err = newTestService(time.Now()).ValidateToken(token)
	if !errors.Is(err, apperrors.ErrTokenExpired) {
		t.Fatalf("err = %v, want ErrTokenExpired", err)
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, _, _ := newTestService(time.Now()).GenerateToken(&models.User{ID: "u"}, "s")

	other := NewJWTService(JWTConfig{SecretKey: "other", AccessTokenExp: time.Hour, TokenIssuer: "submity.test"})
	if _, err := other.ValidateToken(token); !errors.Is(err, apperrors.ErrTokenInvalid) {
		t.Fatalf("err = %v, want ErrTokenInvalid", err)
	}
	if _, err := other.ValidateToken(""); !errors.Is(err, apperrors.ErrTokenInvalid) {
		t.Fatalf("empty token err = %v", err)
	}
}

func TestExtractBearerToken(t *testing.T) {
	cases := []struct {
		header  string
		want    string
		wantErr bool
	}{
		{"Bearer a.b.c", "a.b.c", false},
		{"a.b.c", "a.b.c", false},
		{`"Bearer a.b.c"`, "a.b.c", false},
		{"", "", true},
		{"Bearer ", "", true},
		{"Basic xyz", "", true},
	}
	for _, tc := range cases {
		got, err := ExtractBearerToken(tc.header)
		if (err != nil) != tc.wantErr || got != tc.want {
			t.Errorf("ExtractBearerToken(%q) = %q, %v", tc.header, got, err)
		}
	}
}

func TestPasswordHashing(t *testing.T) {
	BcryptCost = bcrypt.MinCost
	defer func() { BcryptCost = 12 }()

	hash, err := HashPassword("secret1")
	if err != nil {
		t.Fatal(err)
	}
	if hash == "secret1" {
		t.Fatal("password stored in clear")
	}
	if !CheckPassword(hash, "secret1") {
		t.Fatal("original password rejected")
	}
	if CheckPassword(hash, "secret2") {
		t.Fatal("wrong password accepted")
	}
}
