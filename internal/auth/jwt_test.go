package auth

import (
	"strings"
	"testing"
	"time"
)

func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	ts, err := NewTokenService("test-secret-at-least-16-chars!!")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

func TestNewTokenService_SecretLength(t *testing.T) {
	if _, err := NewTokenService("short"); err == nil {
		t.Error("NewTokenService() should reject secrets shorter than 16 chars")
	}
	if _, err := NewTokenService("this-is-16-chars"); err != nil {
		t.Errorf("NewTokenService() rejected a valid secret: %v", err)
	}
}

func TestGenerateValidate_RoundTrip(t *testing.T) {
	ts := newTestTokenService(t)
	userID := "user-abc-123"

	token, err := ts.Generate(userID)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Errorf("token doesn't look like a JWT: %q", token)
	}

	got, err := ts.Validate(token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if got != userID {
		t.Errorf("Validate() userID = %q, want %q", got, userID)
	}
}

func TestValidate_RejectsBadTokens(t *testing.T) {
	ts := newTestTokenService(t)
	valid, _ := ts.Generate("user-123")

	expired, err := ts.GenerateWithDuration("user-123", -time.Second)
	if err != nil {
		t.Fatalf("GenerateWithDuration() error = %v", err)
	}

	otherSecret, _ := NewTokenService("a-completely-different-secret!!!")
	foreignToken, _ := otherSecret.Generate("user-123")

	tests := []struct {
		name  string
		token string
	}{
		{name: "expired", token: expired},
		{name: "tampered signature", token: valid[:len(valid)-3] + "xxx"},
		{name: "signed with wrong secret", token: foreignToken},
		{name: "empty string", token: ""},
		{name: "garbage", token: "not.a.jwt.token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ts.Validate(tt.token); err == nil {
				t.Errorf("Validate(%s) accepted an invalid token", tt.name)
			}
		})
	}
}

func TestGenerateWithDuration_FutureToken(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.GenerateWithDuration("user-123", time.Hour)
	if err != nil {
		t.Fatalf("GenerateWithDuration() error = %v", err)
	}

	userID, err := ts.Validate(token)
	if err != nil {
		t.Fatalf("Validate() on 1h token error = %v", err)
	}
	if userID != "user-123" {
		t.Errorf("userID = %q, want %q", userID, "user-123")
	}
}
