package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestJWT_RoundTrip(t *testing.T) {
	InitJWT("test-secret")

	tok, err := GenerateJWT("alice", "Alice", time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	id, err := ParseJWT(tok)
	if err != nil {
		t.Fatalf("ParseJWT: %v", err)
	}
	if id.UserID != "alice" || id.Name != "Alice" {
		t.Fatalf("unexpected identity %+v", id)
	}
}

func TestJWT_Rejects(t *testing.T) {
	InitJWT("test-secret")

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "alice",
		"exp":     time.Now().Add(-time.Minute).Unix(),
	})
	expiredTok, _ := expired.SignedString([]byte("test-secret"))

	noExp := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": "alice"})
	noExpTok, _ := noExp.SignedString([]byte("test-secret"))

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "alice",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	foreignTok, _ := foreign.SignedString([]byte("other-secret"))

	numeric := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": 42,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	numericTok, _ := numeric.SignedString([]byte("test-secret"))

	tests := []struct {
		name  string
		token string
	}{
		{"expired", expiredTok},
		{"missing exp", noExpTok},
		{"wrong secret", foreignTok},
		{"numeric user id", numericTok},
		{"garbage", "not-a-token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseJWT(tt.token); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
