package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"landmarket/internal/service"

	"github.com/gin-gonic/gin"
)

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header string
		want   string
	}{
		{"Bearer abc", "abc"},
		{"bearer abc ", "abc"},
		{"Basic abc", ""},
		{"abc", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := BearerToken(tc.header); got != tc.want {
			t.Errorf("BearerToken(%q) = %q, want %q", tc.header, got, tc.want)
		}
	}
}

func TestJWTAndAdmin(t *testing.T) {
	service.InitJWT("middleware-test-secret")

	r := gin.New()
	r.GET("/me", JWT(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": c.GetString(UserIDKey), "name": c.GetString(UserNameKey)})
	})
	r.GET("/admin", JWT(), Admin(func(id string) bool { return id == "root" }), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	token := func(id string) string {
		tok, err := service.GenerateJWT(id, id, time.Hour)
		if err != nil {
			t.Fatalf("token: %v", err)
		}
		return "Bearer " + tok
	}

	cases := []struct {
		name string
		path string
		auth string
		want int
	}{
		{"missing token", "/me", "", http.StatusUnauthorized},
		{"garbage token", "/me", "Bearer nope", http.StatusUnauthorized},
		{"valid token", "/me", token("alice"), http.StatusOK},
		{"not admin", "/admin", token("alice"), http.StatusForbidden},
		{"admin", "/admin", token("root"), http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.auth != "" {
				req.Header.Set("Authorization", tc.auth)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Fatalf("expected %d got %d: %s", tc.want, w.Code, w.Body.String())
			}
		})
	}
}
