package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

const testSecret = "test-secret"

func TestSeatTokenRoundTrip(t *testing.T) {
	tok, err := IssueSeatToken(testSecret, "match1", 2, "bob", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := ParseSeatTokenFor(testSecret, tok, "match1")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Seat != 2 || claims.Name != "bob" || claims.MatchToken != "match1" {
		t.Errorf("unexpected claims: %+v", claims)
	}

	if _, err := ParseSeatTokenFor(testSecret, tok, "match2"); err != ErrWrongMatch {
		t.Errorf("other match: err=%v, want ErrWrongMatch", err)
	}
	if _, err := ParseSeatToken("other-secret", tok); err != ErrInvalidToken {
		t.Errorf("wrong secret: err=%v, want ErrInvalidToken", err)
	}
}

func TestExpiredSeatToken(t *testing.T) {
	tok, err := IssueSeatToken(testSecret, "match1", 1, "", -time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := ParseSeatToken(testSecret, tok); err != ErrInvalidToken {
		t.Errorf("expired token: err=%v, want ErrInvalidToken", err)
	}
}

func TestIssueRejectsBadSeat(t *testing.T) {
	if _, err := IssueSeatToken(testSecret, "m", 3, "", time.Hour); err == nil {
		t.Errorf("seat 3 should be rejected")
	}
}

func TestPasscode(t *testing.T) {
	hash, err := HashPasscode("1234")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "1234" {
		t.Errorf("passcode stored in clear")
	}
	if !CheckPasscode(hash, "1234") {
		t.Errorf("correct passcode rejected")
	}
	if CheckPasscode(hash, "4321") {
		t.Errorf("wrong passcode accepted")
	}
	if open, _ := HashPasscode(""); !CheckPasscode(open, "anything") {
		t.Errorf("a room without passcode should be open")
	}
}

func TestRequireSeatMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/matches/:token/me", RequireSeat(testSecret), func(c *gin.Context) {
		claims, _ := ClaimsFrom(c)
		c.JSON(http.StatusOK, gin.H{"seat": claims.Seat})
	})

	tok, _ := IssueSeatToken(testSecret, "abc", 1, "", time.Hour)

	cases := []struct {
		name   string
		url    string
		header string
		want   int
	}{
		{"header", "/matches/abc/me", "Bearer " + tok, http.StatusOK},
		{"query", "/matches/abc/me?st=" + tok, "", http.StatusOK},
		{"missing", "/matches/abc/me", "", http.StatusUnauthorized},
		{"other match", "/matches/xyz/me", "Bearer " + tok, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, tc.url, nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != tc.want {
			t.Errorf("%s: status=%d, want %d", tc.name, w.Code, tc.want)
		}
	}
}
