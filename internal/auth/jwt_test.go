package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"outreach-crm/internal/config"

	"github.com/gin-gonic/gin"
)

func testManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(config.AuthConfig{
		JWTSecret:       "secret",
		JWTIssuer:       "issuer",
		JWTAudience:     "aud",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	return m
}

func TestIssueAndVerifyAccessToken(t *testing.T) {
	m := testManager(t)
	now := time.Unix(1700000000, 0).UTC()
	pair, err := m.IssuePair(now, Identity{OperatorID: "op-1", OrgID: "org-1", Role: "rep"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("expected token strings")
	}

	claims, err := m.Verify(pair.AccessToken, TokenTypeAccess, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got := claims.Identity(); got != (Identity{OperatorID: "op-1", OrgID: "org-1", Role: "rep"}) {
		t.Fatalf("unexpected identity: %+v", got)
	}
	if claims.Subject != "op-1" {
		t.Fatalf("subject = %q", claims.Subject)
	}
}

func TestVerifyRejectsWrongTokenType(t *testing.T) {
	m, _ := NewManager(config.AuthConfig{JWTSecret: "secret", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour})
	now := time.Now()
	p, err := m.IssuePair(now, Identity{OperatorID: "u", OrgID: "o", Role: "rep"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := m.Verify(p.RefreshToken, TokenTypeAccess, now); err != ErrTokenType {
		t.Fatalf("expected token_type mismatch, got %v", err)
	}
	if _, err := m.Verify(p.RefreshToken, TokenTypeRefresh, now); err != nil {
		t.Fatalf("refresh verify: %v", err)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	m := testManager(t)
	now := time.Unix(1700000000, 0).UTC()
	p, _ := m.IssuePair(now, Identity{OperatorID: "u", OrgID: "o", Role: "rep"})
	if _, err := m.Verify(p.AccessToken, TokenTypeAccess, now.Add(time.Hour)); err == nil {
		t.Fatalf("expected expiry error")
	}
}

func TestRequireAccessToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := testManager(t)
	now := time.Unix(1700000000, 0).UTC()
	p, _ := m.IssuePair(now, Identity{OperatorID: "op-9", OrgID: "org-1", Role: "manager"})

	r := gin.New()
	r.GET("/x", requireAccessToken(m, func() time.Time { return now }), func(c *gin.Context) {
		op, err := OperatorID(c.Request.Context())
		if err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, op)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("no token: got %d", w.Code)
	}

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer "+p.AccessToken)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Body.String() != "op-9" {
		t.Fatalf("got %d %q", w.Code, w.Body.String())
	}
}
