package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nguyenthanhak8-hue/LSTD/internal/models"
)

// Claims are minted by the surrounding auth service; this service only
// verifies them. CounterID binds an officer to the one counter they may
// operate; admins and leaders are not bound.
type Claims struct {
	UserID    int64  `json:"user_id"`
	Role      string `json:"role"`
	TenantID  int64  `json:"tenxa_id"`
	CounterID int64  `json:"counter_id"`
	jwt.RegisteredClaims
}

type claimsContextKey struct{}

type TokenVerifier struct {
	secret []byte
}

func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

func (v *TokenVerifier) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if _, err := models.ParseRole(claims.Role); err != nil {
		return nil, err
	}
	return claims, nil
}

func claimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*Claims)
	return claims, ok
}

// requireAuth extracts and verifies the bearer token, attaching claims to
// the request context.
func (h *Handler) requireAuth(r *http.Request) (*http.Request, *Claims, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return r, nil, fmt.Errorf("missing authorization header")
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return r, nil, fmt.Errorf("invalid authorization header")
	}
	claims, err := h.verifier.Verify(parts[1])
	if err != nil {
		return r, nil, err
	}
	ctx := context.WithValue(r.Context(), claimsContextKey{}, claims)
	return r.WithContext(ctx), claims, nil
}

// canOperateCounter enforces the officer/counter binding: admins and leaders
// may operate any counter of their tenant, officers only their own.
func canOperateCounter(claims *Claims, tenantID, counterID int64) bool {
	if claims.TenantID != tenantID {
		return false
	}
	switch models.Role(claims.Role) {
	case models.RoleAdmin, models.RoleLeader:
		return true
	case models.RoleOfficer:
		return claims.CounterID == counterID
	}
	return false
}
