package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pharmacore-erp/pharmacore/internal/platform/httpx"
	"github.com/pharmacore-erp/pharmacore/internal/shared"
)

// Claims is the JWT payload issued at login.
type Claims struct {
	Email          string  `json:"email"`
	Name           string  `json:"name"`
	Role           string  `json:"role"`
	OrganizationID string  `json:"organizationId"`
	BranchID       *string `json:"branchId,omitempty"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies access tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenManager constructs TokenManager.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl}
}

// Issue creates a signed token for the user.
func (t *TokenManager) Issue(user User, now time.Time) (string, error) {
	claims := Claims{
		Email:          user.Email,
		Name:           user.Name,
		Role:           string(user.Role),
		OrganizationID: user.OrganizationID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	if user.BranchID != nil {
		branch := user.BranchID.String()
		claims.BranchID = &branch
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Parse validates a token string and reconstructs the actor.
func (t *TokenManager) Parse(raw string) (*shared.Actor, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(raw, &claims, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", tok.Method.Alg())
		}
		return t.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: invalid token", httpx.ErrUnauthorized)
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid token subject", httpx.ErrUnauthorized)
	}
	orgID, err := uuid.Parse(claims.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid token organization", httpx.ErrUnauthorized)
	}
	actor := &shared.Actor{
		UserID:         userID,
		Email:          claims.Email,
		Name:           claims.Name,
		Role:           claims.Role,
		OrganizationID: orgID,
	}
	if claims.BranchID != nil {
		branchID, err := uuid.Parse(*claims.BranchID)
		if err == nil {
			actor.BranchID = &branchID
		}
	}
	return actor, nil
}
