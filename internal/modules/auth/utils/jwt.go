// Package utils implements auth & identity (C3): verifying signed
// tokens with a shared HMAC-SHA256 secret and extracting the claims the
// rest of the core relies on (subject, scopes, and the optional
// client/actor tuple used for inter-service calls).
package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// jwtSecretKey signs and verifies every token issued or accepted by
	// this service, set at startup from internal/config by
	// SetJWTSecretKey.
	jwtSecretKey     = []byte("change-me-in-production")
	jwtIssuer        = "crew-orchestrator"
	internalTokenExp = time.Hour
)

// Claims is the JWT claim set defined in §4.3: sub, scopes, exp are
// always present; client_user_id/actor_type/actor_id are populated for
// inter-service calls minted by the dispatch layer.
type Claims struct {
	jwt.RegisteredClaims
	Scopes       []string `json:"scopes"`
	ClientUserID string   `json:"client_user_id,omitempty"`
	ActorType    string   `json:"actor_type,omitempty"`
	ActorID      string   `json:"actor_id,omitempty"`
}

// HasScope reports whether the token carries the given scope.
func (c *Claims) HasScope(scope string) bool {
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// ScopeInternal is required on tokens minted for service-to-service
// calls between the dispatch layer and the remote crew execution service.
const ScopeInternal = "sparkjar_internal"

// JWTService verifies and mints HMAC-SHA256 JWTs.
type JWTService struct{}

func NewJWTService() *JWTService {
	return &JWTService{}
}

// ValidateToken verifies signature and expiry and returns the claims.
// A request is authorized iff the token is unexpired and the signature
// validates; scope checks are the caller's responsibility.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return jwtSecretKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}

	if claims.Issuer != "" && claims.Issuer != jwtIssuer {
		return nil, fmt.Errorf("unexpected token issuer: %s", claims.Issuer)
	}

	return claims, nil
}

// MintInternalToken signs a short-lived (<=1h) token for the dispatch
// layer to present to the remote crew execution service.
func (s *JWTService) MintInternalToken(subject, clientUserID, actorType, actorID string) (string, time.Time, error) {
	expiresAt := time.Now().Add(internalTokenExp)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    jwtIssuer,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Scopes:       []string{ScopeInternal},
		ClientUserID: clientUserID,
		ActorType:    actorType,
		ActorID:      actorID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(jwtSecretKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign internal token: %w", err)
	}
	return signed, expiresAt, nil
}

// SetJWTSecretKey allows configuring the shared secret at startup.
func SetJWTSecretKey(key string) {
	jwtSecretKey = []byte(key)
}

// SetJWTIssuer allows configuring the issuer claim minted and checked
// at startup. An empty issuer on a validated token is always accepted;
// a token carrying any other non-empty issuer is rejected. An empty
// argument leaves the current issuer unchanged.
func SetJWTIssuer(issuer string) {
	if issuer == "" {
		return
	}
	jwtIssuer = issuer
}

// SetInternalTokenExpiration allows tests to shrink the internal token lifetime.
func SetInternalTokenExpiration(d time.Duration) {
	internalTokenExp = d
}
