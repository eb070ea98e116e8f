package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/srgjo27/scalable_parking/internal/core/domain"
)

// Claims carries the subject id in "sub" and the role alongside it.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

const IdentityKey contextKey = "identity"

// IssueToken signs an HS256 token for identity.
func IssueToken(secret string, identity domain.Identity, ttl time.Duration, now time.Time) (string, error) {
	claims := Claims{
		Role: string(identity.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.SubjectID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// ParseToken validates tokenString and turns its claims into an Identity.
func ParseToken(secret, tokenString string) (domain.Identity, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid token signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return domain.Identity{}, errors.New("invalid or expired token")
	}

	subject, err := uuid.Parse(claims.Subject)
	if err != nil {
		return domain.Identity{}, errors.New("invalid token subject")
	}

	role, ok := domain.ParseRole(claims.Role)
	if !ok {
		return domain.Identity{}, errors.New("invalid token role")
	}

	return domain.Identity{SubjectID: subject, Role: role}, nil
}

// JWTAuth rejects requests without a valid bearer token and stores the
// resulting Identity in the request context.
func JWTAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				WriteError(ctx, w, http.StatusUnauthorized, "unauthorized", "missing authorization header")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				WriteError(ctx, w, http.StatusUnauthorized, "unauthorized", "invalid authorization header format")
				return
			}

			identity, err := ParseToken(secret, parts[1])
			if err != nil {
				WriteError(ctx, w, http.StatusUnauthorized, "unauthorized", err.Error())
				return
			}

			ctx = context.WithValue(ctx, IdentityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func IdentityFromContext(ctx context.Context) (domain.Identity, bool) {
	identity, ok := ctx.Value(IdentityKey).(domain.Identity)
	return identity, ok
}
