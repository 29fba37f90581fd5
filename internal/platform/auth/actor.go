// Package auth resolves the acting identity for audited writes. Auth is
// optional: without a configured secret every request is anonymous and
// audit entries carry a null actor. When a secret is set, a valid bearer
// token attributes the write to the token subject.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

type contextKey string

// ActorKey carries the resolved actor through the request context.
const ActorKey contextKey = "actor"

// Claims is the token payload. Only the registered subject is used; extra
// claims are ignored.
type Claims struct {
	jwt.RegisteredClaims
}

// WithActor returns a context carrying the given actor.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, ActorKey, actor)
}

// ActorFromContext returns the actor for the current request, or nil when
// the request is anonymous.
func ActorFromContext(ctx context.Context) *string {
	actor, ok := ctx.Value(ActorKey).(string)
	if !ok || actor == "" {
		return nil
	}
	return &actor
}

// Actor returns middleware that resolves the request actor from an optional
// bearer token.
//
// With an empty secret the middleware is a no-op and every request stays
// anonymous. With a secret configured, requests without an Authorization
// header remain anonymous, while a presented token must verify: a malformed
// or badly signed token is rejected with 401 rather than silently treated
// as anonymous.
func Actor(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if secret == "" {
				return next(c)
			}

			header := c.Request().Header.Get("Authorization")
			if header == "" {
				return next(c)
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			sub, err := parseSubject(parts[1], secret)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set("actor", sub)
			req := c.Request()
			c.SetRequest(req.WithContext(WithActor(req.Context(), sub)))

			return next(c)
		}
	}
}

// parseSubject verifies the token signature and returns the subject claim.
func parseSubject(tokenString, secret string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", fmt.Errorf("token invalid")
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return claims.Subject, nil
}
