package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"saasan/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const ActorKey = "actor"

// Claims are issued by the identity provider. Subject is the actor id.
type Claims struct {
	Role services.Role `json:"role"`
	jwt.RegisteredClaims
}

// SignToken issues an HS256 token for an actor. Used by the token command
// and tests; production tokens come from the identity provider.
func SignToken(secret []byte, actorID string, role services.Role, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actorID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func parseToken(secret []byte, raw string) (services.Actor, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return services.Actor{}, err
	}
	if claims.Subject == "" {
		return services.Actor{}, errors.New("token has no subject")
	}
	role := claims.Role
	if role == "" {
		role = services.RoleCitizen
	}
	if !role.Valid() {
		return services.Actor{}, errors.New("token has an unknown role")
	}
	return services.Actor{ID: claims.Subject, Role: role}, nil
}

// Authenticate resolves an optional bearer token into the request's actor.
// A present but invalid token is rejected; a missing one leaves the request
// anonymous.
func Authenticate(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			AbortError(c, http.StatusUnauthorized, "UNAUTHORIZED", "authorization header must be a bearer token")
			return
		}
		actor, err := parseToken(secret, raw)
		if err != nil {
			AbortError(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid token")
			return
		}
		c.Set(ActorKey, actor)
		c.Next()
	}
}

// AuthRequired rejects anonymous requests.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentActor(c); !ok {
			AbortError(c, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
			return
		}
		c.Next()
	}
}

// RequireRole admits only the listed roles. Services check roles again.
func RequireRole(roles ...services.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := CurrentActor(c)
		if !ok {
			AbortError(c, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
			return
		}
		for _, r := range roles {
			if actor.Role == r {
				c.Next()
				return
			}
		}
		AbortError(c, http.StatusForbidden, "FORBIDDEN", "insufficient role")
	}
}

// CurrentActor returns the authenticated actor, if any.
func CurrentActor(c *gin.Context) (services.Actor, bool) {
	v, ok := c.Get(ActorKey)
	if !ok {
		return services.Actor{}, false
	}
	actor, ok := v.(services.Actor)
	return actor, ok
}

// AbortError writes the standard error body and stops the chain.
func AbortError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": gin.H{"code": code, "message": message}})
}
