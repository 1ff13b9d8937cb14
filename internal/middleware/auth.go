package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

const tokenIssuer = "zk-wormhole-host"

// Claims are the claims of an API token
type Claims struct {
	Operator string `json:"operator"`
	jwt.RegisteredClaims
}

// GenerateToken signs an HS256 API token for operator
func GenerateToken(secret []byte, operator string, ttl time.Duration) (string, *Claims, error) {
	if len(secret) == 0 {
		return "", nil, errors.New("jwt secret is empty")
	}
	now := time.Now()
	claims := &Claims{
		Operator: operator,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   operator,
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", nil, err
	}
	return token, claims, nil
}

// ValidateToken parses and verifies an API token
func ValidateToken(secret []byte, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	}, jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// AuthMiddleware JWT
type AuthMiddleware struct {
	logger *logrus.Logger
	secret []byte
	open   bool
}

// NewAuthMiddleware create JWT middleware. Without a secret no token can be
// valid, so every protected request is rejected.
func NewAuthMiddleware(logger *logrus.Logger, secret string) *AuthMiddleware {
	if secret == "" {
		logger.Warn("JWT secret not configured, protected API routes will reject every request")
	}
	return &AuthMiddleware{logger: logger, secret: []byte(secret)}
}

// NewOpenAuthMiddleware lets every request through. Only for loopback use.
func NewOpenAuthMiddleware(logger *logrus.Logger) *AuthMiddleware {
	logger.Warn("⚠️ API authentication explicitly disabled")
	return &AuthMiddleware{logger: logger, open: true}
}

// Enabled reports whether tokens are checked
func (a *AuthMiddleware) Enabled() bool {
	return !a.open
}

// RequireAuth JWT
func (a *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.Enabled() {
			c.Next()
			return
		}

		fields := logrus.Fields{
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		}

		if len(a.secret) == 0 {
			a.logger.WithFields(fields).Warn("JWT auth failed - no secret configured")
			a.reject(c, "Authentication not configured", "The server has no JWT secret configured.", "AUTH_NOT_CONFIGURED")
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			a.logger.WithFields(fields).Warn("JWT auth failed - missing Authorization header")
			a.reject(c, "Authentication required", "Missing Authorization header. Please provide a valid JWT token.", "MISSING_AUTH_HEADER")
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			a.logger.WithFields(fields).Warn("JWT auth failed - invalid Authorization format")
			a.reject(c, "Invalid authorization format", "Authorization header must be in format: Bearer <token>", "INVALID_AUTH_FORMAT")
			return
		}

		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if tokenString == "" {
			a.logger.WithFields(fields).Warn("JWT auth failed - empty token")
			a.reject(c, "Empty token", "Token cannot be empty", "EMPTY_TOKEN")
			return
		}

		claims, err := ValidateToken(a.secret, tokenString)
		if err != nil {
			fields["error"] = err.Error()
			a.logger.WithFields(fields).Warn("JWT auth failed - token verification failed")
			a.reject(c, "Invalid or expired token", err.Error(), "INVALID_TOKEN")
			return
		}

		c.Set("operator", claims.Operator)
		a.logger.WithFields(fields).WithField("operator", claims.Operator).Debug("JWT auth succeeded")
		c.Next()
	}
}

func (a *AuthMiddleware) reject(c *gin.Context, errMsg, message, code string) {
	c.JSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error":   errMsg,
		"message": message,
		"code":    code,
	})
	c.Abort()
}
