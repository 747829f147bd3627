package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/nebari-dev/refstore/internal/api/response"
)

// DefaultTokenDuration is the validity period of issued credentials
const DefaultTokenDuration = 90 * 24 * time.Hour

// Claims represents JWT claims. The JWT id is the credential id.
type Claims struct {
	WorkspaceID string `json:"workspace_id"`
	AppID       string `json:"app_id,omitempty"`
	Plan        string `json:"plan"`
	Role        string `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 credentials
type TokenIssuer struct {
	secret []byte
	issuer string
}

// NewTokenIssuer creates a new token issuer
func NewTokenIssuer(secret, issuer string) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), issuer: issuer}
}

// IssueRequest describes a credential to mint
type IssueRequest struct {
	WorkspaceID uuid.UUID
	AppID       uuid.UUID
	Plan        string
	Role        string
	TTL         time.Duration
}

// Issue creates a signed token and returns it with the credential it encodes
func (t *TokenIssuer) Issue(req IssueRequest) (string, *Credential, error) {
	if req.WorkspaceID == uuid.Nil {
		return "", nil, fmt.Errorf("workspace id is required")
	}
	if req.Role == "" {
		req.Role = RoleEditor
	}
	if !ValidRole(req.Role) {
		return "", nil, fmt.Errorf("invalid role: %s", req.Role)
	}
	if req.Plan == "" {
		req.Plan = "free"
	}
	if req.TTL <= 0 {
		req.TTL = DefaultTokenDuration
	}

	now := time.Now()
	cred := &Credential{
		ID:          uuid.NewString(),
		WorkspaceID: req.WorkspaceID,
		AppID:       req.AppID,
		Plan:        req.Plan,
		Role:        req.Role,
	}
	claims := Claims{
		WorkspaceID: cred.WorkspaceID.String(),
		Plan:        cred.Plan,
		Role:        cred.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        cred.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(req.TTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    t.issuer,
		},
	}
	if req.AppID != uuid.Nil {
		claims.AppID = req.AppID.String()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(t.secret)
	if err != nil {
		return "", nil, err
	}
	return tokenString, cred, nil
}

// Resolve validates a token and returns its credential
func (t *TokenIssuer) Resolve(tokenString string) (*Credential, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithIssuer(t.issuer))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	wsID, err := uuid.Parse(claims.WorkspaceID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid workspace id", ErrInvalidToken)
	}
	cred := &Credential{
		ID:          claims.ID,
		WorkspaceID: wsID,
		Plan:        claims.Plan,
		Role:        claims.Role,
	}
	if claims.AppID != "" {
		if cred.AppID, err = uuid.Parse(claims.AppID); err != nil {
			return nil, fmt.Errorf("%w: invalid app id", ErrInvalidToken)
		}
	}
	if cred.ID == "" || !ValidRole(cred.Role) {
		return nil, ErrInvalidToken
	}
	return cred, nil
}

// Middleware returns a Gin middleware that requires a Bearer credential.
func Middleware(resolver CredentialResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "missing authorization")
			return
		}

		scheme, tokenString, found := strings.Cut(authHeader, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || tokenString == "" {
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid authorization header format")
			return
		}

		cred, err := resolver.Resolve(tokenString)
		if err != nil {
			slog.Warn("Invalid token", "error", err)
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid or expired token")
			return
		}

		c.Set(CredentialContextKey, cred)
		c.Next()
	}
}
