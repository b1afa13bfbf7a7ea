package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"TODOLIST_BACK-END/internal/config"
	"TODOLIST_BACK-END/internal/utils"
)

// Token errors
var (
	// ErrMissingToken indicates no bearer token was sent.
	ErrMissingToken = errors.New("no token provided")

	// ErrTokenInvalid indicates a bad signature, algorithm or structure.
	ErrTokenInvalid = errors.New("token is invalid")

	// ErrTokenExpired indicates the token is past its expiration.
	ErrTokenExpired = errors.New("token has expired")
)

// JWTClaims represents the claims in the JWT token
type JWTClaims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 access tokens.
// Tokens are stateless; there is no revocation list.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService creates a token service from the JWT config
func NewTokenService(cfg *config.JWTConfig) *TokenService {
	return &TokenService{
		secret: []byte(cfg.Secret),
		ttl:    cfg.AccessTokenTTL,
		now:    time.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

// Issue generates a signed token for the given user
func (s *TokenService) Issue(userID int64) (string, error) {
	now := s.now()
	claims := JWTClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify validates a token and returns the subject's user id
func (s *TokenService) Verify(tokenString string) (int64, error) {
	claims := &JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		// The signature is checked before the claims, so a tampered token never reports expiry
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, ErrTokenExpired
		}
		return 0, ErrTokenInvalid
	}
	if !token.Valid {
		return 0, ErrTokenInvalid
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id != claims.UserID {
		return 0, ErrTokenInvalid
	}
	return id, nil
}

// TokenVerifier is what AuthMiddleware needs from a token service
type TokenVerifier interface {
	Verify(token string) (int64, error)
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header
func BearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	tokenParts := strings.Fields(authHeader)
	if len(tokenParts) != 2 || !strings.EqualFold(tokenParts[0], "Bearer") {
		return ""
	}
	return tokenParts[1]
}

// AuthMiddleware validates the bearer token and puts the user id in the request context
func AuthMiddleware(tokens TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := BearerToken(r)
			if tokenString == "" {
				utils.WriteErrorResponse(w, http.StatusUnauthorized, "No token provided", "Authentication token is missing")
				return
			}

			userID, err := tokens.Verify(tokenString)
			switch {
			case errors.Is(err, ErrTokenExpired):
				utils.WriteErrorResponse(w, http.StatusUnauthorized, "Token expired", "The token has expired")
				return
			case err != nil:
				utils.WriteErrorResponse(w, http.StatusUnauthorized, "Invalid token", "The token is invalid or expired")
				return
			}

			next.ServeHTTP(w, r.WithContext(utils.WithUserID(r.Context(), userID)))
		})
	}
}
