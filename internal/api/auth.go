package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/golang-jwt/jwt/v5"
)

// AnonymousLearner is the learner id used when a request names none.
const AnonymousLearner = "anonymous"

// LearnerHeader carries the learner id when JWT auth is disabled.
const LearnerHeader = "X-Learner-ID"

const maxLearnerLen = 128

var (
	errMissingToken = errors.New("missing bearer token")
	errInvalidToken = errors.New("invalid or expired token")
)

type contextKey string

const learnerKey contextKey = "learner"

// LearnerID returns the learner id attached by the auth middleware.
func LearnerID(ctx context.Context) string {
	if v, ok := ctx.Value(learnerKey).(string); ok && v != "" {
		return v
	}
	return AnonymousLearner
}

// IssueToken signs an HS256 token whose subject is learner. A ttl of zero
// or less issues a token without expiry.
func IssueToken(secret, learner string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("api: issue token: empty secret")
	}
	if err := validateLearner(learner); err != nil {
		return "", fmt.Errorf("api: issue token: %w", err)
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:  learner,
		IssuedAt: jwt.NewNumericDate(now),
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// identify resolves the learner for a request and stores it in the
// context. With a JWT secret configured the token subject is used and a
// missing or bad token is rejected; otherwise the X-Learner-ID header is
// trusted.
func (s *Server) identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		learner, err := s.learnerFor(r)
		if err != nil {
			if errors.Is(err, errMissingToken) || errors.Is(err, errInvalidToken) {
				w.Header().Set("WWW-Authenticate", `Bearer realm="voxdrill"`)
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			}
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		ctx := context.WithValue(r.Context(), learnerKey, learner)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) learnerFor(r *http.Request) (string, error) {
	if len(s.jwtSecret) == 0 {
		learner := strings.TrimSpace(r.Header.Get(LearnerHeader))
		if learner == "" {
			return AnonymousLearner, nil
		}
		return learner, validateLearner(learner)
	}

	token := bearerToken(r)
	if token == "" {
		// Browsers cannot set headers on a websocket handshake.
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		return "", errMissingToken
	}
	claims, err := s.parseToken(token)
	if err != nil {
		return "", errInvalidToken
	}
	if err := validateLearner(claims.Subject); err != nil {
		return "", errInvalidToken
	}
	return claims.Subject, nil
}

func (s *Server) parseToken(token string) (*jwt.RegisteredClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || !parsed.Valid {
		return nil, errInvalidToken
	}
	return claims, nil
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(auth, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// validateLearner rejects ids that would break the store key layout.
func validateLearner(id string) error {
	if id == "" {
		return errors.New("learner id is empty")
	}
	if len(id) > maxLearnerLen {
		return fmt.Errorf("learner id longer than %d bytes", maxLearnerLen)
	}
	if strings.IndexFunc(id, func(r rune) bool { return r == ':' || unicode.IsSpace(r) || unicode.IsControl(r) }) >= 0 {
		return errors.New("learner id must not contain ':' or whitespace")
	}
	return nil
}
