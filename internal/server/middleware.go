package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"lendmatch/internal/metrics"
	"lendmatch/internal/utils"

	"github.com/lestrrat-go/jwx/v3/jwt"
	"github.com/sirupsen/logrus"
)

// Context key types to avoid collisions
type contextKey string

const (
	contextKeyRequestID contextKey = "request_id"
	contextKeySubject   contextKey = "subject"
)

const requestIDHeader = "X-Request-ID"

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Service) LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = utils.NanoID()
		}
		rw.Header().Set(requestIDHeader, requestID)

		ctx := context.WithValue(r.Context(), contextKeyRequestID, requestID)
		next.ServeHTTP(rw, r.WithContext(ctx))

		s.logger.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rw.statusCode,
			"duration_ms": time.Since(started).Milliseconds(),
			"request_id":  requestID,
		}).Info("http request")
	})
}

func (s *Service) instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next(rw, r)

		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(started).Seconds())
	}
}

// RequireAuth verifies the caller's access token against the JWK set and
// adds the token subject to the context. It is a no-op when no JWKS URL is
// configured.
func (s *Service) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.keys == nil || s.jwksURL == "" {
			next.ServeHTTP(w, r)
			return
		}

		accessToken, ok := s.accessToken(r)
		if !ok {
			s.logger.Debug("no access token found")
			s.writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		set, err := s.keys.Lookup(r.Context(), s.jwksURL)
		if err != nil {
			s.logger.WithError(err).Error("failed to fetch JWKS")
			s.writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		token, err := jwt.Parse(
			[]byte(accessToken),
			jwt.WithKeySet(set),
			jwt.WithValidate(true),
		)
		if err != nil {
			s.logger.WithError(err).Warn("failed to parse JWT")
			s.writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		subject, ok := token.Subject()
		if !ok || subject == "" {
			s.logger.Warn("no subject claim in JWT")
			s.writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		s.logger.WithField("subject", subject).Debug("authenticated caller")

		ctx := context.WithValue(r.Context(), contextKeySubject, subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// accessToken reads a bearer token, falling back to the encoded cookie.
func (s *Service) accessToken(r *http.Request) (string, bool) {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, found := strings.Cut(header, " ")
		if found && strings.EqualFold(scheme, "Bearer") && strings.TrimSpace(token) != "" {
			return strings.TrimSpace(token), true
		}
		return "", false
	}

	if s.cookie == nil {
		return "", false
	}

	cookie, err := r.Cookie(s.config.AccessTokenCookie)
	if err != nil {
		return "", false
	}

	var accessToken string
	if err := s.cookie.Decode(s.config.AccessTokenCookie, cookie.Value, &accessToken); err != nil {
		s.logger.WithError(err).Warn("failed to decode access token cookie")
		return "", false
	}

	return accessToken, accessToken != ""
}

func (s *Service) StripTrailingSlash(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		// Only strip if path is not root and has trailing slash
		if path != "/" && strings.HasSuffix(path, "/") {
			newURL := *r.URL
			newURL.Path = strings.TrimSuffix(path, "/")

			// Preserve query string
			http.Redirect(w, r, newURL.String(), http.StatusMovedPermanently)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(contextKeyRequestID).(string)
	return id
}
