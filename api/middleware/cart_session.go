package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/uniformhub-backend/pkg/logger"
)

const (
	cartSessionHeader = "X-Cart-Session"
	maxCartSessionLen = 128
)

// CartSession resolves the browser's cart key from the X-Cart-Session header
// or the cart cookie. Requests carrying neither get a fresh key, returned in
// both the header and a cookie so later requests reuse it.
func CartSession(cookieName string, ttl time.Duration, secure bool, logg *logger.Logger) func(http.Handler) http.Handler {
	if cookieName == "" {
		cookieName = "uh_cart"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := validCartSession(r.Header.Get(cartSessionHeader))
			if session == "" {
				if cookie, err := r.Cookie(cookieName); err == nil {
					session = validCartSession(cookie.Value)
				}
			}
			if session == "" {
				session = uuid.NewString()
				cookie := &http.Cookie{
					Name:     cookieName,
					Value:    session,
					Path:     "/",
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				}
				if ttl > 0 {
					cookie.MaxAge = int(ttl.Seconds())
				}
				http.SetCookie(w, cookie)
			}
			w.Header().Set(cartSessionHeader, session)

			ctx := WithCartSession(r.Context(), session)
			if logg != nil {
				ctx = logg.WithCartSession(ctx, session)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func validCartSession(value string) string {
	value = strings.TrimSpace(value)
	if value == "" || len(value) > maxCartSessionLen {
		return ""
	}
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return ""
		}
	}
	return value
}
