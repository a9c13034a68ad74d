package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS lets the storefront origins call the API with credentials so the cart
// cookie travels. Without configured origins only the local storefront is allowed.
func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{
			"Accept", "Authorization", "Content-Type",
			cartSessionHeader, IdempotencyHeader, requestIDHeader,
		},
		ExposedHeaders:   []string{cartSessionHeader, requestIDHeader, "Retry-After", "Idempotent-Replay"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}
