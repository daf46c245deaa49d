package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// Cors allows credentialed requests from allowedOrigins, or from any origin
// when the list is empty.
func Cors(allowedOrigins []string) Middleware {
	options := cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}
	if len(allowedOrigins) == 0 {
		options.AllowOriginFunc = func(origin string) bool {
			return true
		}
	} else {
		options.AllowedOrigins = allowedOrigins
	}
	return cors.New(options).Handler
}
