package infra

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	logger_lib "github.com/s21platform/logger-lib"

	"github.com/turfbook/chat-service/internal/config"
	"github.com/turfbook/chat-service/internal/model"
)

type TokenValidator interface {
	ValidateAccessToken(tokenString string) (*model.AccessClaims, error)
}

// AuthInterceptorHTTP resolves the bearer token into the user id and role
// stored in the request context. Browsers cannot set headers on a websocket
// handshake, so the token query parameter is accepted as well.
func AuthInterceptorHTTP(next http.Handler, validator TokenValidator) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			unauthorized(w, "missing access token")
			return
		}

		claims, err := validator.ValidateAccessToken(token)
		if err != nil {
			unauthorized(w, "invalid access token")
			return
		}

		ctx := context.WithValue(r.Context(), config.KeyUUID, claims.Subject)
		ctx = context.WithValue(ctx, config.KeyRole, claims.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func LoggerHTTP(next http.Handler, logger logger_lib.LoggerInterface) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), config.KeyLogger, logger)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(model.ErrorResponse{Error: msg})
}
