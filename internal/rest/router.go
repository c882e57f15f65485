package rest

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
)

// HandlerFromMux mounts the chat API routes on r.
func HandlerFromMux(h *Handler, r chi.Router) http.Handler {
	r.Get("/chat", h.GetConversations)
	r.Get("/chat/{chatId}/messages", func(w http.ResponseWriter, r *http.Request) {
		h.GetMessages(w, r, chatIDParam(r))
	})
	r.Post("/chat/{chatId}/message", func(w http.ResponseWriter, r *http.Request) {
		h.SendMessage(w, r, chatIDParam(r))
	})
	r.Post("/chat/{chatId}/read", func(w http.ResponseWriter, r *http.Request) {
		h.MarkRead(w, r, chatIDParam(r))
	})
	r.Get("/socket", h.ServeSocket)

	return r
}

// chi matches on RawPath when the request carries one, and then the param
// is still escaped. Otherwise it comes from the already decoded Path.
func chatIDParam(r *http.Request) string {
	param := chi.URLParam(r, "chatId")
	if r.URL.RawPath == "" {
		return param
	}
	if chatID, err := url.PathUnescape(param); err == nil {
		return chatID
	}
	return param
}
