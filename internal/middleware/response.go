package middleware

import (
	"net/http"

	"github.com/CarlosSb/chat-ia-outubro-rosa/internal/httputil"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}
