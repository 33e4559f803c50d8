package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/Gammanik/postboard/internal/ingest"
	"github.com/Gammanik/postboard/internal/poststore"
)

// PostHandler обрабатывает запросы для постов
type PostHandler struct {
	Service   *ingest.Service
	Store     poststore.PostStore
	StaticDir string
	Logger    *slog.Logger
}

// postsResponse ответ GET /posts
type postsResponse struct {
	Posts []poststore.Post `json:"posts"`
}

// Submit принимает multipart форму с постом
func (h *PostHandler) Submit(w http.ResponseWriter, r *http.Request) {
	key, _, err := h.Service.Submit(r.Header.Get("Content-Type"), r.Body)
	if err != nil {
		h.writeSubmitError(w, err)
		return
	}

	h.logger().Debug("Post stored", "key", key)

	// Возвращаем пользователя на главную
	w.Header().Set("Location", "/")
	w.WriteHeader(http.StatusSeeOther)
}

func (h *PostHandler) writeSubmitError(w http.ResponseWriter, err error) {
	var se *ingest.SubmitError
	if !errors.As(err, &se) {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		h.logger().Error("Submission failed", "error", err)
		return
	}

	if se.Kind.IsClient() {
		http.Error(w, se.Reason, http.StatusBadRequest)
		h.logger().Warn("Submission rejected", "kind", se.Kind.String(), "error", err)
		return
	}

	http.Error(w, se.Reason, http.StatusInternalServerError)
	h.logger().Error("Submission failed", "kind", se.Kind.String(), "error", err)
}

// List возвращает все посты из хранилища
func (h *PostHandler) List(w http.ResponseWriter, r *http.Request) {
	posts, err := h.Store.List()
	if err != nil {
		http.Error(w, "Database read error", http.StatusInternalServerError)
		h.logger().Error("Failed to list posts", "error", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(postsResponse{Posts: posts}); err != nil {
		h.logger().Error("Failed to write posts response", "error", err)
	}
}

// Index отдает главную страницу
func (h *PostHandler) Index(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, filepath.Join(h.StaticDir, "index.html"))
}

// Health сообщает, что процесс жив
func (h *PostHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{"status": "ok"}); err != nil {
		h.logger().Error("Failed to write health response", "error", err)
	}
}

func (h *PostHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}
