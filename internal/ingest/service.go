package ingest

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Gammanik/postboard/internal/metrics"
	"github.com/Gammanik/postboard/internal/multipart"
	"github.com/Gammanik/postboard/internal/poststore"
	"github.com/Gammanik/postboard/internal/storage"
)

// Service принимает пост целиком: разбор, проверка, сохранение.
type Service struct {
	Store     poststore.PostStore
	Uploads   *storage.Uploads
	ChunkSize int

	// RemoveRejected удаляет записанные файлы, если пост отклонен или не сохранен.
	// По умолчанию файлы остаются на диске.
	RemoveRejected bool

	Metrics *metrics.Metrics
	Logger  *slog.Logger

	// NewKey генерирует ключ записи; по умолчанию uuid.NewString
	NewKey func() string
}

// Submit разбирает тело запроса, проверяет пост и сохраняет его в хранилище.
// Возвращает ключ сохраненной записи.
func (s *Service) Submit(contentType string, body io.Reader) (string, poststore.Post, error) {
	start := time.Now()

	key, post, draft, err := s.submit(contentType, body)

	outcome := metrics.OutcomeAccepted
	if err != nil {
		outcome = "unknown"
		if kind, ok := KindOf(err); ok {
			outcome = kind.String()
		}
		s.cleanup(draft)
	}
	s.Metrics.AddUploadBytes(draft.Written)
	s.Metrics.ObserveSubmission(outcome, time.Since(start))

	if err != nil {
		return "", poststore.Post{}, err
	}
	return key, post, nil
}

func (s *Service) submit(contentType string, body io.Reader) (string, poststore.Post, Draft, error) {
	// Receiving
	boundary, err := multipart.BoundaryFromContentType(contentType)
	if err != nil {
		return "", poststore.Post{}, Draft{}, newError(KindDecode, "Invalid content type", err)
	}

	router := Router{Uploads: s.Uploads}
	draft, err := router.Route(multipart.NewDecoder(body, boundary, s.ChunkSize))
	if err != nil {
		return "", poststore.Post{}, draft, err
	}

	// Validating
	if err := Validate(draft); err != nil {
		return "", poststore.Post{}, draft, err
	}

	// Persisting
	key := s.newKey()
	post := draft.Post()
	if err := s.Store.Put(key, post); err != nil {
		return "", poststore.Post{}, draft, storeError(err)
	}

	s.logger().Info("Post accepted",
		"key", key,
		"title_bytes", draft.TitleSize,
		"message_bytes", draft.MessageSize,
		"file_bytes", draft.FileSize,
		"file_sha256", draft.FileSum)
	return key, post, draft, nil
}

func (s *Service) cleanup(draft Draft) {
	if len(draft.Files) == 0 {
		return
	}
	if !s.RemoveRejected {
		s.logger().Warn("Uploaded files left on disk for rejected post", "files", draft.Files)
		return
	}
	for _, path := range draft.Files {
		if err := s.Uploads.Remove(path); err != nil {
			s.logger().Error("Failed to remove rejected upload", "path", path, "error", err)
		}
	}
}

func (s *Service) newKey() string {
	if s.NewKey != nil {
		return s.NewKey()
	}
	return uuid.NewString()
}

func (s *Service) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func storeError(err error) error {
	var se *poststore.StoreError
	if errors.As(err, &se) {
		switch se.Op {
		case "encode":
			return newError(KindStore, "Serialization error", err)
		case "sync":
			return newError(KindStore, "Database flush error", err)
		}
	}
	return newError(KindStore, "Database insert error", err)
}
