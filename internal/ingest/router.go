// Package ingest принимает пост из multipart потока: раскладывает поля,
// пишет вложение на диск, проверяет ограничения и сохраняет запись.
package ingest

import (
	"errors"
	"io"
	"unicode/utf8"

	"github.com/Gammanik/postboard/internal/multipart"
	"github.com/Gammanik/postboard/internal/poststore"
	"github.com/Gammanik/postboard/internal/storage"
)

// Имена полей формы
const (
	FieldTitle   = "title"
	FieldMessage = "message"
	FieldFile    = "file"
)

// Draft пост, собранный из полей формы, но еще не проверенный
type Draft struct {
	Title    string
	Message  string
	FilePath *string

	// TitleSize и MessageSize полная длина полей в байтах; сверх лимита
	// в Title и Message хранится не больше одного байта
	TitleSize   int64
	MessageSize int64

	// Files все файлы, созданные за время разбора (включая оборванные)
	Files []string
	// Written байт записано во все файлы, включая оборванные
	Written  int64
	FileSize int64
	FileSum  string
}

// Post возвращает пост для сохранения
func (d Draft) Post() poststore.Post {
	return poststore.Post{
		Title:    d.Title,
		Message:  d.Message,
		FilePath: d.FilePath,
	}
}

// FieldSource источник полей формы, например *multipart.Decoder
type FieldSource interface {
	NextField() (*multipart.Field, error)
}

// FileCreator создает файлы для вложений
type FileCreator interface {
	Create() (*storage.ChunkWriter, error)
}

// Router раскладывает поля формы по назначению
type Router struct {
	Uploads FileCreator
}

// Route читает все поля источника. Draft возвращается и при ошибке,
// чтобы вызывающий знал, какие файлы уже лежат на диске.
func (r *Router) Route(src FieldSource) (Draft, error) {
	var (
		draft   Draft
		title   = textAccumulator{limit: poststore.MaxTitleLen}
		message = textAccumulator{limit: poststore.MaxMessageLen}
	)

	for {
		field, err := src.NextField()
		if err == io.EOF {
			break
		}
		if err != nil {
			return draft, newError(KindDecode, "Invalid multipart body", err)
		}

		switch field.Name() {
		case FieldTitle:
			if err := title.consume(field); err != nil {
				return draft, textError(err, "Invalid UTF-8 in title")
			}
		case FieldMessage:
			if err := message.consume(field); err != nil {
				return draft, textError(err, "Invalid UTF-8 in message")
			}
		case FieldFile:
			if err := r.storeFile(field, &draft); err != nil {
				return draft, err
			}
		default:
			if err := field.Discard(); err != nil {
				return draft, newError(KindDecode, "Invalid multipart body", err)
			}
		}
	}

	draft.Title, draft.TitleSize = title.String(), title.total
	draft.Message, draft.MessageSize = message.String(), message.total
	return draft, nil
}

// storeFile пишет поле в новый файл. Повторное поле file создает еще один
// файл, в пост попадает последний.
func (r *Router) storeFile(field *multipart.Field, draft *Draft) error {
	w, err := r.Uploads.Create()
	if err != nil {
		return newError(KindWrite, "File creation error", err)
	}
	draft.Files = append(draft.Files, w.Path())
	defer func() { draft.Written += w.Size() }()

	for {
		chunk, err := field.NextChunk()
		if err == io.EOF {
			break
		}
		if err != nil {
			w.Close()
			return newError(KindDecode, "Invalid multipart body", err)
		}
		if err := w.WriteChunk(chunk); err != nil {
			w.Close()
			return newError(KindWrite, "File write error", err)
		}
	}
	if err := w.Close(); err != nil {
		return newError(KindWrite, "File write error", err)
	}

	path := w.Path()
	draft.FilePath = &path
	draft.FileSize = w.Size()
	draft.FileSum = w.Sum()
	return nil
}

// Validate проверяет собранный пост. Вызывается только после того,
// как все поля дочитаны.
func Validate(d Draft) error {
	if d.Title == "" || d.Message == "" {
		return newError(KindMissingField, "Title and message are required", nil)
	}
	if textSize(d.Title, d.TitleSize) > poststore.MaxTitleLen || textSize(d.Message, d.MessageSize) > poststore.MaxMessageLen {
		return newError(KindLimitExceeded, "Title or message exceeds the limit", nil)
	}
	return nil
}

func textSize(s string, size int64) int64 {
	if n := int64(len(s)); n > size {
		return n
	}
	return size
}

var errInvalidUTF8 = errors.New("invalid utf-8 sequence")

func textError(err error, reason string) error {
	if errors.Is(err, errInvalidUTF8) {
		return newError(KindInvalidEncoding, reason, err)
	}
	return newError(KindDecode, "Invalid multipart body", err)
}

// textAccumulator собирает текстовое поле и проверяет UTF-8 по мере поступления
// чанков. Руна, разрезанная границей чанка, дожидается продолжения.
// Хранится не больше limit+1 байт, остальное только считается и проверяется.
type textAccumulator struct {
	limit   int
	buf     []byte
	pending []byte
	total   int64
}

func (a *textAccumulator) consume(field *multipart.Field) error {
	for {
		chunk, err := field.NextChunk()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if err := a.write(chunk); err != nil {
			return err
		}
	}
	// незавершенная руна в конце поля
	if len(a.pending) > 0 {
		return errInvalidUTF8
	}
	return nil
}

func (a *textAccumulator) write(chunk []byte) error {
	if err := a.validate(chunk); err != nil {
		return err
	}

	a.total += int64(len(chunk))
	if keep := a.limit + 1 - len(a.buf); keep > 0 {
		if keep > len(chunk) {
			keep = len(chunk)
		}
		a.buf = append(a.buf, chunk[:keep]...)
	}
	return nil
}

func (a *textAccumulator) validate(chunk []byte) error {
	data := chunk
	if len(a.pending) > 0 {
		n := utf8.UTFMax - len(a.pending)
		if n > len(chunk) {
			n = len(chunk)
		}
		joined := append(a.pending[:len(a.pending):len(a.pending)], chunk[:n]...)
		r, size := utf8.DecodeRune(joined)
		if r == utf8.RuneError && size == 1 {
			if !utf8.FullRune(joined) {
				a.pending = joined
				return nil
			}
			return errInvalidUTF8
		}
		data = chunk[size-len(a.pending):]
		a.pending = a.pending[:0]
	}

	for i := 0; i < len(data); {
		if data[i] < utf8.RuneSelf {
			i++
			continue
		}
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size == 1 {
			if !utf8.FullRune(data[i:]) {
				a.pending = append(a.pending[:0], data[i:]...)
				return nil
			}
			return errInvalidUTF8
		}
		i += size
	}
	return nil
}

func (a *textAccumulator) String() string {
	return string(a.buf)
}
