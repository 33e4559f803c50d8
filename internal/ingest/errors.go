package ingest

import (
	"errors"
)

// Kind класс ошибки приема поста
type Kind int

const (
	// KindDecode некорректное multipart тело
	KindDecode Kind = iota
	// KindInvalidEncoding текстовое поле не в UTF-8
	KindInvalidEncoding
	// KindMissingField пустой заголовок или сообщение
	KindMissingField
	// KindLimitExceeded заголовок или сообщение длиннее лимита
	KindLimitExceeded
	// KindWrite ошибка записи файла
	KindWrite
	// KindStore ошибка хранилища постов
	KindStore
)

// String возвращает имя класса, пригодное для меток метрик
func (k Kind) String() string {
	switch k {
	case KindDecode:
		return "decode_error"
	case KindInvalidEncoding:
		return "invalid_encoding"
	case KindMissingField:
		return "missing_field"
	case KindLimitExceeded:
		return "limit_exceeded"
	case KindWrite:
		return "write_error"
	case KindStore:
		return "store_error"
	default:
		return "unknown"
	}
}

// IsClient true, если ошибка вызвана содержимым запроса
func (k Kind) IsClient() bool {
	switch k {
	case KindDecode, KindInvalidEncoding, KindMissingField, KindLimitExceeded:
		return true
	}
	return false
}

// SubmitError завершает обработку поста. Reason короткая причина для клиента.
type SubmitError struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *SubmitError) Error() string {
	if e.Err != nil {
		return e.Reason + ": " + e.Err.Error()
	}
	return e.Reason
}

func (e *SubmitError) Unwrap() error {
	return e.Err
}

// KindOf возвращает класс ошибки, если это SubmitError
func KindOf(err error) (Kind, bool) {
	var se *SubmitError
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return 0, false
}

func newError(kind Kind, reason string, err error) *SubmitError {
	return &SubmitError{Kind: kind, Reason: reason, Err: err}
}
