// Package multipart потоково разбирает тело multipart/form-data запроса.
//
// Decoder отдает поля по одному (NextField), а каждое поле отдает данные
// чанками (NextChunk). Одновременно в памяти держится не больше одного чанка.
package multipart

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"strings"
)

// DefaultChunkSize размер чанка по умолчанию
const DefaultChunkSize = 32 << 10

var (
	// ErrNotMultipart тип содержимого запроса не multipart/*
	ErrNotMultipart = errors.New("content type is not multipart")
	// ErrMissingBoundary в Content-Type нет параметра boundary
	ErrMissingBoundary = errors.New("missing boundary parameter")
	// ErrMissingName у части нет имени поля в Content-Disposition
	ErrMissingName = errors.New("missing form field name")
)

// DecodeError ошибка разбора multipart потока
type DecodeError struct {
	Op  string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("multipart %s: %v", e.Op, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// BoundaryFromContentType извлекает boundary из заголовка Content-Type
func BoundaryFromContentType(contentType string) (string, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", &DecodeError{Op: "content-type", Err: err}
	}
	if !strings.HasPrefix(mediaType, "multipart/") {
		return "", &DecodeError{Op: "content-type", Err: fmt.Errorf("%w: %s", ErrNotMultipart, mediaType)}
	}
	boundary, ok := params["boundary"]
	if !ok || boundary == "" {
		return "", &DecodeError{Op: "content-type", Err: ErrMissingBoundary}
	}
	return boundary, nil
}

// Decoder последовательно читает поля из multipart потока.
// Декодер однопроходный: повторно пройти поля нельзя.
type Decoder struct {
	mr   *multipart.Reader
	buf  []byte
	cur  *Field
	done bool
}

// NewDecoder создает декодер поверх r. chunkSize <= 0 означает DefaultChunkSize.
func NewDecoder(r io.Reader, boundary string, chunkSize int) *Decoder {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Decoder{
		mr:  multipart.NewReader(r, boundary),
		buf: make([]byte, chunkSize),
	}
}

// NextField возвращает следующее поле или io.EOF после закрывающего boundary.
// Непрочитанный остаток предыдущего поля пропускается.
func (d *Decoder) NextField() (*Field, error) {
	if d.done {
		return nil, io.EOF
	}
	if d.cur != nil {
		d.cur.done = true
		d.cur = nil
	}

	part, err := d.mr.NextPart()
	// multipart.Reader отдает голый io.EOF только после закрывающего boundary,
	// обрыв потока приходит обернутым.
	if err == io.EOF {
		d.done = true
		return nil, io.EOF
	}
	if err != nil {
		d.done = true
		return nil, &DecodeError{Op: "next field", Err: err}
	}

	name := part.FormName()
	if name == "" {
		d.done = true
		return nil, &DecodeError{Op: "next field", Err: ErrMissingName}
	}

	d.cur = &Field{
		name:     name,
		fileName: part.FileName(),
		part:     part,
		buf:      d.buf,
	}
	return d.cur, nil
}

// Field одно поле формы
type Field struct {
	name     string
	fileName string
	part     *multipart.Part
	buf      []byte
	done     bool
}

// Name возвращает имя поля из Content-Disposition
func (f *Field) Name() string {
	return f.name
}

// FileName возвращает имя файла, указанное клиентом (может быть пустым)
func (f *Field) FileName() string {
	return f.fileName
}

// NextChunk возвращает следующий чанк данных поля или io.EOF в конце поля.
// Слайс действителен только до следующего вызова NextChunk или NextField.
func (f *Field) NextChunk() ([]byte, error) {
	if f.done {
		return nil, io.EOF
	}

	n, err := f.part.Read(f.buf)
	for n == 0 && err == nil {
		n, err = f.part.Read(f.buf)
	}

	switch {
	case err == io.EOF:
		f.done = true
		if n > 0 {
			return f.buf[:n], nil
		}
		return nil, io.EOF
	case err != nil:
		f.done = true
		return nil, &DecodeError{Op: "read field " + f.name, Err: err}
	}
	return f.buf[:n], nil
}

// Discard дочитывает поле до конца, отбрасывая данные
func (f *Field) Discard() error {
	for {
		_, err := f.NextChunk()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
