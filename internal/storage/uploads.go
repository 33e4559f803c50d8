// Package storage хранит вложения постов в локальной директории.
package storage

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Uploads директория для загруженных файлов
type Uploads struct {
	dir string
}

// NewUploads создает директорию для загрузок, если ее нет
func NewUploads(dir string) (*Uploads, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &Uploads{dir: dir}, nil
}

// Dir возвращает путь к директории загрузок
func (u *Uploads) Dir() string {
	return u.dir
}

// Create создает новый файл со случайным UUID в качестве имени.
// Файл открывается с O_EXCL, существующий файл никогда не перезаписывается.
func (u *Uploads) Create() (*ChunkWriter, error) {
	path := filepath.Join(u.dir, uuid.NewString())

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, &WriteError{Op: "create", Path: path, Err: err}
	}
	return NewChunkWriter(f), nil
}

// Remove удаляет ранее созданный файл. Отсутствующий файл не считается ошибкой.
func (u *Uploads) Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
