package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
)

// WriteError ошибка записи загружаемого файла на диск
type WriteError struct {
	Op   string
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// ChunkWriter последовательно пишет чанки в открытый файл.
// Каждый чанк записывается полностью до приема следующего.
type ChunkWriter struct {
	file   *os.File
	hash   hash.Hash
	size   int64
	closed bool
}

// NewChunkWriter создает writer поверх открытого файла
func NewChunkWriter(f *os.File) *ChunkWriter {
	return &ChunkWriter{
		file: f,
		hash: sha256.New(),
	}
}

// WriteChunk записывает чанк целиком
func (w *ChunkWriter) WriteChunk(chunk []byte) error {
	if w.closed {
		return &WriteError{Op: "write", Path: w.file.Name(), Err: os.ErrClosed}
	}

	n, err := w.file.Write(chunk)
	if err != nil {
		return &WriteError{Op: "write", Path: w.file.Name(), Err: err}
	}
	if n != len(chunk) {
		return &WriteError{Op: "write", Path: w.file.Name(), Err: io.ErrShortWrite}
	}

	w.hash.Write(chunk)
	w.size += int64(n)
	return nil
}

// Close сбрасывает данные на диск и закрывает файл.
// Повторный вызов ничего не делает.
func (w *ChunkWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.file.Sync(); err != nil {
		w.file.Close()
		return &WriteError{Op: "sync", Path: w.file.Name(), Err: err}
	}
	if err := w.file.Close(); err != nil {
		return &WriteError{Op: "close", Path: w.file.Name(), Err: err}
	}
	return nil
}

// Path возвращает путь к файлу
func (w *ChunkWriter) Path() string {
	return w.file.Name()
}

// Size возвращает количество записанных байт
func (w *ChunkWriter) Size() int64 {
	return w.size
}

// Sum возвращает SHA-256 записанного содержимого в hex
func (w *ChunkWriter) Sum() string {
	return hex.EncodeToString(w.hash.Sum(nil))
}
