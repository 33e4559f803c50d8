package poststore

import "fmt"

const (
	// MaxTitleLen максимальная длина заголовка в байтах
	MaxTitleLen = 15
	// MaxMessageLen максимальная длина сообщения в байтах
	MaxMessageLen = 200000
)

// Post пост пользователя в том виде, в котором он хранится в базе
type Post struct {
	Title    string  `json:"title"`
	Message  string  `json:"message"`
	FilePath *string `json:"file_path"`
}

// StoreError ошибка хранилища постов
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("poststore %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// PostStore интерфейс для хранения постов
type PostStore interface {
	// Put сохраняет пост под ключом key и сбрасывает данные на диск
	Put(key string, post Post) error

	// Scan обходит все посты; записи, которые не удалось декодировать, пропускаются
	Scan(fn func(key string, post Post) error) error

	// List возвращает все посты в порядке обхода хранилища
	List() ([]Post, error)

	// Close закрывает хранилище
	Close() error
}
