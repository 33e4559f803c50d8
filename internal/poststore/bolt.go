// Package poststore хранит посты во встроенной базе BoltDB.
package poststore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var postsBucket = []byte("posts")

// BoltStore реализация PostStore на основе BoltDB
type BoltStore struct {
	db *bolt.DB

	// OnSkip вызывается для каждой записи, которую не удалось декодировать
	OnSkip func(key string, err error)
}

// NewBoltStore открывает (или создает) базу постов по пути path
func NewBoltStore(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, err
	}

	// Создаем бакет для постов
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(postsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Put сериализует пост в JSON, записывает его и явно сбрасывает базу на диск.
// Успех возвращается только после завершения Sync.
func (bs *BoltStore) Put(key string, post Post) error {
	if key == "" {
		return &StoreError{Op: "put", Err: errors.New("empty key")}
	}

	encoded, err := json.Marshal(post)
	if err != nil {
		return &StoreError{Op: "encode", Err: err}
	}

	err = bs.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(postsBucket).Put([]byte(key), encoded)
	})
	if err != nil {
		return &StoreError{Op: "put", Err: err}
	}

	if err := bs.db.Sync(); err != nil {
		return &StoreError{Op: "sync", Err: err}
	}
	return nil
}

// Scan обходит все записи в одной read-транзакции
func (bs *BoltStore) Scan(fn func(key string, post Post) error) error {
	err := bs.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(postsBucket).ForEach(func(k, v []byte) error {
			post, err := decodePost(v)
			if err != nil {
				if bs.OnSkip != nil {
					bs.OnSkip(string(k), err)
				}
				return nil
			}
			return fn(string(k), post)
		})
	})
	if err != nil {
		return &StoreError{Op: "scan", Err: err}
	}
	return nil
}

// List возвращает все посты, которые удалось декодировать
func (bs *BoltStore) List() ([]Post, error) {
	posts := make([]Post, 0)
	err := bs.Scan(func(_ string, post Post) error {
		posts = append(posts, post)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return posts, nil
}

// Close закрывает хранилище
func (bs *BoltStore) Close() error {
	return bs.db.Close()
}

var errIncompletePost = errors.New("title or message is missing")

// decodePost требует точного совпадения имен ключей: encoding/json
// сопоставляет поля структуры без учета регистра.
func decodePost(data []byte) (Post, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Post{}, err
	}

	title, err := requiredString(fields, "title")
	if err != nil {
		return Post{}, err
	}
	message, err := requiredString(fields, "message")
	if err != nil {
		return Post{}, err
	}

	post := Post{Title: title, Message: message}
	if raw, ok := fields["file_path"]; ok && string(raw) != "null" {
		var path string
		if err := json.Unmarshal(raw, &path); err != nil {
			return Post{}, fmt.Errorf("file_path: %w", err)
		}
		post.FilePath = &path
	}
	return post, nil
}

func requiredString(fields map[string]json.RawMessage, key string) (string, error) {
	raw, ok := fields[key]
	if !ok || string(raw) == "null" {
		return "", fmt.Errorf("%w: %s", errIncompletePost, key)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("%s: %w", key, err)
	}
	return s, nil
}
