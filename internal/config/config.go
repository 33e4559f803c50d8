// Package config загружает настройки сервиса из YAML файла.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config настройки сервиса постов
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Uploads UploadsConfig `yaml:"uploads"`
	Static  StaticConfig  `yaml:"static"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig настройки HTTP сервера
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// StorageConfig настройки хранилища постов
type StorageConfig struct {
	DBPath string `yaml:"db_path"`
}

// UploadsConfig настройки приема вложений
type UploadsConfig struct {
	Dir            string `yaml:"dir"`
	ChunkSize      int    `yaml:"chunk_size"`
	RemoveRejected bool   `yaml:"remove_rejected"`
}

// StaticConfig директория со статикой (index.html и загрузки)
type StaticConfig struct {
	Dir string `yaml:"dir"`
}

// LogConfig настройки логирования
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default возвращает настройки по умолчанию
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:         "127.0.0.1:8080",
			ReadTimeout:  300 * time.Second,
			WriteTimeout: 300 * time.Second,
		},
		Storage: StorageConfig{DBPath: "posts_db/posts.db"},
		Uploads: UploadsConfig{Dir: "static/uploads", ChunkSize: 32 << 10},
		Static:  StaticConfig{Dir: "static"},
		Log:     LogConfig{Level: "info", Format: "text"},
	}
}

// Load читает YAML файл поверх настроек по умолчанию.
// Пустой путь означает настройки по умолчанию.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate проверяет обязательные поля
func (c Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Storage.DBPath == "" {
		errs = append(errs, errors.New("storage.db_path is required"))
	}
	if c.Uploads.Dir == "" {
		errs = append(errs, errors.New("uploads.dir is required"))
	}
	if c.Uploads.ChunkSize < 0 {
		errs = append(errs, fmt.Errorf("uploads.chunk_size must not be negative, got %d", c.Uploads.ChunkSize))
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log.level %q", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log.format %q", c.Log.Format))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
