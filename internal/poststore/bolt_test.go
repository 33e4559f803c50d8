package poststore

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"
)

func setupTestStore(t *testing.T) (*BoltStore, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "posts_db", "posts.db")
	s, err := NewBoltStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func putRaw(t *testing.T, s *BoltStore, key string, value []byte) {
	t.Helper()

	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(postsBucket).Put([]byte(key), value)
	})
	require.NoError(t, err)
}

func strPtr(s string) *string { return &s }

func TestBoltStore_PutAndList(t *testing.T) {
	s, _ := setupTestStore(t)

	posts, err := s.List()
	require.NoError(t, err)
	assert.NotNil(t, posts)
	assert.Empty(t, posts)

	require.NoError(t, s.Put(uuid.NewString(), Post{Title: "hello", Message: "world"}))
	require.NoError(t, s.Put(uuid.NewString(), Post{Title: "with file", Message: "m", FilePath: strPtr("static/uploads/x")}))

	posts, err = s.List()
	require.NoError(t, err)
	require.Len(t, posts, 2)

	byTitle := map[string]Post{}
	for _, p := range posts {
		byTitle[p.Title] = p
	}
	assert.Equal(t, "world", byTitle["hello"].Message)
	assert.Nil(t, byTitle["hello"].FilePath)
	require.NotNil(t, byTitle["with file"].FilePath)
	assert.Equal(t, "static/uploads/x", *byTitle["with file"].FilePath)
}

func TestBoltStore_PutEmptyKey(t *testing.T) {
	s, _ := setupTestStore(t)

	err := s.Put("", Post{Title: "t", Message: "m"})
	var se *StoreError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "put", se.Op)
}

func TestBoltStore_SurvivesReopen(t *testing.T) {
	s, path := setupTestStore(t)
	require.NoError(t, s.Put("k1", Post{Title: "durable", Message: "yes"}))
	require.NoError(t, s.Close())

	reopened, err := NewBoltStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	posts, err := reopened.List()
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "durable", posts[0].Title)
}

func TestBoltStore_ScanSkipsMalformed(t *testing.T) {
	s, _ := setupTestStore(t)

	var skipped []string
	s.OnSkip = func(key string, err error) {
		assert.Error(t, err)
		skipped = append(skipped, key)
	}

	require.NoError(t, s.Put("b-good", Post{Title: "ok", Message: "fine"}))
	putRaw(t, s, "a-garbage", []byte{0xde, 0xad, 0xbe, 0xef})
	putRaw(t, s, "c-null", []byte("null"))
	putRaw(t, s, "d-no-message", []byte(`{"title":"x"}`))
	putRaw(t, s, "e-wrong-type", []byte(`{"title":1,"message":"m"}`))
	putRaw(t, s, "f-no-file-path", []byte(`{"title":"old","message":"record"}`))
	putRaw(t, s, "g-wrong-case", []byte(`{"TITLE":"upper","Message":"mixed"}`))
	putRaw(t, s, "h-null-title", []byte(`{"title":null,"message":"m"}`))
	putRaw(t, s, "i-bad-file-path", []byte(`{"title":"t","message":"m","file_path":7}`))
	putRaw(t, s, "j-null-file-path", []byte(`{"title":"nil","message":"path","file_path":null}`))

	posts, err := s.List()
	require.NoError(t, err)
	require.Len(t, posts, 3)
	assert.Equal(t, "ok", posts[0].Title)
	assert.Equal(t, "old", posts[1].Title)
	assert.Nil(t, posts[1].FilePath)
	assert.Equal(t, "nil", posts[2].Title)
	assert.Nil(t, posts[2].FilePath)

	assert.Equal(t, []string{
		"a-garbage", "c-null", "d-no-message", "e-wrong-type",
		"g-wrong-case", "h-null-title", "i-bad-file-path",
	}, skipped)
}

func TestBoltStore_ScanStopsOnCallbackError(t *testing.T) {
	s, _ := setupTestStore(t)
	require.NoError(t, s.Put("k1", Post{Title: "a", Message: "b"}))

	boom := errors.New("boom")
	err := s.Scan(func(string, Post) error { return boom })

	var se *StoreError
	require.ErrorAs(t, err, &se)
	assert.ErrorIs(t, err, boom)
}

func TestBoltStore_ConcurrentPuts(t *testing.T) {
	s, _ := setupTestStore(t)

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- s.Put(uuid.NewString(), Post{
				Title:   fmt.Sprintf("t%d", i),
				Message: fmt.Sprintf("message %d", i),
			})
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	posts, err := s.List()
	require.NoError(t, err)
	require.Len(t, posts, n)

	seen := map[string]string{}
	for _, p := range posts {
		seen[p.Title] = p.Message
	}
	for i := 0; i < n; i++ {
		assert.Equal(t, fmt.Sprintf("message %d", i), seen[fmt.Sprintf("t%d", i)])
	}
}

func TestBoltStore_LockedDatabase(t *testing.T) {
	_, path := setupTestStore(t)

	// второй процесс (или хендл) не может открыть заблокированный файл
	_, err := NewBoltStore(path)
	assert.Error(t, err)
}
