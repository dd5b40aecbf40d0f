package testutil

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"saasan/internal/db"
	"saasan/internal/events"
	"saasan/internal/storage"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewDB opens a private in-memory SQLite database with the schema applied.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Discard,
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Migrate(gdb))
	return gdb
}

var ErrInjected = errors.New("injected storage failure")

// BlobStore is an in-memory storage.BlobStore with failure injection.
type BlobStore struct {
	mu      sync.Mutex
	objects map[string]storage.Object
	seq     int

	// FailPutAfter fails every Put once this many have succeeded; negative
	// disables.
	FailPutAfter int
	FailDelete   bool
	Deleted      []string
	// AcceptPrefix limits accepted content types, like the imgur store; empty
	// accepts everything.
	AcceptPrefix string
}

func (b *BlobStore) Accepts(contentType string) bool {
	return strings.HasPrefix(contentType, b.AcceptPrefix)
}

func NewBlobStore() *BlobStore {
	return &BlobStore{objects: make(map[string]storage.Object), FailPutAfter: -1}
}

func (b *BlobStore) Put(ctx context.Context, obj storage.Object) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !b.Accepts(obj.ContentType) {
		return "", storage.ErrUnsupportedType
	}
	if b.FailPutAfter >= 0 && b.seq >= b.FailPutAfter {
		return "", ErrInjected
	}
	b.seq++
	ref := fmt.Sprintf("mem:%d", b.seq)
	b.objects[ref] = obj
	return ref, nil
}

func (b *BlobStore) Delete(_ context.Context, ref string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.FailDelete {
		return ErrInjected
	}
	delete(b.objects, ref)
	b.Deleted = append(b.Deleted, ref)
	return nil
}

func (b *BlobStore) Close() error { return nil }

// Len returns the number of live objects.
func (b *BlobStore) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.objects)
}

func (b *BlobStore) Has(ref string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.objects[ref]
	return ok
}

// Recorder captures published events.
type Recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *Recorder) Publish(_ context.Context, ev events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event(nil), r.events...)
}

func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

// Sample file headers that content sniffing recognizes.
var (
	PNG = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...)
	PDF = []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n")
	MP3 = append([]byte("ID3\x03\x00\x00\x00\x00\x00\x00"), make([]byte, 32)...)
)
