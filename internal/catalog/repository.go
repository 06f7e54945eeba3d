package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/JaimeStill/osprey/pkg/repository"
)

// System reads folders and files from the catalog.
type System interface {
	// Folder returns the folder with its file count. Returns ErrNotFound if absent.
	Folder(ctx context.Context, item WorkItem) (*Folder, error)
	// Files returns the folder's files ordered by key.
	Files(ctx context.Context, item WorkItem) ([]File, error)
}

type repo struct {
	db     *sql.DB
	cache  *expirable.LRU[string, Folder]
	logger *slog.Logger
}

// New creates a catalog System. Folder records are cached for ttl;
// a cacheSize of zero disables caching.
func New(db *sql.DB, logger *slog.Logger, cacheSize int, ttl time.Duration) System {
	r := &repo{
		db:     db,
		logger: logger.With("system", "catalog"),
	}
	if cacheSize > 0 {
		r.cache = expirable.NewLRU[string, Folder](cacheSize, nil, ttl)
	}
	return r
}

func (r *repo) Folder(ctx context.Context, item WorkItem) (*Folder, error) {
	v := item.Variant()
	key := v.Name + ":" + item.String()

	if r.cache != nil {
		if f, ok := r.cache.Get(key); ok {
			return &f, nil
		}
	}

	q := fmt.Sprintf(
		"SELECT %s FROM %s f WHERE f.folder_id = $1",
		FolderColumns(v, "f"), v.Folders,
	)

	f, err := repository.QueryOne(ctx, r.db, q, []any{item.Key()}, ScanFolder)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query folder: %w", err)
	}

	if r.cache != nil {
		r.cache.Add(key, f)
	}
	return &f, nil
}

func (r *repo) Files(ctx context.Context, item WorkItem) ([]File, error) {
	v := item.Variant()
	q := fmt.Sprintf(
		"SELECT file_id::text, file_name FROM %s WHERE folder_id = $1 ORDER BY file_id",
		v.Files,
	)

	files, err := repository.QueryMany(ctx, r.db, q, []any{item.Key()}, scanFile)
	if err != nil {
		return nil, fmt.Errorf("query files: %w", err)
	}
	return files, nil
}
