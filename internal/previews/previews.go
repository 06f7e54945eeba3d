// Package previews stages preview images for sampled files. Each file's
// previews ship as a tar archive in blob storage; staging extracts the
// archive next to it so reviewers can browse individual images. Staging
// runs in the background and never blocks QC.
package previews

import (
	"archive/tar"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/osprey/internal/catalog"
	"github.com/JaimeStill/osprey/pkg/formatting"
	"github.com/JaimeStill/osprey/pkg/lifecycle"
	"github.com/JaimeStill/osprey/pkg/storage"
)

const indexName = "index.json"

var stagedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "osprey_previews_staged_total",
		Help: "Preview staging outcomes per sampled file.",
	},
	[]string{"result"},
)

// System stages previews for sampled files.
type System interface {
	// Start binds background staging to the lifecycle coordinator.
	Start(lc *lifecycle.Coordinator) error
	// Stage extracts previews for fileKeys in the background.
	// Before Start it stages inline.
	Stage(item catalog.WorkItem, fileKeys []string)
	// StageSync extracts previews for fileKeys and returns when every file is handled.
	StageSync(ctx context.Context, item catalog.WorkItem, fileKeys []string)
}

// Index lists the blobs extracted from one file's archive.
type Index struct {
	FileKey string   `json:"file_id"`
	Entries []string `json:"entries"`
}

type stager struct {
	store       storage.System
	logger      *slog.Logger
	prefix      string
	concurrency int
	maxEntry    int64

	mu sync.RWMutex
	lc *lifecycle.Coordinator
}

// New creates a preview System backed by store.
func New(store storage.System, cfg *Config, logger *slog.Logger) System {
	return &stager{
		store:       store,
		logger:      logger.With("system", "previews"),
		prefix:      cfg.Prefix,
		concurrency: cfg.Concurrency,
		maxEntry:    cfg.MaxEntryBytes(),
	}
}

func (s *stager) Start(lc *lifecycle.Coordinator) error {
	s.mu.Lock()
	s.lc = lc
	s.mu.Unlock()

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		s.logger.Info("preview staging stopping")
	})

	return nil
}

func (s *stager) Stage(item catalog.WorkItem, fileKeys []string) {
	s.mu.RLock()
	lc := s.lc
	s.mu.RUnlock()

	if lc == nil {
		s.StageSync(context.Background(), item, fileKeys)
		return
	}

	keys := append([]string(nil), fileKeys...)
	lc.Go(func(ctx context.Context) {
		s.StageSync(ctx, item, keys)
	})
}

func (s *stager) StageSync(ctx context.Context, item catalog.WorkItem, fileKeys []string) {
	var g errgroup.Group
	g.SetLimit(s.concurrency)

	dir := Dir(s.prefix, item)
	for _, key := range fileKeys {
		g.Go(func() error {
			result, err := s.stageFile(ctx, dir, key)
			stagedTotal.WithLabelValues(result).Inc()

			switch {
			case errors.Is(err, storage.ErrNotFound):
				s.logger.Warn("preview archive missing", "folder", item.String(), "file", key)
			case err != nil:
				s.logger.Error("preview staging failed", "folder", item.String(), "file", key, "error", err)
			}
			return nil
		})
	}

	g.Wait()
	s.logger.Info("previews staged", "folder", item.String(), "files", len(fileKeys))
}

func (s *stager) stageFile(ctx context.Context, dir, key string) (string, error) {
	indexKey := IndexKey(dir, key)

	exists, err := s.store.Exists(ctx, indexKey)
	if err != nil {
		return "error", err
	}
	if exists {
		return "cached", nil
	}

	archive, err := s.store.Download(ctx, ArchiveKey(dir, key))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "missing", err
		}
		return "error", err
	}
	defer archive.Close()

	entries, err := s.extract(ctx, dir, archive)
	if err != nil {
		s.discard(ctx, entries)
		return "error", err
	}

	data, err := json.Marshal(Index{FileKey: key, Entries: entries})
	if err != nil {
		return "error", err
	}

	if err := s.store.Upload(ctx, indexKey, bytes.NewReader(data), "application/json"); err != nil {
		return "error", err
	}

	return "extracted", nil
}

func (s *stager) extract(ctx context.Context, dir string, r io.Reader) ([]string, error) {
	tr := tar.NewReader(r)
	entries := make([]string, 0)

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return entries, nil
		}
		if err != nil {
			return entries, fmt.Errorf("read archive: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		if s.maxEntry > 0 && hdr.Size > s.maxEntry {
			s.logger.Warn(
				"skipping oversized archive entry",
				"entry", hdr.Name,
				"size", formatting.FormatBytes(hdr.Size, 1),
				"limit", formatting.FormatBytes(s.maxEntry, 0),
			)
			continue
		}

		name, err := entryName(hdr.Name)
		if err != nil {
			s.logger.Warn("skipping archive entry", "entry", hdr.Name, "error", err)
			continue
		}

		key := path.Join(dir, name)
		if err := s.store.Upload(ctx, key, tr, contentType(name)); err != nil {
			return entries, err
		}
		entries = append(entries, key)
	}
}

// discard removes entries written by a failed extraction so the next
// attempt starts clean.
func (s *stager) discard(ctx context.Context, entries []string) {
	for _, key := range entries {
		if err := s.store.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("preview cleanup failed", "key", key, "error", err)
		}
	}
}

// Dir returns the blob directory holding a folder's preview archives.
func Dir(prefix string, item catalog.WorkItem) string {
	return path.Join(prefix, item.Variant().Name, "folder"+item.String())
}

// ArchiveKey returns the blob key of a file's preview archive.
func ArchiveKey(dir, fileKey string) string {
	return path.Join(dir, fileKey+"_files.tar")
}

// IndexKey returns the blob key of a file's extracted preview index.
func IndexKey(dir, fileKey string) string {
	return path.Join(dir, fileKey+"_files", indexName)
}

func entryName(name string) (string, error) {
	clean := path.Clean(strings.TrimPrefix(name, "./"))
	if clean == "." || path.IsAbs(clean) {
		return "", storage.ErrInvalidKey
	}
	if err := storage.ValidateKey(clean); err != nil {
		return "", err
	}
	return clean, nil
}

func contentType(name string) string {
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
