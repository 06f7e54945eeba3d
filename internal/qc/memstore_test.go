package qc_test

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/JaimeStill/osprey/internal/catalog"
	"github.com/JaimeStill/osprey/internal/qc"
	"github.com/JaimeStill/osprey/pkg/pagination"
)

type fakeCatalog struct {
	mu      sync.Mutex
	folders map[string]catalog.Folder
	files   map[string][]catalog.File
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		folders: make(map[string]catalog.Folder),
		files:   make(map[string][]catalog.File),
	}
}

// addFolder registers an int-keyed folder with n files keyed id*1000+i.
func (c *fakeCatalog) addFolder(id, projectID int64, n int) catalog.WorkItem {
	item := catalog.IntKeyedFolder{ID: id}

	files := make([]catalog.File, n)
	for i := range n {
		files[i] = catalog.File{
			Key:  strconv.FormatInt(id*1000+int64(i+1), 10),
			Name: fmt.Sprintf("img_%04d.tif", i+1),
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.folders[item.String()] = catalog.Folder{
		Key:       item.String(),
		ProjectID: projectID,
		Name:      fmt.Sprintf("box-%04d", id),
		FileCount: n,
	}
	c.files[item.String()] = files
	return item
}

func (c *fakeCatalog) Folder(_ context.Context, item catalog.WorkItem) (*catalog.Folder, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.folders[item.String()]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return &f, nil
}

func (c *fakeCatalog) Files(_ context.Context, item catalog.WorkItem) ([]catalog.File, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.files[item.String()]), nil
}

func (c *fakeCatalog) name(item catalog.WorkItem, key string) string {
	for _, f := range c.files[item.String()] {
		if f.Key == key {
			return f.Name
		}
	}
	return ""
}

type memFolder struct {
	projectID int64
	folder    qc.Folder
	files     []qc.File
}

func (m *memFolder) clone() *memFolder {
	c := *m
	c.files = slices.Clone(m.files)
	return &c
}

// memStore is an in-memory Store. Update holds a single mutex for the
// duration of fn, matching the row lock taken by the PostgreSQL store.
type memStore struct {
	mu         sync.Mutex
	cat        *fakeCatalog
	defaults   qc.Settings
	settings   map[int64]*qc.Settings
	folders    map[string]*memFolder
	advanceErr error
	sampleErr  error
}

func newMemStore(cat *fakeCatalog) *memStore {
	return &memStore{
		cat:      cat,
		defaults: qc.DefaultSettings(),
		settings: make(map[int64]*qc.Settings),
		folders:  make(map[string]*memFolder),
	}
}

func (s *memStore) ensureSettings(projectID int64) *qc.Settings {
	st, ok := s.settings[projectID]
	if !ok {
		d := s.defaults
		d.ProjectID = projectID
		st = &d
		s.settings[projectID] = st
	}
	return st
}

func (s *memStore) Settings(_ context.Context, projectID int64) (*qc.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := *s.ensureSettings(projectID)
	return &st, nil
}

func (s *memStore) Folder(_ context.Context, item catalog.WorkItem) (*qc.Folder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.folders[item.String()]
	if !ok {
		return nil, qc.ErrNotFound
	}
	f := m.folder
	return &f, nil
}

func (s *memStore) Files(_ context.Context, item catalog.WorkItem) ([]qc.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.folders[item.String()]
	if !ok {
		return nil, nil
	}
	return slices.Clone(m.files), nil
}

func (s *memStore) Claim(_ context.Context, item catalog.WorkItem, req qc.ClaimRequest) (*qc.Folder, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.folders[item.String()]
	if !ok {
		cf, ok := s.cat.folders[item.String()]
		if !ok {
			return nil, false, catalog.ErrNotFound
		}
		owner, now, expires := req.Reviewer, req.Now, req.ExpiresAt
		m = &memFolder{
			projectID: cf.ProjectID,
			folder: qc.Folder{
				FolderKey:      item.String(),
				Status:         qc.StatusPending,
				Level:          req.Level,
				Owner:          &owner,
				ClaimedAt:      &now,
				LeaseExpiresAt: &expires,
				UpdatedAt:      now,
			},
		}
		s.folders[item.String()] = m
		f := m.folder
		return &f, true, nil
	}

	f := &m.folder
	claimable := f.Status == qc.StatusPending &&
		(f.Owner == nil || *f.Owner == req.Reviewer ||
			(f.LeaseExpiresAt != nil && f.LeaseExpiresAt.Before(req.Now)))
	if !claimable {
		current := *f
		return &current, false, nil
	}

	if !f.OwnedBy(req.Reviewer) {
		now := req.Now
		f.ClaimedAt = &now
	}
	owner, expires := req.Reviewer, req.ExpiresAt
	f.Owner = &owner
	f.LeaseExpiresAt = &expires

	current := *f
	return &current, true, nil
}

func (s *memStore) Release(_ context.Context, item catalog.WorkItem, reviewer string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.folders[item.String()]
	if ok && m.folder.Status == qc.StatusPending && m.folder.OwnedBy(reviewer) && len(m.files) == 0 {
		delete(s.folders, item.String())
	}
	return nil
}

func (s *memStore) Update(_ context.Context, item catalog.WorkItem, fn func(qc.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.folders[item.String()]
	if !ok {
		return qc.ErrNotFound
	}

	snapshot := m.clone()
	if err := fn(&memTx{store: s, item: item, m: m}); err != nil {
		s.folders[item.String()] = snapshot
		return err
	}
	return nil
}

func (s *memStore) AdvanceLevel(
	_ context.Context,
	v *catalog.Variant,
	projectID int64,
	window int,
	resolve func(current qc.Level, history []qc.Status) qc.Level,
) (*qc.LevelChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.advanceErr != nil {
		return nil, s.advanceErr
	}

	st := s.ensureSettings(projectID)

	var finalized []qc.Folder
	for _, m := range s.folders {
		if m.projectID == projectID && m.folder.Status.Final() {
			finalized = append(finalized, m.folder)
		}
	}
	sort.Slice(finalized, func(i, j int) bool {
		return finalized[i].UpdatedAt.After(finalized[j].UpdatedAt)
	})

	history := make([]qc.Status, 0, window)
	for _, f := range finalized {
		if len(history) == window {
			break
		}
		history = append(history, f.Status)
	}

	previous := st.Level
	st.Level = resolve(previous, history)
	st.Percent = st.PercentFor(st.Level)

	return &qc.LevelChange{
		ProjectID: projectID,
		Previous:  previous,
		Current:   st.Level,
		Percent:   st.Percent,
		History:   history,
	}, nil
}

func (s *memStore) Overview(_ context.Context, _ *catalog.Variant, projectID int64) (*qc.Overview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var o qc.Overview
	for key, cf := range s.cat.folders {
		if cf.ProjectID != projectID {
			continue
		}
		o.Total++
		m, ok := s.folders[key]
		switch {
		case !ok:
			o.NotStarted++
		case m.folder.Status == qc.StatusPassed:
			o.Passed++
		case m.folder.Status == qc.StatusFailed:
			o.Failed++
		default:
			o.InProgress++
		}
	}
	return &o, nil
}

func (s *memStore) ListFolders(
	_ context.Context,
	_ *catalog.Variant,
	projectID int64,
	page pagination.PageRequest,
	_ qc.Filters,
) (*pagination.PageResult[qc.FolderStatus], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows []qc.FolderStatus
	for key, cf := range s.cat.folders {
		if cf.ProjectID != projectID {
			continue
		}
		row := qc.FolderStatus{FolderKey: key, Name: cf.Name}
		if m, ok := s.folders[key]; ok {
			status, level := m.folder.Status, m.folder.Level
			row.Status = &status
			row.Level = &level
			row.Owner = m.folder.Owner
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })

	result := pagination.NewPageResult(rows, len(rows), page.Page, page.PageSize)
	return &result, nil
}

func (s *memStore) folderState(item catalog.WorkItem) (qc.Folder, []qc.File) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.folders[item.String()]
	if !ok {
		return qc.Folder{}, nil
	}
	return m.folder, slices.Clone(m.files)
}

type memTx struct {
	store *memStore
	item  catalog.WorkItem
	m     *memFolder
}

func (t *memTx) Folder() (*qc.Folder, error) {
	f := t.m.folder
	return &f, nil
}

func (t *memTx) Files() ([]qc.File, error) {
	return slices.Clone(t.m.files), nil
}

func (t *memTx) ResetSample(level qc.Level, fileKeys []string, now time.Time) (*qc.Folder, error) {
	if t.store.sampleErr != nil {
		return nil, t.store.sampleErr
	}

	keys := slices.Clone(fileKeys)
	slices.SortFunc(keys, func(a, b string) int {
		x, _ := strconv.ParseInt(a, 10, 64)
		y, _ := strconv.ParseInt(b, 10, 64)
		return int(x - y)
	})

	t.m.files = make([]qc.File, len(keys))
	for i, k := range keys {
		t.m.files[i] = qc.File{
			FileKey:   k,
			FileName:  t.store.cat.name(t.item, k),
			Severity:  qc.SeverityPending,
			UpdatedAt: now,
		}
	}

	t.m.folder.Status = qc.StatusPending
	t.m.folder.Level = level
	t.m.folder.Notes = ""
	t.m.folder.UpdatedAt = now

	f := t.m.folder
	return &f, nil
}

func (t *memTx) SetVerdict(fileKey string, cmd qc.VerdictCommand, now time.Time) (*qc.File, error) {
	for i := range t.m.files {
		f := &t.m.files[i]
		if f.FileKey != fileKey {
			continue
		}
		reviewer := cmd.Reviewer
		f.Severity = cmd.Severity
		f.Notes = cmd.Notes
		f.Reviewer = &reviewer
		f.UpdatedAt = now
		out := *f
		return &out, nil
	}
	return nil, qc.ErrFileNotSampled
}

func (t *memTx) Renew(expiresAt time.Time) error {
	t.m.folder.LeaseExpiresAt = &expiresAt
	return nil
}

func (t *memTx) Finalize(cmd qc.FinalizeCommand, now time.Time) (*qc.Folder, error) {
	if t.m.folder.Status != qc.StatusPending {
		return nil, qc.ErrNotPending
	}

	reviewer := cmd.Reviewer
	t.m.folder.Status = cmd.Status
	t.m.folder.Notes = cmd.Notes
	t.m.folder.Owner = &reviewer
	t.m.folder.Address = cmd.Address
	t.m.folder.UpdatedAt = now
	t.m.folder.LeaseExpiresAt = nil

	f := t.m.folder
	return &f, nil
}

var errStoreDown = errors.New("store unavailable")

// clock is a settable time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type stageCall struct {
	item catalog.WorkItem
	keys []string
}

type recordingStager struct {
	mu    sync.Mutex
	calls []stageCall
}

func (r *recordingStager) Stage(item catalog.WorkItem, keys []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, stageCall{item: item, keys: slices.Clone(keys)})
}

func (r *recordingStager) Calls() []stageCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}
