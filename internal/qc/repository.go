package qc

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/JaimeStill/osprey/internal/catalog"
	"github.com/JaimeStill/osprey/pkg/pagination"
	"github.com/JaimeStill/osprey/pkg/query"
	"github.com/JaimeStill/osprey/pkg/repository"
)

type querier interface {
	repository.Querier
	repository.Executor
}

type repo struct {
	db         *sql.DB
	defaults   Settings
	pagination pagination.Config
	logger     *slog.Logger
}

// NewStore creates a PostgreSQL Store. defaults seeds the settings of
// projects entering QC for the first time.
func NewStore(
	db *sql.DB,
	defaults Settings,
	pagination pagination.Config,
	logger *slog.Logger,
) Store {
	return &repo{
		db:         db,
		defaults:   defaults,
		pagination: pagination,
		logger:     logger.With("store", "qc"),
	}
}

func (r *repo) Settings(ctx context.Context, projectID int64) (*Settings, error) {
	s, err := ensureSettings(ctx, r.db, projectID, r.defaults, false)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repo) Folder(ctx context.Context, item catalog.WorkItem) (*Folder, error) {
	return findFolder(ctx, r.db, item, false)
}

func (r *repo) Files(ctx context.Context, item catalog.WorkItem) ([]File, error) {
	return listFiles(ctx, r.db, item)
}

func (r *repo) Claim(ctx context.Context, item catalog.WorkItem, req ClaimRequest) (*Folder, bool, error) {
	q := fmt.Sprintf(`
		INSERT INTO %s AS q (folder_id, qc_status, qc_level, qc_by, claimed_at, lease_expires_at, updated_at)
		VALUES ($1, 9, $2, $3, $4, $5, $4)
		ON CONFLICT (folder_id) DO UPDATE SET
			qc_by = EXCLUDED.qc_by,
			claimed_at = CASE WHEN q.qc_by IS DISTINCT FROM EXCLUDED.qc_by THEN EXCLUDED.claimed_at ELSE q.claimed_at END,
			lease_expires_at = EXCLUDED.lease_expires_at
		WHERE q.qc_status = 9
			AND (q.qc_by IS NULL OR q.qc_by = EXCLUDED.qc_by OR q.lease_expires_at < EXCLUDED.claimed_at)
		RETURNING %s`,
		item.Variant().QCFolders, folderColumns,
	)

	args := []any{item.Key(), string(req.Level), req.Reviewer, req.Now, req.ExpiresAt}

	f, err := repository.QueryOne(ctx, r.db, q, args, scanFolder)
	if err == nil {
		return &f, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("claim folder: %w", repository.MapError(err, catalog.ErrNotFound, err))
	}

	current, err := findFolder(ctx, r.db, item, false)
	if err != nil {
		return nil, false, err
	}
	return current, false, nil
}

func (r *repo) Release(ctx context.Context, item catalog.WorkItem, reviewer string) error {
	v := item.Variant()
	q := fmt.Sprintf(`
		DELETE FROM %s q
		WHERE q.folder_id = $1 AND q.qc_by = $2 AND q.qc_status = 9
			AND NOT EXISTS (SELECT 1 FROM %s s WHERE s.folder_id = q.folder_id)`,
		v.QCFolders, v.QCFiles,
	)

	if _, err := r.db.ExecContext(ctx, q, item.Key(), reviewer); err != nil {
		return fmt.Errorf("release claim: %w", err)
	}
	return nil
}

func (r *repo) Update(ctx context.Context, item catalog.WorkItem, fn func(Tx) error) error {
	return repository.InTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := findFolder(ctx, tx, item, true); err != nil {
			return err
		}
		return fn(&folderTx{ctx: ctx, tx: tx, item: item})
	})
}

func (r *repo) AdvanceLevel(
	ctx context.Context,
	v *catalog.Variant,
	projectID int64,
	window int,
	resolve func(current Level, history []Status) Level,
) (*LevelChange, error) {
	return repository.WithTx(ctx, r.db, func(tx *sql.Tx) (*LevelChange, error) {
		s, err := ensureSettings(ctx, tx, projectID, r.defaults, true)
		if err != nil {
			return nil, err
		}

		historySQL := fmt.Sprintf(`
			SELECT q.qc_status
			FROM %s q
			JOIN %s f ON f.folder_id = q.folder_id
			WHERE f.project_id = $1 AND q.qc_status <> 9
			ORDER BY q.updated_at DESC
			LIMIT $2`,
			v.QCFolders, v.Folders,
		)

		history, err := repository.QueryColumn[Status](ctx, tx, historySQL, projectID, window)
		if err != nil {
			return nil, fmt.Errorf("query level history: %w", err)
		}

		next := resolve(s.Level, history)
		percent := s.PercentFor(next)

		if err := repository.ExecExpectOne(
			ctx, tx,
			"UPDATE qc_settings SET qc_level = $2, qc_percent = $3, updated_at = NOW() WHERE project_id = $1",
			projectID, string(next), percent,
		); err != nil {
			return nil, fmt.Errorf("update settings: %w", err)
		}

		return &LevelChange{
			ProjectID: projectID,
			Previous:  s.Level,
			Current:   next,
			Percent:   percent,
			History:   history,
		}, nil
	})
}

func (r *repo) Overview(ctx context.Context, v *catalog.Variant, projectID int64) (*Overview, error) {
	countSQL := fmt.Sprintf(`
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE q.qc_status = 0),
			COUNT(*) FILTER (WHERE q.qc_status = 1),
			COUNT(*) FILTER (WHERE q.qc_status = 9),
			COUNT(*) FILTER (WHERE q.folder_id IS NULL)
		FROM %s f
		LEFT JOIN %s q ON q.folder_id = f.folder_id
		WHERE f.project_id = $1`,
		v.Folders, v.QCFolders,
	)

	var o Overview
	if err := r.db.QueryRowContext(ctx, countSQL, projectID).Scan(
		&o.Total,
		&o.Passed,
		&o.Failed,
		&o.InProgress,
		&o.NotStarted,
	); err != nil {
		return nil, fmt.Errorf("count folders: %w", err)
	}

	nextSQL := fmt.Sprintf(`
		SELECT %s
		FROM %s f
		LEFT JOIN %s q ON q.folder_id = f.folder_id
		WHERE f.project_id = $1 AND (q.folder_id IS NULL OR q.qc_status = 9)
		ORDER BY f.date ASC NULLS LAST, f.project_folder ASC
		LIMIT 1`,
		catalog.FolderColumns(v, "f"), v.Folders, v.QCFolders,
	)

	next, err := repository.QueryOne(ctx, r.db, nextSQL, []any{projectID}, catalog.ScanFolder)
	switch {
	case err == nil:
		o.Next = &next
	case !errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("query next folder: %w", err)
	}

	return &o, nil
}

func (r *repo) ListFolders(
	ctx context.Context,
	v *catalog.Variant,
	projectID int64,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[FolderStatus], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(statusProjection(v), statusSort...).
		WhereEquals("f.project_id", projectID).
		WhereSearch(page.Search, "project_folder")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count folders: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	folders, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanFolderStatus)
	if err != nil {
		return nil, fmt.Errorf("query folders: %w", err)
	}

	result := pagination.NewPageResult(folders, total, page.Page, page.PageSize)
	return &result, nil
}

type folderTx struct {
	ctx  context.Context
	tx   *sql.Tx
	item catalog.WorkItem
}

func (t *folderTx) Folder() (*Folder, error) {
	return findFolder(t.ctx, t.tx, t.item, false)
}

func (t *folderTx) Files() ([]File, error) {
	return listFiles(t.ctx, t.tx, t.item)
}

func (t *folderTx) ResetSample(level Level, fileKeys []string, now time.Time) (*Folder, error) {
	v := t.item.Variant()

	if _, err := t.tx.ExecContext(
		t.ctx,
		fmt.Sprintf("DELETE FROM %s WHERE folder_id = $1", v.QCFiles),
		t.item.Key(),
	); err != nil {
		return nil, fmt.Errorf("clear sample: %w", err)
	}

	resetSQL := fmt.Sprintf(`
		UPDATE %s
		SET qc_status = 9, qc_level = $2, qc_info = '', updated_at = $3
		WHERE folder_id = $1
		RETURNING %s`,
		v.QCFolders, folderColumns,
	)

	f, err := repository.QueryOne(t.ctx, t.tx, resetSQL, []any{t.item.Key(), string(level), now}, scanFolder)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, err)
	}

	insertSQL := fmt.Sprintf(`
		INSERT INTO %[1]s (folder_id, file_id, file_qc, updated_at)
		SELECT $1::%[2]s, k::%[2]s, 9, $3::timestamptz
		FROM unnest($2::text[]) AS k`,
		v.QCFiles, v.KeyType,
	)

	if _, err := t.tx.ExecContext(t.ctx, insertSQL, t.item.Key(), fileKeys, now); err != nil {
		return nil, fmt.Errorf("insert sample: %w", err)
	}

	return &f, nil
}

func (t *folderTx) SetVerdict(fileKey string, cmd VerdictCommand, now time.Time) (*File, error) {
	v := t.item.Variant()

	q := fmt.Sprintf(`
		UPDATE %s q
		SET file_qc = $3, qc_info = $4, qc_by = $5, updated_at = $6
		FROM %s f
		WHERE q.folder_id = $1 AND q.file_id = $2::text::%s AND f.file_id = q.file_id
		RETURNING q.file_id::text, f.file_name, q.file_qc, q.qc_info, q.qc_by, q.updated_at`,
		v.QCFiles, v.Files, v.KeyType,
	)

	args := []any{t.item.Key(), fileKey, int(cmd.Severity), cmd.Notes, cmd.Reviewer, now}

	f, err := repository.QueryOne(t.ctx, t.tx, q, args, scanFile)
	if err != nil {
		return nil, repository.MapError(err, ErrFileNotSampled, err)
	}
	return &f, nil
}

func (t *folderTx) Renew(expiresAt time.Time) error {
	return repository.ExecExpectOne(
		t.ctx, t.tx,
		fmt.Sprintf("UPDATE %s SET lease_expires_at = $2 WHERE folder_id = $1", t.item.Variant().QCFolders),
		t.item.Key(), expiresAt,
	)
}

func (t *folderTx) Finalize(cmd FinalizeCommand, now time.Time) (*Folder, error) {
	v := t.item.Variant()

	q := fmt.Sprintf(`
		UPDATE %s
		SET qc_status = $2, qc_info = $3, qc_by = $4, qc_ip = $5, updated_at = $6, lease_expires_at = NULL
		WHERE folder_id = $1 AND qc_status = 9
		RETURNING %s`,
		v.QCFolders, folderColumns,
	)

	args := []any{t.item.Key(), int(cmd.Status), cmd.Notes, cmd.Reviewer, cmd.Address, now}

	f, err := repository.QueryOne(t.ctx, t.tx, q, args, scanFolder)
	if err != nil {
		return nil, repository.MapError(err, ErrNotPending, err)
	}

	css, text := badgeFor(cmd.Status)
	badgeSQL := fmt.Sprintf(`
		INSERT INTO %s (folder_id, badge_type, badge_css, badge_text, updated_at)
		VALUES ($1, 'qc_status', $2, $3, $4)
		ON CONFLICT (folder_id, badge_type) DO UPDATE SET
			badge_css = EXCLUDED.badge_css,
			badge_text = EXCLUDED.badge_text,
			updated_at = EXCLUDED.updated_at`,
		v.Badges,
	)

	if _, err := t.tx.ExecContext(t.ctx, badgeSQL, t.item.Key(), css, text, now); err != nil {
		return nil, fmt.Errorf("write status badge: %w", err)
	}

	return &f, nil
}

func badgeFor(s Status) (css, text string) {
	if s == StatusPassed {
		return "bg-success", "QC Passed"
	}
	return "bg-danger", "QC Failed"
}

func findFolder(ctx context.Context, q repository.Querier, item catalog.WorkItem, lock bool) (*Folder, error) {
	sqlStr := fmt.Sprintf(
		"SELECT %s FROM %s WHERE folder_id = $1",
		folderColumns, item.Variant().QCFolders,
	)
	if lock {
		sqlStr += " FOR UPDATE"
	}

	f, err := repository.QueryOne(ctx, q, sqlStr, []any{item.Key()}, scanFolder)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, err)
	}
	return &f, nil
}

func listFiles(ctx context.Context, q repository.Querier, item catalog.WorkItem) ([]File, error) {
	sqlStr := fileSelect(item.Variant()) + " WHERE q.folder_id = $1 ORDER BY q.file_id"

	files, err := repository.QueryMany(ctx, q, sqlStr, []any{item.Key()}, scanFile)
	if err != nil {
		return nil, fmt.Errorf("query sample: %w", err)
	}
	return files, nil
}

func ensureSettings(ctx context.Context, q querier, projectID int64, d Settings, lock bool) (Settings, error) {
	if _, err := q.ExecContext(ctx, `
		INSERT INTO qc_settings (
			project_id, qc_level, qc_percent, qc_normal_percent, qc_reduced_percent, qc_tightened_percent,
			qc_threshold_critical, qc_threshold_major, qc_threshold_minor, qc_filenames
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (project_id) DO NOTHING`,
		projectID, string(d.Level), d.Percent, d.NormalPercent, d.ReducedPercent, d.TightenedPercent,
		d.ThresholdCritical, d.ThresholdMajor, d.ThresholdMinor, d.Filenames,
	); err != nil {
		return Settings{}, repository.MapError(err, ErrProjectNotFound, err)
	}

	sqlStr := "SELECT " + settingsColumns + " FROM qc_settings WHERE project_id = $1"
	if lock {
		sqlStr += " FOR UPDATE"
	}

	s, err := repository.QueryOne(ctx, q, sqlStr, []any{projectID}, scanSettings)
	if err != nil {
		return Settings{}, repository.MapError(err, ErrProjectNotFound, err)
	}
	return s, nil
}
