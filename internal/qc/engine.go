package qc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/JaimeStill/osprey/internal/catalog"
	"github.com/JaimeStill/osprey/pkg/pagination"
)

// DefaultLease is the claim lease used when Options.Lease is unset.
const DefaultLease = 4 * time.Hour

// Options configures a QC engine. Zero values select defaults.
type Options struct {
	Lease    time.Duration
	Window   int
	Policy   LevelPolicy
	Selector *Selector
	Stager   Stager
	Clock    func() time.Time
}

type engine struct {
	catalog    catalog.System
	store      Store
	logger     *slog.Logger
	pagination pagination.Config
	lease      time.Duration
	window     int
	policy     LevelPolicy
	selector   *Selector
	stager     Stager
	now        func() time.Time
}

// New creates the QC System over a catalog and a store.
func New(
	cat catalog.System,
	store Store,
	logger *slog.Logger,
	pagination pagination.Config,
	opts Options,
) System {
	e := &engine{
		catalog:    cat,
		store:      store,
		logger:     logger.With("system", "qc"),
		pagination: pagination,
		lease:      opts.Lease,
		window:     opts.Window,
		policy:     opts.Policy,
		selector:   opts.Selector,
		stager:     opts.Stager,
		now:        opts.Clock,
	}

	if e.lease <= 0 {
		e.lease = DefaultLease
	}
	if e.window < 1 {
		e.window = DefaultWindow
	}
	if e.policy == nil {
		e.policy = SwitchingPolicy{Window: e.window}
	}
	if e.selector == nil {
		e.selector = NewSelector(nil)
	}
	if e.now == nil {
		e.now = time.Now
	}

	return e
}

func (e *engine) Handler() *Handler {
	return NewHandler(e, e.logger, e.pagination)
}

func (e *engine) EnterFolder(ctx context.Context, item catalog.WorkItem, reviewer string) (*ClaimResult, error) {
	if strings.TrimSpace(reviewer) == "" {
		return nil, ErrReviewerRequired
	}

	folder, err := e.catalog.Folder(ctx, item)
	if err != nil {
		return nil, err
	}
	if folder.FileCount == 0 {
		return nil, ErrEmptyFolder
	}

	settings, err := e.store.Settings(ctx, folder.ProjectID)
	if err != nil {
		return nil, err
	}

	existing, err := e.store.Folder(ctx, item)
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		return nil, err
	case existing.Status != StatusPending:
		return nil, ErrNotPending
	}

	sample, err := e.store.Files(ctx, item)
	if err != nil {
		return nil, err
	}

	// A claim is only taken once a sample can be drawn.
	var keys []string
	if len(sample) == 0 {
		keys, err = e.drawSample(ctx, item, folder, settings)
		if err != nil {
			return nil, err
		}
	}

	now := e.now()
	qcFolder, granted, err := e.store.Claim(ctx, item, ClaimRequest{
		Reviewer:  reviewer,
		Level:     settings.Level,
		Now:       now,
		ExpiresAt: now.Add(e.lease),
	})
	if err != nil {
		return nil, err
	}

	if !granted {
		claimsTotal.WithLabelValues("denied").Inc()
		if qcFolder.Status != StatusPending {
			return nil, ErrNotPending
		}

		owner := ""
		if qcFolder.Owner != nil {
			owner = *qcFolder.Owner
		}
		e.logger.Info("claim denied", "folder", item.String(), "reviewer", reviewer, "owner", owner)
		return &ClaimResult{Granted: false, Owner: owner, Folder: qcFolder}, nil
	}
	claimsTotal.WithLabelValues("granted").Inc()

	result := &ClaimResult{
		Granted: true,
		Owner:   reviewer,
		Folder:  qcFolder,
	}

	if len(sample) > 0 {
		result.SampleSize = len(sample)
		return result, nil
	}

	var sampled bool
	err = e.store.Update(ctx, item, func(tx Tx) error {
		current, err := tx.Files()
		if err != nil {
			return err
		}
		if len(current) > 0 {
			result.SampleSize = len(current)
			return nil
		}

		f, err := tx.ResetSample(settings.Level, keys, now)
		if err != nil {
			return err
		}

		result.Folder = f
		result.SampleSize = len(keys)
		sampled = true
		return nil
	})
	if err != nil {
		if rerr := e.store.Release(ctx, item, reviewer); rerr != nil {
			e.logger.Error("release claim failed", "folder", item.String(), "reviewer", reviewer, "error", rerr)
		}
		return nil, fmt.Errorf("create sample: %w", err)
	}

	if sampled {
		result.Sampled = true
		samplesTotal.WithLabelValues(item.Variant().Name).Inc()
		sampledFilesTotal.WithLabelValues(item.Variant().Name).Add(float64(len(keys)))

		e.logger.Info(
			"folder sampled",
			"folder", item.String(),
			"variant", item.Variant().Name,
			"files", folder.FileCount,
			"sample", len(keys),
			"level", settings.Level,
			"percent", settings.Percent,
		)

		if e.stager != nil {
			e.stager.Stage(item, keys)
		}
	}

	return result, nil
}

func (e *engine) drawSample(
	ctx context.Context,
	item catalog.WorkItem,
	folder *catalog.Folder,
	settings *Settings,
) ([]string, error) {
	filter, err := CompileFilter(settings.Filenames)
	if err != nil {
		return nil, err
	}

	files, err := e.catalog.Files(ctx, item)
	if err != nil {
		return nil, err
	}

	size := SampleSize(folder.FileCount, settings.Percent)
	picked, err := e.selector.Select(files, size, filter)
	if err != nil {
		return nil, err
	}

	keys := make([]string, len(picked))
	for i, f := range picked {
		keys[i] = f.Key
	}
	return keys, nil
}

func (e *engine) SubmitFileVerdict(
	ctx context.Context,
	item catalog.WorkItem,
	fileKey string,
	cmd VerdictCommand,
) (*File, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	key, err := item.Variant().ParseKey(fileKey)
	if err != nil {
		return nil, err
	}

	var file *File
	err = e.store.Update(ctx, item, func(tx Tx) error {
		f, err := tx.Folder()
		if err != nil {
			return err
		}
		if f.Status != StatusPending {
			return ErrNotPending
		}
		if !f.OwnedBy(cmd.Reviewer) {
			return ErrNotOwner
		}

		now := e.now()
		file, err = tx.SetVerdict(key, cmd, now)
		if err != nil {
			return err
		}
		return tx.Renew(now.Add(e.lease))
	})
	if err != nil {
		return nil, err
	}

	verdictsTotal.WithLabelValues(cmd.Severity.String()).Inc()
	e.logger.Info(
		"verdict recorded",
		"folder", item.String(),
		"file", key,
		"severity", cmd.Severity.String(),
		"reviewer", cmd.Reviewer,
	)

	return file, nil
}

func (e *engine) NextPendingFile(ctx context.Context, item catalog.WorkItem) (*File, error) {
	if _, err := e.store.Folder(ctx, item); err != nil {
		return nil, err
	}

	files, err := e.store.Files(ctx, item)
	if err != nil {
		return nil, err
	}

	for _, f := range files {
		if f.Severity == SeverityPending {
			return &f, nil
		}
	}
	return nil, nil
}

func (e *engine) FolderSummary(ctx context.Context, item catalog.WorkItem) (*Summary, error) {
	qcFolder, err := e.store.Folder(ctx, item)
	if err != nil {
		return nil, err
	}

	folder, err := e.catalog.Folder(ctx, item)
	if err != nil {
		return nil, err
	}

	settings, err := e.store.Settings(ctx, folder.ProjectID)
	if err != nil {
		return nil, err
	}

	files, err := e.store.Files(ctx, item)
	if err != nil {
		return nil, err
	}

	eval, err := e.evaluate(item, files, folder.FileCount, settings)
	if err != nil {
		return nil, err
	}

	issues := make([]File, 0, eval.Counts.Issues())
	for _, f := range files {
		if f.Severity != SeverityOK && f.Severity != SeverityPending {
			issues = append(issues, f)
		}
	}

	return &Summary{
		Folder:     qcFolder,
		Catalog:    folder,
		Settings:   settings,
		Evaluation: eval,
		Issues:     issues,
	}, nil
}

func (e *engine) evaluate(item catalog.WorkItem, files []File, folderFiles int, settings *Settings) (Evaluation, error) {
	counts, err := Tally(files)
	if err == nil {
		var eval Evaluation
		eval, err = Evaluate(counts, folderFiles, *settings)
		if err == nil {
			return eval, nil
		}
	}

	e.logger.Error("inconsistent qc state", "folder", item.String(), "error", err)
	return Evaluation{}, err
}

func (e *engine) FinalizeFolder(
	ctx context.Context,
	item catalog.WorkItem,
	cmd FinalizeCommand,
) (*FinalizeResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	folder, err := e.catalog.Folder(ctx, item)
	if err != nil {
		return nil, err
	}

	var finalized *Folder
	err = e.store.Update(ctx, item, func(tx Tx) error {
		f, err := tx.Folder()
		if err != nil {
			return err
		}
		if f.Status != StatusPending {
			return ErrNotPending
		}
		if !f.OwnedBy(cmd.Reviewer) {
			return ErrNotOwner
		}

		files, err := tx.Files()
		if err != nil {
			return err
		}
		counts, err := Tally(files)
		if err != nil {
			return err
		}
		if counts.Total == 0 || counts.Pending > 0 {
			return ErrIncomplete
		}

		finalized, err = tx.Finalize(cmd, e.now())
		return err
	})
	if err != nil {
		return nil, err
	}

	foldersFinalizedTotal.WithLabelValues(cmd.Status.String()).Inc()
	e.logger.Info(
		"folder finalized",
		"folder", item.String(),
		"status", cmd.Status.String(),
		"level", finalized.Level,
		"reviewer", cmd.Reviewer,
	)

	result := &FinalizeResult{Folder: finalized}

	change, err := e.AdvanceLevel(ctx, item.Variant(), folder.ProjectID)
	if err != nil {
		e.logger.Error(
			"level advance failed after finalize",
			"folder", item.String(),
			"project", folder.ProjectID,
			"error", err,
		)
		return result, nil
	}

	result.Level = change
	return result, nil
}

func (e *engine) AdvanceLevel(ctx context.Context, v *catalog.Variant, projectID int64) (*LevelChange, error) {
	change, err := e.store.AdvanceLevel(ctx, v, projectID, e.window, e.policy.Resolve)
	if err != nil {
		return nil, fmt.Errorf("advance level: %w", err)
	}

	if change.Changed() {
		levelChangesTotal.WithLabelValues(string(change.Current)).Inc()
		e.logger.Info(
			"inspection level changed",
			"project", projectID,
			"from", change.Previous,
			"to", change.Current,
			"percent", change.Percent,
		)
	}

	return change, nil
}

func (e *engine) ProjectOverview(ctx context.Context, v *catalog.Variant, projectID int64) (*Overview, error) {
	settings, err := e.store.Settings(ctx, projectID)
	if err != nil {
		return nil, err
	}

	o, err := e.store.Overview(ctx, v, projectID)
	if err != nil {
		return nil, err
	}

	o.Settings = settings
	return o, nil
}

func (e *engine) ListFolders(
	ctx context.Context,
	v *catalog.Variant,
	projectID int64,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[FolderStatus], error) {
	return e.store.ListFolders(ctx, v, projectID, page, filters)
}
