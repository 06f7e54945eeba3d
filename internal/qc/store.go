package qc

import (
	"context"
	"time"

	"github.com/JaimeStill/osprey/internal/catalog"
	"github.com/JaimeStill/osprey/pkg/pagination"
)

// Store persists QC folders, sampled files, and project settings.
type Store interface {
	// Settings returns the project's settings, creating them with defaults on first use.
	Settings(ctx context.Context, projectID int64) (*Settings, error)
	// Folder returns the folder's QC record. Returns ErrNotFound if the folder has not entered QC.
	Folder(ctx context.Context, item catalog.WorkItem) (*Folder, error)
	// Files returns the folder's sampled files ordered by file key.
	Files(ctx context.Context, item catalog.WorkItem) ([]File, error)
	// Claim atomically creates or claims the folder's QC record for req.Reviewer.
	// The claim is granted when the record is unowned, owned by the reviewer, or
	// its lease has expired. A denied claim returns the current record and false.
	Claim(ctx context.Context, item catalog.WorkItem, req ClaimRequest) (*Folder, bool, error)
	// Release deletes the reviewer's QC record when it holds no sample,
	// returning the folder to not started.
	Release(ctx context.Context, item catalog.WorkItem, reviewer string) error
	// Update runs fn in a transaction holding the folder's QC record lock.
	Update(ctx context.Context, item catalog.WorkItem, fn func(Tx) error) error
	// AdvanceLevel locks the project settings, reads up to window finalized
	// statuses newest first, and writes the level returned by resolve.
	AdvanceLevel(
		ctx context.Context,
		v *catalog.Variant,
		projectID int64,
		window int,
		resolve func(current Level, history []Status) Level,
	) (*LevelChange, error)
	// Overview counts the project's folders by QC state and finds the oldest unfinished one.
	Overview(ctx context.Context, v *catalog.Variant, projectID int64) (*Overview, error)
	// ListFolders pages through the project's folders joined with their QC records.
	ListFolders(
		ctx context.Context,
		v *catalog.Variant,
		projectID int64,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[FolderStatus], error)
}

// Tx is a folder-scoped transaction opened by Store.Update.
type Tx interface {
	Folder() (*Folder, error)
	Files() ([]File, error)
	// ResetSample replaces the folder's sample with fileKeys at Pending and
	// resets the folder record to Pending at level.
	ResetSample(level Level, fileKeys []string, now time.Time) (*Folder, error)
	// SetVerdict records a verdict. Returns ErrFileNotSampled if fileKey is not in the sample.
	SetVerdict(fileKey string, cmd VerdictCommand, now time.Time) (*File, error)
	// Renew extends the claim lease.
	Renew(expiresAt time.Time) error
	// Finalize writes the folder verdict, releases the lease, and sets the status badge.
	Finalize(cmd FinalizeCommand, now time.Time) (*Folder, error)
}
