package qc

import (
	"context"

	"github.com/JaimeStill/osprey/internal/catalog"
	"github.com/JaimeStill/osprey/pkg/pagination"
)

// System defines the public contract for QC sessions.
type System interface {
	Handler() *Handler

	// EnterFolder claims the folder for reviewer and draws its sample on first entry.
	EnterFolder(ctx context.Context, item catalog.WorkItem, reviewer string) (*ClaimResult, error)
	// SubmitFileVerdict records the claimant's verdict for one sampled file.
	SubmitFileVerdict(ctx context.Context, item catalog.WorkItem, fileKey string, cmd VerdictCommand) (*File, error)
	// NextPendingFile returns the lowest-keyed file still pending, or nil when every file is reviewed.
	NextPendingFile(ctx context.Context, item catalog.WorkItem) (*File, error)
	FolderSummary(ctx context.Context, item catalog.WorkItem) (*Summary, error)
	// FinalizeFolder confirms the folder verdict and advances the project's inspection level.
	FinalizeFolder(ctx context.Context, item catalog.WorkItem, cmd FinalizeCommand) (*FinalizeResult, error)
	AdvanceLevel(ctx context.Context, v *catalog.Variant, projectID int64) (*LevelChange, error)
	ProjectOverview(ctx context.Context, v *catalog.Variant, projectID int64) (*Overview, error)

	ListFolders(
		ctx context.Context,
		v *catalog.Variant,
		projectID int64,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[FolderStatus], error)
}

// Stager prepares previews for newly sampled files. Stage must not block.
type Stager interface {
	Stage(item catalog.WorkItem, fileKeys []string)
}
