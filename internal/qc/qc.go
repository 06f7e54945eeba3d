// Package qc implements acceptance sampling for digitized folders.
// A folder entering QC is claimed by one reviewer, a random sample of its files
// is drawn, each sampled file receives a severity verdict, and the aggregated
// counts are compared against the project's thresholds. Every finalized folder
// feeds back into the project's inspection level, which sets the sampling
// percentage for the folders that follow.
package qc

import (
	"strings"
	"time"

	"github.com/JaimeStill/osprey/internal/catalog"
)

// Status is the QC state of a folder.
type Status int

const (
	StatusPassed  Status = 0
	StatusFailed  Status = 1
	StatusPending Status = 9
)

func (s Status) String() string {
	switch s {
	case StatusPassed:
		return "passed"
	case StatusFailed:
		return "failed"
	case StatusPending:
		return "pending"
	}
	return "unknown"
}

// Final reports whether s is a confirmed folder verdict.
func (s Status) Final() bool {
	return s == StatusPassed || s == StatusFailed
}

// Severity is the verdict recorded for one sampled file.
type Severity int

const (
	SeverityOK       Severity = 0
	SeverityCritical Severity = 1
	SeverityMajor    Severity = 2
	SeverityMinor    Severity = 3
	SeverityPending  Severity = 9
)

func (s Severity) String() string {
	switch s {
	case SeverityOK:
		return "ok"
	case SeverityCritical:
		return "critical"
	case SeverityMajor:
		return "major"
	case SeverityMinor:
		return "minor"
	case SeverityPending:
		return "pending"
	}
	return "unknown"
}

// Verdict reports whether s may be submitted by a reviewer.
func (s Severity) Verdict() bool {
	return s >= SeverityOK && s <= SeverityMinor
}

// Level is a project's inspection level.
type Level string

const (
	LevelTightened Level = "Tightened"
	LevelNormal    Level = "Normal"
	LevelReduced   Level = "Reduced"
)

// Valid reports whether l is a known inspection level.
func (l Level) Valid() bool {
	switch l {
	case LevelTightened, LevelNormal, LevelReduced:
		return true
	}
	return false
}

// Settings holds a project's sampling configuration.
type Settings struct {
	ProjectID         int64     `json:"project_id"`
	Level             Level     `json:"qc_level"`
	Percent           float64   `json:"qc_percent"`
	NormalPercent     float64   `json:"qc_normal_percent"`
	ReducedPercent    float64   `json:"qc_reduced_percent"`
	TightenedPercent  float64   `json:"qc_tightened_percent"`
	ThresholdCritical float64   `json:"qc_threshold_critical"`
	ThresholdMajor    float64   `json:"qc_threshold_major"`
	ThresholdMinor    float64   `json:"qc_threshold_minor"`
	Filenames         *string   `json:"qc_filenames"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// DefaultSettings returns the settings created for a project's first QC.
func DefaultSettings() Settings {
	return Settings{
		Level:             LevelTightened,
		Percent:           40,
		NormalPercent:     10,
		ReducedPercent:    5,
		TightenedPercent:  40,
		ThresholdCritical: 0,
		ThresholdMajor:    1.5,
		ThresholdMinor:    4,
	}
}

// PercentFor returns the sampling percent configured for level.
func (s Settings) PercentFor(level Level) float64 {
	switch level {
	case LevelNormal:
		return s.NormalPercent
	case LevelReduced:
		return s.ReducedPercent
	default:
		return s.TightenedPercent
	}
}

// Folder is the QC record of a folder for the current sampling cycle.
type Folder struct {
	FolderKey      string     `json:"folder_id"`
	Status         Status     `json:"qc_status"`
	Level          Level      `json:"qc_level"`
	Owner          *string    `json:"qc_by"`
	Notes          string     `json:"qc_info"`
	Address        string     `json:"qc_ip"`
	ClaimedAt      *time.Time `json:"claimed_at"`
	LeaseExpiresAt *time.Time `json:"lease_expires_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// OwnedBy reports whether reviewer holds the folder's claim.
func (f *Folder) OwnedBy(reviewer string) bool {
	return f.Owner != nil && *f.Owner == reviewer
}

// File is a sampled file and its verdict.
type File struct {
	FileKey   string    `json:"file_id"`
	FileName  string    `json:"file_name"`
	Severity  Severity  `json:"file_qc"`
	Notes     string    `json:"qc_info"`
	Reviewer  *string   `json:"qc_by"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ClaimResult reports the outcome of entering a folder.
// When Granted is false, Owner names the reviewer holding the claim.
type ClaimResult struct {
	Granted    bool    `json:"granted"`
	Owner      string  `json:"owner"`
	Folder     *Folder `json:"folder"`
	Sampled    bool    `json:"sampled"`
	SampleSize int     `json:"sample_size"`
}

// ClaimRequest carries the values written by an atomic claim.
type ClaimRequest struct {
	Reviewer  string
	Level     Level
	Now       time.Time
	ExpiresAt time.Time
}

// VerdictCommand is a reviewer's verdict for one sampled file.
type VerdictCommand struct {
	Severity Severity `json:"severity"`
	Notes    string   `json:"notes"`
	Reviewer string   `json:"reviewer"`
}

// Validate rejects unknown severities and non-OK verdicts without notes.
func (c VerdictCommand) Validate() error {
	if strings.TrimSpace(c.Reviewer) == "" {
		return ErrReviewerRequired
	}
	if !c.Severity.Verdict() {
		return ErrInvalidSeverity
	}
	if c.Severity != SeverityOK && strings.TrimSpace(c.Notes) == "" {
		return ErrNotesRequired
	}
	return nil
}

// FinalizeCommand confirms a folder verdict.
type FinalizeCommand struct {
	Status   Status `json:"status"`
	Notes    string `json:"notes"`
	Reviewer string `json:"reviewer"`
	Address  string `json:"-"`
}

// Validate rejects statuses other than Passed and Failed.
func (c FinalizeCommand) Validate() error {
	if strings.TrimSpace(c.Reviewer) == "" {
		return ErrReviewerRequired
	}
	if !c.Status.Final() {
		return ErrInvalidStatus
	}
	return nil
}

// Summary is the evaluated state of a folder's QC cycle.
type Summary struct {
	Folder     *Folder         `json:"folder"`
	Catalog    *catalog.Folder `json:"catalog"`
	Settings   *Settings       `json:"settings"`
	Evaluation Evaluation      `json:"evaluation"`
	Issues     []File          `json:"issues"`
}

// FinalizeResult is the finalized folder and the level change it triggered.
// Level is nil when the level advance failed after the verdict was committed.
type FinalizeResult struct {
	Folder *Folder      `json:"folder"`
	Level  *LevelChange `json:"level"`
}

// LevelChange records one inspection level evaluation.
type LevelChange struct {
	ProjectID int64    `json:"project_id"`
	Previous  Level    `json:"previous"`
	Current   Level    `json:"current"`
	Percent   float64  `json:"qc_percent"`
	History   []Status `json:"history"`
}

// Changed reports whether the level moved.
func (c *LevelChange) Changed() bool {
	return c.Previous != c.Current
}

// Overview summarizes QC progress across a project's folders.
type Overview struct {
	Settings   *Settings       `json:"settings"`
	Total      int             `json:"total"`
	Passed     int             `json:"passed"`
	Failed     int             `json:"failed"`
	InProgress int             `json:"in_progress"`
	NotStarted int             `json:"not_started"`
	Next       *catalog.Folder `json:"next"`
}

// FolderStatus is a catalog folder joined with its QC record, if any.
type FolderStatus struct {
	FolderKey string     `json:"folder_id"`
	Name      string     `json:"project_folder"`
	Date      *time.Time `json:"date"`
	Status    *Status    `json:"qc_status"`
	Level     *Level     `json:"qc_level"`
	Owner     *string    `json:"qc_by"`
	UpdatedAt *time.Time `json:"updated_at"`
}
