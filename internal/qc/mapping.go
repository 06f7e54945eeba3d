package qc

import (
	"fmt"
	"net/url"
	"time"

	"github.com/JaimeStill/osprey/internal/catalog"
	"github.com/JaimeStill/osprey/pkg/query"
	"github.com/JaimeStill/osprey/pkg/repository"
)

const folderColumns = "folder_id::text, qc_status, qc_level, qc_by, qc_info, qc_ip, claimed_at, lease_expires_at, updated_at"

const settingsColumns = "project_id, qc_level, qc_percent, qc_normal_percent, qc_reduced_percent, qc_tightened_percent, " +
	"qc_threshold_critical, qc_threshold_major, qc_threshold_minor, qc_filenames, updated_at"

func fileSelect(v *catalog.Variant) string {
	return fmt.Sprintf(
		"SELECT q.file_id::text, f.file_name, q.file_qc, q.qc_info, q.qc_by, q.updated_at "+
			"FROM %s q JOIN %s f ON f.file_id = q.file_id",
		v.QCFiles, v.Files,
	)
}

func statusProjection(v *catalog.Variant) *query.ProjectionMap {
	return query.
		NewProjectionMap("public", v.Folders, "f").
		Project("folder_id::text", "folder_id").
		Project("project_folder", "project_folder").
		Project("date", "date").
		Join("public", v.QCFolders, "q", "LEFT JOIN", "q.folder_id = f.folder_id").
		Project("qc_status", "qc_status").
		Project("qc_level", "qc_level").
		Project("qc_by", "qc_by").
		Project("updated_at", "updated_at")
}

// Sort and filter fields use the listing's JSON names.
var statusSort = []query.SortField{
	{Field: "date"},
	{Field: "project_folder"},
}

// Filters narrows a project folder listing. Nil fields are ignored.
// NotStarted matches folders with no QC row and takes precedence over Status.
type Filters struct {
	Status     *Status    `json:"qc_status,omitempty"`
	NotStarted bool       `json:"not_started,omitempty"`
	Level      *Level     `json:"qc_level,omitempty"`
	Owner      *string    `json:"qc_by,omitempty"`
	From       *time.Time `json:"from,omitempty"`
	To         *time.Time `json:"to,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	if f.NotStarted {
		b.WhereNull("qc_status")
	} else if f.Status != nil {
		b.WhereEquals("qc_status", int(*f.Status))
	}

	var level any
	if f.Level != nil {
		level = string(*f.Level)
	}

	var from, to any
	if f.From != nil {
		from = *f.From
	}
	if f.To != nil {
		to = *f.To
	}

	return b.
		WhereEquals("qc_level", level).
		WhereEquals("qc_by", f.Owner).
		WhereRange("date", from, to)
}

// FiltersFromQuery extracts filter values from URL query parameters.
// Dates use the YYYY-MM-DD layout.
func FiltersFromQuery(values url.Values) (Filters, error) {
	var f Filters

	switch values.Get("qc_status") {
	case "0", "passed":
		s := StatusPassed
		f.Status = &s
	case "1", "failed":
		s := StatusFailed
		f.Status = &s
	case "9", "pending":
		s := StatusPending
		f.Status = &s
	case "not_started":
		f.NotStarted = true
	}

	if l := values.Get("qc_level"); l != "" {
		level := Level(l)
		if !level.Valid() {
			return f, fmt.Errorf("%w: qc_level %q", ErrInvalidQuery, l)
		}
		f.Level = &level
	}

	if o := values.Get("qc_by"); o != "" {
		f.Owner = &o
	}

	for key, dst := range map[string]**time.Time{"from": &f.From, "to": &f.To} {
		raw := values.Get(key)
		if raw == "" {
			continue
		}
		d, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return f, fmt.Errorf("%w: %s %q", ErrInvalidQuery, key, raw)
		}
		*dst = &d
	}

	return f, nil
}

func scanFolder(s repository.Scanner) (Folder, error) {
	var f Folder
	err := s.Scan(
		&f.FolderKey,
		&f.Status,
		&f.Level,
		&f.Owner,
		&f.Notes,
		&f.Address,
		&f.ClaimedAt,
		&f.LeaseExpiresAt,
		&f.UpdatedAt,
	)
	return f, err
}

func scanFile(s repository.Scanner) (File, error) {
	var f File
	err := s.Scan(
		&f.FileKey,
		&f.FileName,
		&f.Severity,
		&f.Notes,
		&f.Reviewer,
		&f.UpdatedAt,
	)
	return f, err
}

func scanSettings(s repository.Scanner) (Settings, error) {
	var st Settings
	err := s.Scan(
		&st.ProjectID,
		&st.Level,
		&st.Percent,
		&st.NormalPercent,
		&st.ReducedPercent,
		&st.TightenedPercent,
		&st.ThresholdCritical,
		&st.ThresholdMajor,
		&st.ThresholdMinor,
		&st.Filenames,
		&st.UpdatedAt,
	)
	return st, err
}

func scanFolderStatus(s repository.Scanner) (FolderStatus, error) {
	var fs FolderStatus
	err := s.Scan(
		&fs.FolderKey,
		&fs.Name,
		&fs.Date,
		&fs.Status,
		&fs.Level,
		&fs.Owner,
		&fs.UpdatedAt,
	)
	return fs, err
}
