// Package catalog provides read access to the folder and file records that
// QC operates on. Folders come in two variants that differ only in key type
// and table names; a WorkItem carries its Variant so callers never branch on it.
package catalog

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Variant describes the tables and key type backing one kind of folder.
type Variant struct {
	Name      string
	Folders   string
	Files     string
	QCFolders string
	QCFiles   string
	Badges    string
	KeyType   string
}

// Files is the variant for plain-file projects keyed by bigint.
var Files = &Variant{
	Name:      "files",
	Folders:   "folders",
	Files:     "files",
	QCFolders: "qc_folders",
	QCFiles:   "qc_files",
	Badges:    "folders_badges",
	KeyType:   "bigint",
}

// Transcription is the variant for transcription projects keyed by UUID.
var Transcription = &Variant{
	Name:      "transcription",
	Folders:   "transcription_folders",
	Files:     "transcription_files",
	QCFolders: "qc_transcription_folders",
	QCFiles:   "qc_transcription_files",
	Badges:    "transcription_folders_badges",
	KeyType:   "uuid",
}

// VariantByName resolves a variant name. An empty name selects Files.
func VariantByName(name string) (*Variant, error) {
	switch name {
	case "", Files.Name:
		return Files, nil
	case Transcription.Name:
		return Transcription, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidVariant, name)
}

// ParseKey validates a folder or file key string against the variant's key type
// and returns it in canonical string form.
func (v *Variant) ParseKey(s string) (string, error) {
	switch v.KeyType {
	case "uuid":
		id, err := uuid.Parse(s)
		if err != nil {
			return "", fmt.Errorf("%w: %q", ErrInvalidKey, s)
		}
		return id.String(), nil
	default:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil || n < 1 {
			return "", fmt.Errorf("%w: %q", ErrInvalidKey, s)
		}
		return strconv.FormatInt(n, 10), nil
	}
}

// Item builds the WorkItem for a folder key of this variant.
func (v *Variant) Item(s string) (WorkItem, error) {
	switch v.KeyType {
	case "uuid":
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidKey, s)
		}
		return UUIDKeyedFolder{ID: id}, nil
	default:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidKey, s)
		}
		return IntKeyedFolder{ID: n}, nil
	}
}

// WorkItem identifies a folder of either variant.
type WorkItem interface {
	// Key returns the typed key used as a query argument.
	Key() any
	String() string
	Variant() *Variant
}

// IntKeyedFolder is a folder of a plain-file project.
type IntKeyedFolder struct {
	ID int64
}

func (f IntKeyedFolder) Key() any          { return f.ID }
func (f IntKeyedFolder) String() string    { return strconv.FormatInt(f.ID, 10) }
func (f IntKeyedFolder) Variant() *Variant { return Files }

// UUIDKeyedFolder is a folder of a transcription project.
type UUIDKeyedFolder struct {
	ID uuid.UUID
}

func (f UUIDKeyedFolder) Key() any          { return f.ID }
func (f UUIDKeyedFolder) String() string    { return f.ID.String() }
func (f UUIDKeyedFolder) Variant() *Variant { return Transcription }

// ParseWorkItem resolves a folder identifier: a UUID selects UUIDKeyedFolder,
// a positive integer selects IntKeyedFolder.
func ParseWorkItem(s string) (WorkItem, error) {
	if id, err := uuid.Parse(s); err == nil {
		return UUIDKeyedFolder{ID: id}, nil
	}
	return Files.Item(s)
}

// Folder is a catalog folder with its file count.
type Folder struct {
	Key       string     `json:"folder_id"`
	ProjectID int64      `json:"project_id"`
	Name      string     `json:"project_folder"`
	Status    int        `json:"status"`
	HasErrors bool       `json:"error_flag"`
	Date      *time.Time `json:"date"`
	FileCount int        `json:"file_count"`
}

// File is a catalog file belonging to exactly one folder.
type File struct {
	Key  string `json:"file_id"`
	Name string `json:"file_name"`
}
