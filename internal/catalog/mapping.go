package catalog

import (
	"fmt"

	"github.com/JaimeStill/osprey/pkg/repository"
)

// FolderColumns is the select list matched by ScanFolder. alias qualifies the folder table.
func FolderColumns(v *Variant, alias string) string {
	return fmt.Sprintf(
		"%[1]s.folder_id::text, %[1]s.project_id, %[1]s.project_folder, %[1]s.status, %[1]s.error_flag, %[1]s.date, "+
			"(SELECT COUNT(*) FROM %[2]s fc WHERE fc.folder_id = %[1]s.folder_id)",
		alias, v.Files,
	)
}

// ScanFolder scans a row selected with FolderColumns.
func ScanFolder(s repository.Scanner) (Folder, error) {
	var f Folder
	err := s.Scan(
		&f.Key,
		&f.ProjectID,
		&f.Name,
		&f.Status,
		&f.HasErrors,
		&f.Date,
		&f.FileCount,
	)
	return f, err
}

func scanFile(s repository.Scanner) (File, error) {
	var f File
	err := s.Scan(&f.Key, &f.Name)
	return f, err
}
