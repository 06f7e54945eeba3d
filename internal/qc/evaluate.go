package qc

import "fmt"

// Counts tallies a folder's sampled files by severity.
type Counts struct {
	OK       int `json:"ok"`
	Critical int `json:"critical"`
	Major    int `json:"major"`
	Minor    int `json:"minor"`
	Pending  int `json:"pending"`
	Total    int `json:"total"`
}

// Reviewed returns the number of files with a verdict.
func (c Counts) Reviewed() int {
	return c.OK + c.Critical + c.Major + c.Minor
}

// Issues returns the number of files with a non-OK verdict.
func (c Counts) Issues() int {
	return c.Critical + c.Major + c.Minor
}

// Thresholds are the per-severity issue counts at which a folder fails.
type Thresholds struct {
	Critical int `json:"critical"`
	Major    int `json:"major"`
	Minor    int `json:"minor"`
}

// Evaluation is the aggregated verdict of a folder sample.
// ProposedPass is advisory; it is meaningful only when AllReviewed is true.
type Evaluation struct {
	Counts       Counts     `json:"counts"`
	Thresholds   Thresholds `json:"thresholds"`
	AllReviewed  bool       `json:"all_reviewed"`
	ProposedPass bool       `json:"proposed_result"`
}

// Tally counts files by severity. Unknown severities are ErrInconsistent.
func Tally(files []File) (Counts, error) {
	var c Counts
	for _, f := range files {
		switch f.Severity {
		case SeverityOK:
			c.OK++
		case SeverityCritical:
			c.Critical++
		case SeverityMajor:
			c.Major++
		case SeverityMinor:
			c.Minor++
		case SeverityPending:
			c.Pending++
		default:
			return Counts{}, fmt.Errorf("%w: file %s has severity %d", ErrInconsistent, f.FileKey, f.Severity)
		}
		c.Total++
	}
	return c, nil
}

// ThresholdCount converts a threshold percent into a file count for a folder of n files.
func ThresholdCount(n int, percent float64) int {
	return int(share(n, percent) / shareScale)
}

// Evaluate aggregates counts against settings for a folder of folderFiles files.
// The folder fails when any severity has observed issues at or above its threshold count.
func Evaluate(counts Counts, folderFiles int, settings Settings) (Evaluation, error) {
	if counts.Reviewed()+counts.Pending != counts.Total {
		return Evaluation{}, fmt.Errorf(
			"%w: %d reviewed and %d pending of %d",
			ErrInconsistent, counts.Reviewed(), counts.Pending, counts.Total,
		)
	}

	e := Evaluation{
		Counts: counts,
		Thresholds: Thresholds{
			Critical: ThresholdCount(folderFiles, settings.ThresholdCritical),
			Major:    ThresholdCount(folderFiles, settings.ThresholdMajor),
			Minor:    ThresholdCount(folderFiles, settings.ThresholdMinor),
		},
		AllReviewed: counts.Total > 0 && counts.Pending == 0,
	}

	if !e.AllReviewed {
		return e, nil
	}

	e.ProposedPass = !exceeds(counts.Critical, e.Thresholds.Critical) &&
		!exceeds(counts.Major, e.Thresholds.Major) &&
		!exceeds(counts.Minor, e.Thresholds.Minor)

	return e, nil
}

func exceeds(observed, threshold int) bool {
	return observed > 0 && threshold <= observed
}
