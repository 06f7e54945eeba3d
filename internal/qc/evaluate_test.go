package qc_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/JaimeStill/osprey/internal/qc"
)

func sampleWith(ok, critical, major, minor, pending int) []qc.File {
	var files []qc.File
	add := func(n int, s qc.Severity) {
		for range n {
			files = append(files, qc.File{
				FileKey:  fmt.Sprint(len(files) + 1),
				Severity: s,
			})
		}
	}
	add(ok, qc.SeverityOK)
	add(critical, qc.SeverityCritical)
	add(major, qc.SeverityMajor)
	add(minor, qc.SeverityMinor)
	add(pending, qc.SeverityPending)
	return files
}

func TestTally(t *testing.T) {
	counts, err := qc.Tally(sampleWith(5, 1, 2, 3, 4))
	if err != nil {
		t.Fatalf("tally failed: %v", err)
	}

	want := qc.Counts{OK: 5, Critical: 1, Major: 2, Minor: 3, Pending: 4, Total: 15}
	if counts != want {
		t.Errorf("counts = %+v, want %+v", counts, want)
	}
	if counts.Reviewed() != 11 {
		t.Errorf("Reviewed() = %d, want 11", counts.Reviewed())
	}
	if counts.Issues() != 6 {
		t.Errorf("Issues() = %d, want 6", counts.Issues())
	}
}

func TestTallyUnknownSeverity(t *testing.T) {
	files := []qc.File{{FileKey: "1", Severity: qc.Severity(5)}}

	if _, err := qc.Tally(files); !errors.Is(err, qc.ErrInconsistent) {
		t.Errorf("err = %v, want ErrInconsistent", err)
	}
}

func TestThresholdCount(t *testing.T) {
	tests := []struct {
		n       int
		percent float64
		want    int
	}{
		{100, 0, 0},
		{100, 1.5, 1},
		{100, 4, 4},
		{200, 1.5, 3},
		{50, 4, 2},
		{10, 4, 0},
		{375, 18.4, 69},
		{375, 8.8, 33},
		{333, 1.5, 4},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d at %v", tt.n, tt.percent), func(t *testing.T) {
			if got := qc.ThresholdCount(tt.n, tt.percent); got != tt.want {
				t.Errorf("ThresholdCount(%d, %v) = %d, want %d", tt.n, tt.percent, got, tt.want)
			}
		})
	}
}

func TestThresholdCountExactFloor(t *testing.T) {
	for n := 1; n <= 400; n++ {
		for cents := 0; cents <= 10000; cents += 3 {
			p := float64(cents) / 100
			if got, want := qc.ThresholdCount(n, p), n*cents/10000; got != want {
				t.Fatalf("ThresholdCount(%d, %v) = %d, want %d", n, p, got, want)
			}
		}
	}
}

func TestEvaluate(t *testing.T) {
	settings := qc.DefaultSettings()

	tests := []struct {
		name     string
		files    []qc.File
		wantPass bool
	}{
		{"no issues", sampleWith(40, 0, 0, 0, 0), true},
		{"one critical", sampleWith(39, 1, 0, 0, 0), false},
		{"one major", sampleWith(39, 0, 1, 0, 0), false},
		{"three minor", sampleWith(37, 0, 0, 3, 0), true},
		{"four minor", sampleWith(36, 0, 0, 4, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counts, err := qc.Tally(tt.files)
			if err != nil {
				t.Fatalf("tally failed: %v", err)
			}

			eval, err := qc.Evaluate(counts, 100, settings)
			if err != nil {
				t.Fatalf("evaluate failed: %v", err)
			}

			if !eval.AllReviewed {
				t.Fatal("AllReviewed = false, want true")
			}
			if eval.ProposedPass != tt.wantPass {
				t.Errorf("ProposedPass = %v, want %v", eval.ProposedPass, tt.wantPass)
			}

			want := qc.Thresholds{Critical: 0, Major: 1, Minor: 4}
			if eval.Thresholds != want {
				t.Errorf("thresholds = %+v, want %+v", eval.Thresholds, want)
			}
		})
	}
}

func TestEvaluatePending(t *testing.T) {
	counts, err := qc.Tally(sampleWith(30, 0, 0, 0, 10))
	if err != nil {
		t.Fatalf("tally failed: %v", err)
	}

	eval, err := qc.Evaluate(counts, 100, qc.DefaultSettings())
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}

	if eval.AllReviewed {
		t.Error("AllReviewed = true with pending files")
	}
	if eval.ProposedPass {
		t.Error("ProposedPass = true before every file is reviewed")
	}
}

func TestEvaluateEmptySample(t *testing.T) {
	eval, err := qc.Evaluate(qc.Counts{}, 100, qc.DefaultSettings())
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if eval.AllReviewed {
		t.Error("AllReviewed = true for an empty sample")
	}
}

func TestEvaluateInconsistent(t *testing.T) {
	counts := qc.Counts{OK: 3, Pending: 1, Total: 10}

	if _, err := qc.Evaluate(counts, 100, qc.DefaultSettings()); !errors.Is(err, qc.ErrInconsistent) {
		t.Errorf("err = %v, want ErrInconsistent", err)
	}
}

func TestEvaluateZeroThresholdFailsOnAnyIssue(t *testing.T) {
	settings := qc.DefaultSettings()
	settings.ThresholdMinor = 0

	counts, _ := qc.Tally(sampleWith(9, 0, 0, 1, 0))
	eval, err := qc.Evaluate(counts, 10, settings)
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if eval.ProposedPass {
		t.Error("ProposedPass = true with one minor issue at a zero threshold")
	}
}

func TestEvaluateZeroThresholdCountNoIssues(t *testing.T) {
	counts, _ := qc.Tally(sampleWith(10, 0, 0, 0, 0))
	eval, err := qc.Evaluate(counts, 10, qc.DefaultSettings())
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if !eval.ProposedPass {
		t.Error("ProposedPass = false with no issues")
	}
}
