package qc_test

import (
	"testing"

	"github.com/JaimeStill/osprey/internal/qc"
)

func statuses(s ...qc.Status) []qc.Status { return s }

func TestSwitchingPolicyResolve(t *testing.T) {
	p, f := qc.StatusPassed, qc.StatusFailed

	tests := []struct {
		name    string
		current qc.Level
		history []qc.Status
		want    qc.Level
	}{
		{"no history", qc.LevelTightened, nil, qc.LevelTightened},
		{"four passes", qc.LevelTightened, statuses(p, p, p, p), qc.LevelTightened},
		{"five passes", qc.LevelTightened, statuses(p, p, p, p, p), qc.LevelNormal},
		{"stays normal", qc.LevelNormal, statuses(p, p, p, p, p), qc.LevelNormal},
		{"newest failed", qc.LevelNormal, statuses(f, p, p, p, p), qc.LevelTightened},
		{"oldest failed", qc.LevelNormal, statuses(p, p, p, p, f), qc.LevelTightened},
		{"failure outside window", qc.LevelTightened, statuses(p, p, p, p, p, f), qc.LevelNormal},
		{"reduced tightens on failure", qc.LevelReduced, statuses(p, f, p, p, p), qc.LevelTightened},
	}

	policy := qc.SwitchingPolicy{Window: 5}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := policy.Resolve(tt.current, tt.history); got != tt.want {
				t.Errorf("Resolve = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSwitchingPolicyDefaultWindow(t *testing.T) {
	p := qc.StatusPassed
	policy := qc.SwitchingPolicy{}

	if got := policy.Resolve(qc.LevelTightened, statuses(p, p, p, p)); got != qc.LevelTightened {
		t.Errorf("Resolve with 4 passes = %s, want Tightened", got)
	}
	if got := policy.Resolve(qc.LevelTightened, statuses(p, p, p, p, p)); got != qc.LevelNormal {
		t.Errorf("Resolve with %d passes = %s, want Normal", qc.DefaultWindow, got)
	}
}

func TestSwitchingPolicyNeverReduces(t *testing.T) {
	history := make([]qc.Status, 50)
	for i := range history {
		history[i] = qc.StatusPassed
	}

	if got := (qc.SwitchingPolicy{Window: 5}).Resolve(qc.LevelNormal, history); got == qc.LevelReduced {
		t.Error("Resolve reached Reduced")
	}
}

func TestLevelChangeChanged(t *testing.T) {
	c := &qc.LevelChange{Previous: qc.LevelTightened, Current: qc.LevelNormal}
	if !c.Changed() {
		t.Error("Changed() = false for Tightened to Normal")
	}

	c.Current = qc.LevelTightened
	if c.Changed() {
		t.Error("Changed() = true for an unchanged level")
	}
}
