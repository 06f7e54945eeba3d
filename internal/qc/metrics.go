package qc

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	samplesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "osprey_qc_samples_total",
			Help: "Folder samples drawn, by variant.",
		},
		[]string{"variant"},
	)

	sampledFilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "osprey_qc_sampled_files_total",
			Help: "Files selected for inspection, by variant.",
		},
		[]string{"variant"},
	)

	claimsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "osprey_qc_claims_total",
			Help: "Folder claim attempts, by result.",
		},
		[]string{"result"},
	)

	verdictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "osprey_qc_verdicts_total",
			Help: "File verdicts recorded, by severity.",
		},
		[]string{"severity"},
	)

	foldersFinalizedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "osprey_qc_folders_finalized_total",
			Help: "Folders finalized, by status.",
		},
		[]string{"status"},
	)

	levelChangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "osprey_qc_level_changes_total",
			Help: "Inspection level transitions, by new level.",
		},
		[]string{"level"},
	)
)
