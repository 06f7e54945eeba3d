package api

import (
	"fmt"

	"github.com/JaimeStill/osprey/internal/catalog"
	"github.com/JaimeStill/osprey/internal/config"
	"github.com/JaimeStill/osprey/internal/previews"
	"github.com/JaimeStill/osprey/internal/qc"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Catalog  catalog.System
	Previews previews.System
	QC       qc.System
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(cfg *config.Config, runtime *Runtime) (*Domain, error) {
	db := runtime.Database.Connection()

	catalogSystem := catalog.New(
		db,
		runtime.Logger,
		cfg.Catalog.Size(),
		cfg.Catalog.CacheTTLDuration(),
	)

	previewsSystem := previews.New(runtime.Storage, &cfg.Previews, runtime.Logger)
	if err := previewsSystem.Start(runtime.Lifecycle); err != nil {
		return nil, fmt.Errorf("previews start failed: %w", err)
	}

	selector := qc.NewSelector(nil)
	if cfg.QC.SampleSeed != 0 {
		selector = qc.NewSeededSelector(cfg.QC.SampleSeed)
	}

	qcSystem := qc.New(
		catalogSystem,
		qc.NewStore(db, cfg.QC.Settings(), runtime.Pagination, runtime.Logger),
		runtime.Logger,
		runtime.Pagination,
		qc.Options{
			Lease:    cfg.QC.LeaseDuration(),
			Window:   cfg.QC.HistoryWindow,
			Selector: selector,
			Stager:   previewsSystem,
		},
	)

	return &Domain{
		Catalog:  catalogSystem,
		Previews: previewsSystem,
		QC:       qcSystem,
	}, nil
}
