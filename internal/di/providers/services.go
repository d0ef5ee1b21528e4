package providers

import (
	"github.com/samber/do/v2"

	"github.com/bookwarden/bookwarden-server/internal/config"
	"github.com/bookwarden/bookwarden-server/internal/logger"
	"github.com/bookwarden/bookwarden-server/internal/metadata/openlibrary"
	"github.com/bookwarden/bookwarden-server/internal/service"
)

// ProvideRiskScorer provides the borrower risk scorer.
func ProvideRiskScorer(i do.Injector) (*service.RiskScorer, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return service.NewRiskScorer(cfg.Risk), nil
}

// ProvideCirculationService provides the lending engine.
func ProvideCirculationService(i do.Injector) (*service.CirculationService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	risk := do.MustInvoke[*service.RiskScorer](i)
	managerHandle := do.MustInvoke[*NotifyManagerHandle](i)
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewCirculationService(storeHandle.Store, risk, managerHandle.Manager, cfg.Circulation, log.Logger), nil
}

// ProvideCatalogService provides the catalog service.
func ProvideCatalogService(i do.Injector) (*service.CatalogService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	var metadata service.MetadataLookup
	if cfg.Metadata.Enabled {
		metadata = do.MustInvoke[*openlibrary.Client](i)
	}

	return service.NewCatalogService(storeHandle.Store, metadata, cfg.Metadata, log.Logger), nil
}

// ProvideWaitlistService provides the waitlist service.
func ProvideWaitlistService(i do.Injector) (*service.WaitlistService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewWaitlistService(storeHandle.Store, log.Logger), nil
}

// ProvideSweepService provides the overdue sweeper.
func ProvideSweepService(i do.Injector) (*service.SweepService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	risk := do.MustInvoke[*service.RiskScorer](i)
	managerHandle := do.MustInvoke[*NotifyManagerHandle](i)
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSweepService(storeHandle.Store, risk, managerHandle.Manager, cfg.Sweep, log.Logger), nil
}

// ProvideAuditService provides the audit query service.
func ProvideAuditService(i do.Injector) (*service.AuditService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	return service.NewAuditService(storeHandle.Store), nil
}
