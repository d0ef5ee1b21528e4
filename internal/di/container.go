// Package di provides dependency injection configuration for the Bookwarden server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/bookwarden/bookwarden-server/internal/config"
	"github.com/bookwarden/bookwarden-server/internal/di/providers"
	"github.com/bookwarden/bookwarden-server/internal/logger"
	"github.com/bookwarden/bookwarden-server/internal/search"
	"github.com/bookwarden/bookwarden-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideSlogLogger)

	// Events and storage
	do.Provide(injector, providers.ProvideNotifyManager)
	do.Provide(injector, providers.ProvideNotifyHandler)
	do.Provide(injector, providers.ProvideStore)

	// Search layer
	do.Provide(injector, providers.ProvideSearchIndex)
	do.Provide(injector, providers.ProvideSearchService)

	// Metadata layer
	do.Provide(injector, providers.ProvideOpenLibraryClient)

	// Business services
	do.Provide(injector, providers.ProvideRiskScorer)
	do.Provide(injector, providers.ProvideCirculationService)
	do.Provide(injector, providers.ProvideCatalogService)
	do.Provide(injector, providers.ProvideWaitlistService)
	do.Provide(injector, providers.ProvideSweepService)
	do.Provide(injector, providers.ProvideAuditService)

	// Workers
	do.Provide(injector, providers.ProvideSweepJob)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.NotifyManagerHandle](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*providers.SearchIndexHandle](injector)
	_ = do.MustInvoke[*search.Service](injector)

	// Business services
	_ = do.MustInvoke[*service.RiskScorer](injector)
	_ = do.MustInvoke[*service.CirculationService](injector)
	_ = do.MustInvoke[*service.CatalogService](injector)
	_ = do.MustInvoke[*service.WaitlistService](injector)
	_ = do.MustInvoke[*service.SweepService](injector)
	_ = do.MustInvoke[*service.AuditService](injector)

	// Workers
	_ = do.MustInvoke[*providers.SweepJob](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	// Rebuild the catalog index if it came up empty.
	providers.TriggerSearchReindexIfNeeded(injector)

	return nil
}
