package providers

import (
	"context"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/bookwarden/bookwarden-server/internal/api"
	"github.com/bookwarden/bookwarden-server/internal/config"
	"github.com/bookwarden/bookwarden-server/internal/logger"
	"github.com/bookwarden/bookwarden-server/internal/notify"
	"github.com/bookwarden/bookwarden-server/internal/search"
	"github.com/bookwarden/bookwarden-server/internal/service"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the HTTP server.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	services := &api.Services{
		Circulation: do.MustInvoke[*service.CirculationService](i),
		Catalog:     do.MustInvoke[*service.CatalogService](i),
		Waitlist:    do.MustInvoke[*service.WaitlistService](i),
		Sweep:       do.MustInvoke[*service.SweepService](i),
		Audit:       do.MustInvoke[*service.AuditService](i),
		Search:      do.MustInvoke[*search.Service](i),
	}

	sseHandler := do.MustInvoke[*notify.Handler](i)

	apiServer := api.NewServer(storeHandle.Store, services, sseHandler, log.Logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      apiServer,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
		}
	}()

	return &HTTPServerHandle{Server: srv}, nil
}
