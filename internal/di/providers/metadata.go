package providers

import (
	"github.com/samber/do/v2"

	"github.com/bookwarden/bookwarden-server/internal/config"
	"github.com/bookwarden/bookwarden-server/internal/logger"
	"github.com/bookwarden/bookwarden-server/internal/metadata/openlibrary"
)

// ProvideOpenLibraryClient provides the Open Library metadata client.
func ProvideOpenLibraryClient(i do.Injector) (*openlibrary.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	client := openlibrary.NewClient(cfg.Metadata.BaseURL, log.Logger)
	log.Info("Open Library client initialized", "enabled", cfg.Metadata.Enabled)

	return client, nil
}
