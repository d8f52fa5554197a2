// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"log/slog"
	"strings"
	"time"

	"github.com/cadenzahq/cadenza/pkg/actions/conversation"
	"github.com/cadenzahq/cadenza/pkg/actions/httprequest"
	"github.com/cadenzahq/cadenza/pkg/actions/integration"
	logaction "github.com/cadenzahq/cadenza/pkg/actions/log"
	"github.com/cadenzahq/cadenza/pkg/actions/transform"
	"github.com/cadenzahq/cadenza/pkg/blob"
	blobfile "github.com/cadenzahq/cadenza/pkg/blob/file"
	blobredis "github.com/cadenzahq/cadenza/pkg/blob/redis"
	"github.com/cadenzahq/cadenza/pkg/persistence"
	"github.com/cadenzahq/cadenza/pkg/registry"
	"github.com/cadenzahq/cadenza/pkg/sandbox"
	"github.com/cadenzahq/cadenza/pkg/triggers/schedule"
)

const defaultBlobTTL = 24 * time.Hour

// NewBlobStore builds a blob store from a URL: redis:// selects the Redis
// store, anything else is treated as a filesystem root.
func NewBlobStore(url string) (blob.Store, error) {
	if strings.HasPrefix(url, "redis://") {
		return blobredis.NewStoreFromURL(url, defaultBlobTTL)
	}

	return blobfile.NewStore(strings.TrimPrefix(url, "file://"))
}

func registerNativeActions(reg *registry.Registry, p persistence.Persistence, blobs blob.Store, logger *slog.Logger) {
	reg.RegisterAction(httprequest.NewActionFactory())
	reg.RegisterAction(transform.NewActionFactory())
	reg.RegisterAction(logaction.NewActionFactory())
	reg.RegisterAction(conversation.NewActionFactory(p.ApprovalRepository()))
	reg.RegisterAction(integration.NewActionFactory(sandbox.New(logger), blobs))
}

func registerNativeTriggers(reg *registry.Registry) {
	reg.RegisterTrigger(schedule.NewTriggerFactory())
}

func NewRegistry(logger *slog.Logger, p persistence.Persistence, blobs blob.Store) *registry.Registry {
	reg := registry.NewRegistry(logger)

	registerNativeActions(reg, p, blobs, logger)
	registerNativeTriggers(reg)

	return reg
}
