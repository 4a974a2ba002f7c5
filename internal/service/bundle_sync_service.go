package service

import (
	"context"
	"strings"

	"exoplanet-classifier-be/internal/constant"
	"exoplanet-classifier-be/internal/pkg/logger"
	"exoplanet-classifier-be/pkg/events"
	natsbus "exoplanet-classifier-be/pkg/nats"
	"exoplanet-classifier-be/pkg/vectorstore"
)

// EventSubscriber is the part of the NATS subscriber the sync service needs.
type EventSubscriber interface {
	Subscribe(ctx context.Context, eventType, durableName string, handler natsbus.EventHandler) error
}

type IBundleSyncService interface {
	Start(ctx context.Context) error
	Handle(ctx context.Context, event events.Event) error
}

// bundleSyncService drops cached bundles that another instance has replaced,
// so the next read loads the new one from shared storage.
type bundleSyncService struct {
	subscriber EventSubscriber
	stores     *vectorstore.Repository
	instanceID string
	log        logger.ILogger
}

func NewBundleSyncService(subscriber EventSubscriber, stores *vectorstore.Repository, instanceID string, log logger.ILogger) IBundleSyncService {
	return &bundleSyncService{
		subscriber: subscriber,
		stores:     stores,
		instanceID: instanceID,
		log:        log,
	}
}

func (s *bundleSyncService) Start(ctx context.Context) error {
	return s.subscriber.Subscribe(ctx, events.BundleInstalledType, durableName(s.instanceID), s.Handle)
}

// durableName strips characters NATS does not allow in consumer names.
func durableName(instanceID string) string {
	return "bundle-sync-" + strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_").Replace(instanceID)
}

func (s *bundleSyncService) Handle(ctx context.Context, event events.Event) error {
	installed, err := events.ParseBundleInstalled(event)
	if err != nil {
		s.log.Warn(constant.LogModuleVectorStore, "Ignoring malformed bundle event", map[string]interface{}{"error": err.Error()})
		return nil
	}
	if installed.InstanceID == s.instanceID {
		return nil
	}

	s.stores.Invalidate(vectorstore.Key(installed.Key))
	s.log.Info(constant.LogModuleVectorStore, "Bundle replaced elsewhere, cache dropped", map[string]interface{}{
		"key":    installed.Key,
		"rows":   installed.Rows,
		"origin": installed.InstanceID,
	})
	return nil
}
