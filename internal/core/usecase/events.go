package usecase

import (
	"context"
	"fmt"

	"github.com/kirillkom/salesscope/internal/core/domain"
)

type analyticsWarmer interface {
	WarmDataset(ctx context.Context, organizationID, datasetID string) error
	Invalidate(ctx context.Context, datasetID string) error
}

// DatasetEventsUseCase keeps the analytics cache in step with dataset lifecycle events.
type DatasetEventsUseCase struct {
	analytics analyticsWarmer
}

func NewDatasetEventsUseCase(analytics analyticsWarmer) *DatasetEventsUseCase {
	return &DatasetEventsUseCase{analytics: analytics}
}

func (uc *DatasetEventsUseCase) HandleDatasetEvent(ctx context.Context, event domain.DatasetEvent) error {
	if event.DatasetID == "" {
		return domain.WrapError(domain.ErrInvalidInput, "handle dataset event", fmt.Errorf("event %q without dataset id", event.Type))
	}

	switch event.Type {
	case domain.EventDatasetReady:
		if err := uc.analytics.Invalidate(ctx, event.DatasetID); err != nil {
			return err
		}
		if err := uc.analytics.WarmDataset(ctx, event.OrganizationID, event.DatasetID); err != nil {
			return fmt.Errorf("warm analytics cache: %w", err)
		}
	case domain.EventDatasetFailed, domain.EventDatasetDeleted:
		return uc.analytics.Invalidate(ctx, event.DatasetID)
	default:
		return domain.WrapError(domain.ErrInvalidInput, "handle dataset event", fmt.Errorf("unknown event type %q", event.Type))
	}
	return nil
}
