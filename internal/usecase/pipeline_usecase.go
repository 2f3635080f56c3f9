package usecase

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/user/scrape-coordinator/internal/entity"
	"github.com/user/scrape-coordinator/internal/repository"
)

// PipelineReviewer defines the interface for the human/LLM-driven forward
// and reject transitions of the product pipeline. Scrape-driven
// transitions (staging -> scraped) happen in the callback aggregator.
type PipelineReviewer interface {
	// SubmitConsolidated writes the consolidation service's merged record
	// and advances the SKU scraped -> consolidated.
	SubmitConsolidated(ctx context.Context, sku string, payload json.RawMessage) error
	// Approve advances consolidated -> approved.
	Approve(ctx context.Context, sku string) error
	// Publish advances approved -> published.
	Publish(ctx context.Context, sku string) error
	// Reject moves a record backward exactly one step:
	// approved -> consolidated, consolidated -> staging.
	Reject(ctx context.Context, sku string) error
	// Get returns a SKU's ingestion record.
	Get(ctx context.Context, sku string) (*entity.ProductIngestionRecord, error)
}

type pipelineUseCase struct {
	productRepo repository.ProductRepository
}

// NewPipelineReviewer creates a new PipelineReviewer use case.
func NewPipelineReviewer(productRepo repository.ProductRepository) PipelineReviewer {
	return &pipelineUseCase{productRepo: productRepo}
}

func (uc *pipelineUseCase) SubmitConsolidated(ctx context.Context, sku string, payload json.RawMessage) error {
	return uc.mapErr(uc.productRepo.SetConsolidated(ctx, sku, payload))
}

func (uc *pipelineUseCase) Approve(ctx context.Context, sku string) error {
	return uc.advance(ctx, sku, entity.PipelineConsolidated, entity.PipelineApproved)
}

func (uc *pipelineUseCase) Publish(ctx context.Context, sku string) error {
	return uc.advance(ctx, sku, entity.PipelineApproved, entity.PipelinePublished)
}

func (uc *pipelineUseCase) Reject(ctx context.Context, sku string) error {
	record, err := uc.Get(ctx, sku)
	if err != nil {
		return err
	}

	target, ok := record.PipelineStatus.RejectTarget()
	if !ok {
		return ErrInvalidTransition
	}
	return uc.mapErr(uc.productRepo.SetPipelineStatus(ctx, sku, record.PipelineStatus, target))
}

func (uc *pipelineUseCase) Get(ctx context.Context, sku string) (*entity.ProductIngestionRecord, error) {
	record, err := uc.productRepo.FindBySKU(ctx, sku)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return record, nil
}

func (uc *pipelineUseCase) advance(ctx context.Context, sku string, from, to entity.PipelineStatus) error {
	if !from.CanAdvanceTo(to) {
		return ErrInvalidTransition
	}
	return uc.mapErr(uc.productRepo.SetPipelineStatus(ctx, sku, from, to))
}

func (uc *pipelineUseCase) mapErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrProductNotFound
	case errors.Is(err, repository.ErrConflict):
		return ErrInvalidTransition
	default:
		return err
	}
}
