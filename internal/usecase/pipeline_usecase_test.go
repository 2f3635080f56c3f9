package usecase_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/scrape-coordinator/internal/entity"
	"github.com/user/scrape-coordinator/internal/usecase"
)

func newReviewerEnv(t *testing.T) (*fakeProductRepo, usecase.PipelineReviewer) {
	t.Helper()
	productRepo := newFakeProductRepo()
	return productRepo, usecase.NewPipelineReviewer(productRepo)
}

func TestPipelineFullForwardWalk(t *testing.T) {
	productRepo, reviewer := newReviewerEnv(t)
	productRepo.seed("SKU-1", entity.PipelineScraped)
	ctx := context.Background()

	require.NoError(t, reviewer.SubmitConsolidated(ctx, "SKU-1", json.RawMessage(`{"title":"widget"}`)))
	require.NoError(t, reviewer.Approve(ctx, "SKU-1"))
	require.NoError(t, reviewer.Publish(ctx, "SKU-1"))

	rec, err := reviewer.Get(ctx, "SKU-1")
	require.NoError(t, err)
	assert.Equal(t, entity.PipelinePublished, rec.PipelineStatus)
	assert.Equal(t, json.RawMessage(`{"title":"widget"}`), rec.Consolidated)
}

func TestPipelineStageGuards(t *testing.T) {
	productRepo, reviewer := newReviewerEnv(t)
	ctx := context.Background()

	// Approve requires consolidated; a scraped record conflicts.
	productRepo.seed("SKU-1", entity.PipelineScraped)
	assert.ErrorIs(t, reviewer.Approve(ctx, "SKU-1"), usecase.ErrInvalidTransition)

	// Publish requires approved.
	productRepo.seed("SKU-2", entity.PipelineConsolidated)
	assert.ErrorIs(t, reviewer.Publish(ctx, "SKU-2"), usecase.ErrInvalidTransition)

	// Consolidation requires scraped data to consolidate.
	productRepo.seed("SKU-3", entity.PipelineStaging)
	assert.ErrorIs(t, reviewer.SubmitConsolidated(ctx, "SKU-3", json.RawMessage(`{}`)), usecase.ErrInvalidTransition)

	// Unknown SKUs surface as not found everywhere.
	assert.ErrorIs(t, reviewer.Approve(ctx, "missing"), usecase.ErrProductNotFound)
	_, err := reviewer.Get(ctx, "missing")
	assert.ErrorIs(t, err, usecase.ErrProductNotFound)
}

func TestPipelineReject(t *testing.T) {
	productRepo, reviewer := newReviewerEnv(t)
	ctx := context.Background()

	productRepo.seed("SKU-1", entity.PipelineApproved)
	require.NoError(t, reviewer.Reject(ctx, "SKU-1"))
	rec, err := reviewer.Get(ctx, "SKU-1")
	require.NoError(t, err)
	assert.Equal(t, entity.PipelineConsolidated, rec.PipelineStatus)

	// Rejecting again drops the record all the way back to staging.
	require.NoError(t, reviewer.Reject(ctx, "SKU-1"))
	rec, err = reviewer.Get(ctx, "SKU-1")
	require.NoError(t, err)
	assert.Equal(t, entity.PipelineStaging, rec.PipelineStatus)

	// Staging and published records are not rejectable.
	assert.ErrorIs(t, reviewer.Reject(ctx, "SKU-1"), usecase.ErrInvalidTransition)
	productRepo.seed("SKU-2", entity.PipelinePublished)
	assert.ErrorIs(t, reviewer.Reject(ctx, "SKU-2"), usecase.ErrInvalidTransition)
}
