package usecase

import (
	"github.com/google/uuid"
	"github.com/user/scrape-coordinator/internal/entity"
)

// PartitionSKUs splits a SKU list into bounded slices of at most chunkSize
// elements, preserving order. A non-positive chunkSize yields one chunk.
func PartitionSKUs(skus []string, chunkSize int) [][]string {
	if len(skus) == 0 {
		return nil
	}
	if chunkSize <= 0 {
		return [][]string{skus}
	}

	chunks := make([][]string, 0, (len(skus)+chunkSize-1)/chunkSize)
	for start := 0; start < len(skus); start += chunkSize {
		end := start + chunkSize
		if end > len(skus) {
			end = len(skus)
		}
		chunks = append(chunks, skus[start:end])
	}
	return chunks
}

// BuildChunks materializes pending chunk entities for a job, one per SKU
// slice, with contiguous chunk_index 0..N-1. Every chunk carries the full
// scraper list; only the SKU set is partitioned.
func BuildChunks(jobID string, skuChunks [][]string, scraperNames []string) []*entity.ScrapeJobChunk {
	chunks := make([]*entity.ScrapeJobChunk, 0, len(skuChunks))
	for i, skus := range skuChunks {
		chunks = append(chunks, &entity.ScrapeJobChunk{
			ID:           uuid.NewString(),
			JobID:        jobID,
			ChunkIndex:   i,
			SKUs:         skus,
			ScraperNames: scraperNames,
			Status:       entity.ChunkStatusPending,
		})
	}
	return chunks
}
