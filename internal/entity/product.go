package entity

import (
	"encoding/json"
	"time"
)

// PipelineStatus is the five-stage lifecycle a product's ingested data
// moves through before going live on the storefront.
type PipelineStatus string

const (
	PipelineStaging      PipelineStatus = "staging"
	PipelineScraped      PipelineStatus = "scraped"
	PipelineConsolidated PipelineStatus = "consolidated"
	PipelineApproved     PipelineStatus = "approved"
	PipelinePublished    PipelineStatus = "published"
)

// pipelineOrder gives each status its position in the forward chain.
var pipelineOrder = map[PipelineStatus]int{
	PipelineStaging:      0,
	PipelineScraped:      1,
	PipelineConsolidated: 2,
	PipelineApproved:     3,
	PipelinePublished:    4,
}

// Valid reports whether the status is one of the five pipeline stages.
func (s PipelineStatus) Valid() bool {
	_, ok := pipelineOrder[s]
	return ok
}

// CanAdvanceTo reports whether next is exactly one forward step from s.
// No transition skips a state.
func (s PipelineStatus) CanAdvanceTo(next PipelineStatus) bool {
	cur, ok := pipelineOrder[s]
	if !ok {
		return false
	}
	nxt, ok := pipelineOrder[next]
	if !ok {
		return false
	}
	return nxt == cur+1
}

// RejectTarget returns the status a reject action moves s back to.
// Only approved and consolidated records can be rejected; rejects move
// backward exactly one step (approved skips nothing: approved→consolidated,
// consolidated→staging).
func (s PipelineStatus) RejectTarget() (PipelineStatus, bool) {
	switch s {
	case PipelineApproved:
		return PipelineConsolidated, true
	case PipelineConsolidated:
		return PipelineStaging, true
	default:
		return "", false
	}
}

// LastScrapedKey is the reserved key inside a record's sources map holding
// the timestamp of the most recent successful scrape.
const LastScrapedKey = "_last_scraped"

// ProductIngestionRecord mirrors the `product_ingestion` PostgreSQL table
// schema. Sources maps scraper name to that scraper's last payload for the
// SKU; merges are shallow and keyed by scraper name, so one scraper's
// update never clobbers another's data.
type ProductIngestionRecord struct {
	SKU            string
	Input          json.RawMessage
	Sources        map[string]json.RawMessage
	Consolidated   json.RawMessage
	PipelineStatus PipelineStatus
	LastScrapedAt  *time.Time
	UpdatedAt      time.Time
}
