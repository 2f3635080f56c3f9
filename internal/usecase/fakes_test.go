package usecase_test

import (
	"context"
	"encoding/json"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/user/scrape-coordinator/internal/entity"
	"github.com/user/scrape-coordinator/internal/repository"
	"github.com/user/scrape-coordinator/pkg/metrics"
)

func TestMain(m *testing.M) {
	metrics.Init()
	os.Exit(m.Run())
}

// --- chunk repo fake ---

type fakeChunkRepo struct {
	mu     sync.Mutex
	chunks map[string]*entity.ScrapeJobChunk
}

func newFakeChunkRepo() *fakeChunkRepo {
	return &fakeChunkRepo{chunks: make(map[string]*entity.ScrapeJobChunk)}
}

func (f *fakeChunkRepo) insert(chunks []*entity.ScrapeJobChunk) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range chunks {
		f.chunks[c.ID] = c
	}
}

func (f *fakeChunkRepo) ClaimNext(ctx context.Context, jobID, runnerName string, lease time.Duration) (*entity.ScrapeJobChunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var candidate *entity.ScrapeJobChunk
	for _, c := range f.chunks {
		if c.JobID != jobID || c.Status != entity.ChunkStatusPending {
			continue
		}
		if candidate == nil || c.ChunkIndex < candidate.ChunkIndex {
			candidate = c
		}
	}
	if candidate == nil {
		return nil, nil
	}

	expiry := time.Now().Add(lease)
	candidate.Status = entity.ChunkStatusClaimed
	candidate.RunnerName = runnerName
	candidate.LeaseExpiresAt = &expiry
	candidate.UpdatedAt = time.Now()
	return candidate, nil
}

func (f *fakeChunkRepo) MarkRunning(ctx context.Context, chunkID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.chunks[chunkID]; ok && c.Status == entity.ChunkStatusClaimed {
		now := time.Now()
		c.Status = entity.ChunkStatusRunning
		c.StartedAt = &now
	}
	return nil
}

func (f *fakeChunkRepo) FindByID(ctx context.Context, chunkID string) (*entity.ScrapeJobChunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.chunks[chunkID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *c
	return &clone, nil
}

func (f *fakeChunkRepo) Complete(ctx context.Context, chunkID string, status entity.ChunkStatus, counts entity.ChunkSummary, result []byte, errorMessage string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.chunks[chunkID]
	if !ok || c.Status.Terminal() {
		return nil
	}
	now := time.Now()
	c.Status = status
	c.SKUsProcessed = counts.TotalSKUs
	c.SKUsSuccessful = counts.SuccessfulSKUs
	c.SKUsFailed = counts.FailedSKUs
	c.Result = result
	c.ErrorMessage = errorMessage
	c.CompletedAt = &now
	c.UpdatedAt = now
	return nil
}

func (f *fakeChunkRepo) ListByJob(ctx context.Context, jobID string) ([]*entity.ScrapeJobChunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var chunks []*entity.ScrapeJobChunk
	for _, c := range f.chunks {
		if c.JobID == jobID {
			clone := *c
			chunks = append(chunks, &clone)
		}
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].ChunkIndex < chunks[j].ChunkIndex })
	return chunks, nil
}

func (f *fakeChunkRepo) CountInFlight(ctx context.Context, jobID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, c := range f.chunks {
		if c.JobID == jobID && c.Status.InFlight() {
			count++
		}
	}
	return count, nil
}

func (f *fakeChunkRepo) ReclaimExpired(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	count := 0
	for _, c := range f.chunks {
		if c.Status.InFlight() && c.LeaseExpiresAt != nil && c.LeaseExpiresAt.Before(now) {
			c.Status = entity.ChunkStatusPending
			c.RunnerName = ""
			c.LeaseExpiresAt = nil
			c.StartedAt = nil
			count++
		}
	}
	return count, nil
}

// --- job repo fake ---

type fakeJobRepo struct {
	mu        sync.Mutex
	jobs      map[string]*entity.ScrapeJob
	chunkRepo *fakeChunkRepo
}

func newFakeJobRepo(chunkRepo *fakeChunkRepo) *fakeJobRepo {
	return &fakeJobRepo{jobs: make(map[string]*entity.ScrapeJob), chunkRepo: chunkRepo}
}

func (f *fakeJobRepo) Create(ctx context.Context, job *entity.ScrapeJob, chunks []*entity.ScrapeJobChunk) error {
	f.mu.Lock()
	job.CreatedAt = time.Now()
	f.jobs[job.ID] = job
	f.mu.Unlock()
	f.chunkRepo.insert(chunks)
	return nil
}

func (f *fakeJobRepo) FindByID(ctx context.Context, jobID string) (*entity.ScrapeJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[jobID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *job
	return &clone, nil
}

func (f *fakeJobRepo) ClaimNextPending(ctx context.Context, runnerName string) (*entity.ScrapeJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var candidate *entity.ScrapeJob
	for _, job := range f.jobs {
		if job.Status != entity.JobStatusPending {
			continue
		}
		if candidate == nil || job.CreatedAt.Before(candidate.CreatedAt) {
			candidate = job
		}
	}
	if candidate == nil {
		return nil, nil
	}
	now := time.Now()
	candidate.Status = entity.JobStatusClaimed
	candidate.RunnerName = runnerName
	candidate.StartedAt = &now
	clone := *candidate
	return &clone, nil
}

func (f *fakeJobRepo) UpdateStatus(ctx context.Context, jobID string, status entity.JobStatus, errorMessage string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[jobID]
	if !ok {
		return repository.ErrNotFound
	}
	job.Status = status
	job.ErrorMessage = errorMessage
	if status.Terminal() && job.CompletedAt == nil {
		now := time.Now()
		job.CompletedAt = &now
	}
	return nil
}

func (f *fakeJobRepo) Finalize(ctx context.Context, jobID string, status entity.JobStatus, summary entity.ChunkSummary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[jobID]
	if !ok {
		return repository.ErrNotFound
	}
	if job.Status.Terminal() {
		return nil
	}
	now := time.Now()
	job.Status = status
	job.TotalSKUs = summary.TotalSKUs
	job.SuccessfulSKUs = summary.SuccessfulSKUs
	job.FailedSKUs = summary.FailedSKUs
	job.CompletedAt = &now
	return nil
}

func (f *fakeJobRepo) List(ctx context.Context, limit int) ([]*entity.ScrapeJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var jobs []*entity.ScrapeJob
	for _, job := range f.jobs {
		clone := *job
		jobs = append(jobs, &clone)
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].CreatedAt.After(jobs[j].CreatedAt) })
	if len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

// --- product repo fake ---

type fakeProductRepo struct {
	mu      sync.Mutex
	records map[string]*entity.ProductIngestionRecord
}

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{records: make(map[string]*entity.ProductIngestionRecord)}
}

func (f *fakeProductRepo) seed(sku string, status entity.PipelineStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[sku] = &entity.ProductIngestionRecord{
		SKU:            sku,
		Sources:        make(map[string]json.RawMessage),
		PipelineStatus: status,
	}
}

func (f *fakeProductRepo) FindBySKU(ctx context.Context, sku string) (*entity.ProductIngestionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[sku]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *rec
	return &clone, nil
}

func (f *fakeProductRepo) ListStagingSKUs(ctx context.Context, limit int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var skus []string
	for sku, rec := range f.records {
		if rec.PipelineStatus == entity.PipelineStaging {
			skus = append(skus, sku)
		}
	}
	sort.Strings(skus)
	if len(skus) > limit {
		skus = skus[:limit]
	}
	return skus, nil
}

func (f *fakeProductRepo) MergeScrapedSource(ctx context.Context, sku, scraperName string, payload json.RawMessage, scrapedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[sku]
	if !ok {
		rec = &entity.ProductIngestionRecord{
			SKU:            sku,
			Sources:        make(map[string]json.RawMessage),
			PipelineStatus: entity.PipelineStaging,
		}
		f.records[sku] = rec
	}
	rec.Sources[scraperName] = payload
	rec.LastScrapedAt = &scrapedAt
	if rec.PipelineStatus == entity.PipelineStaging {
		rec.PipelineStatus = entity.PipelineScraped
	}
	return nil
}

func (f *fakeProductRepo) SetConsolidated(ctx context.Context, sku string, payload json.RawMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[sku]
	if !ok {
		return repository.ErrNotFound
	}
	if rec.PipelineStatus != entity.PipelineScraped {
		return repository.ErrConflict
	}
	rec.Consolidated = payload
	rec.PipelineStatus = entity.PipelineConsolidated
	return nil
}

func (f *fakeProductRepo) SetPipelineStatus(ctx context.Context, sku string, expectedFrom, to entity.PipelineStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[sku]
	if !ok {
		return repository.ErrNotFound
	}
	if rec.PipelineStatus != expectedFrom {
		return repository.ErrConflict
	}
	rec.PipelineStatus = to
	return nil
}

// --- runner / audit / scraper / credential fakes ---

type fakeRunnerRepo struct {
	mu       sync.Mutex
	statuses map[string]entity.RunnerStatus
}

func newFakeRunnerRepo() *fakeRunnerRepo {
	return &fakeRunnerRepo{statuses: make(map[string]entity.RunnerStatus)}
}

func (f *fakeRunnerRepo) SetStatus(ctx context.Context, name string, status entity.RunnerStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[name] = status
	return nil
}

func (f *fakeRunnerRepo) List(ctx context.Context) ([]*entity.ScraperRunner, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var runners []*entity.ScraperRunner
	for name, status := range f.statuses {
		runners = append(runners, &entity.ScraperRunner{Name: name, Status: status})
	}
	return runners, nil
}

type auditEntry struct {
	jobID      string
	runnerName string
	payload    json.RawMessage
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []auditEntry
}

func (f *fakeAuditRepo) RecordResult(ctx context.Context, jobID, runnerName string, payload json.RawMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, auditEntry{jobID: jobID, runnerName: runnerName, payload: payload})
	return nil
}

type fakeScraperRepo struct {
	configs []*entity.ScraperConfig
}

func (f *fakeScraperRepo) ListEnabled(ctx context.Context) ([]*entity.ScraperConfig, error) {
	var enabled []*entity.ScraperConfig
	for _, sc := range f.configs {
		if !sc.Disabled {
			enabled = append(enabled, sc)
		}
	}
	return enabled, nil
}

func (f *fakeScraperRepo) FindByNames(ctx context.Context, names []string) ([]*entity.ScraperConfig, error) {
	byName := make(map[string]*entity.ScraperConfig, len(f.configs))
	for _, sc := range f.configs {
		if !sc.Disabled {
			byName[sc.Name] = sc
		}
	}
	var matched []*entity.ScraperConfig
	for _, name := range names {
		if sc, ok := byName[name]; ok {
			matched = append(matched, sc)
		}
	}
	return matched, nil
}

type fakeCredentialRepo struct {
	mu         sync.Mutex
	keys       map[string]*entity.RunnerAPIKey
	identities map[string]string
}

func newFakeCredentialRepo() *fakeCredentialRepo {
	return &fakeCredentialRepo{
		keys:       make(map[string]*entity.RunnerAPIKey),
		identities: make(map[string]string),
	}
}

func (f *fakeCredentialRepo) ValidateAPIKey(ctx context.Context, keyHash string) (*entity.RunnerAPIKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key, ok := f.keys[keyHash]
	if !ok || !key.Active {
		return nil, nil
	}
	now := time.Now()
	key.LastUsedAt = &now
	clone := *key
	return &clone, nil
}

func (f *fakeCredentialRepo) CreateAPIKey(ctx context.Context, key *entity.RunnerAPIKey) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys[key.KeyHash] = key
	return nil
}

func (f *fakeCredentialRepo) FindRunnerByIdentity(ctx context.Context, identityID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.identities[identityID], nil
}
