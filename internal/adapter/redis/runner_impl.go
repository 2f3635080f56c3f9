package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/user/scrape-coordinator/internal/entity"
)

const (
	runnerKeyPrefix = "runner:"
	runnerIndexKey  = "runners"

	// Registry entries expire so a runner that stops reporting drops off
	// the operator dashboard instead of showing a stale status forever.
	runnerEntryExpiry = 24 * time.Hour
)

// RunnerRepoImpl provides a concrete implementation for the RunnerRepository interface using Redis.
// Status is advisory observability state only; the claim engine never
// reads it.
type RunnerRepoImpl struct {
	client *redis.Client
}

// NewRunnerRepo creates a new instance of RunnerRepoImpl.
func NewRunnerRepo(client *redis.Client) *RunnerRepoImpl {
	return &RunnerRepoImpl{client: client}
}

func runnerKey(name string) string {
	return fmt.Sprintf("%s%s", runnerKeyPrefix, name)
}

// SetStatus upserts the runner's status hash and refreshes its heartbeat.
func (r *RunnerRepoImpl) SetStatus(ctx context.Context, name string, status entity.RunnerStatus) error {
	key := runnerKey(name)
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key, "status", string(status), "last_seen_at", time.Now().UTC().Format(time.RFC3339))
	pipe.Expire(ctx, key, runnerEntryExpiry)
	pipe.SAdd(ctx, runnerIndexKey, name)
	_, err := pipe.Exec(ctx)
	return err
}

// List returns all runners currently known to the registry. Runners whose
// hash has expired are reported as offline.
func (r *RunnerRepoImpl) List(ctx context.Context) ([]*entity.ScraperRunner, error) {
	names, err := r.client.SMembers(ctx, runnerIndexKey).Result()
	if err != nil {
		return nil, err
	}

	runners := make([]*entity.ScraperRunner, 0, len(names))
	for _, name := range names {
		fields, err := r.client.HGetAll(ctx, runnerKey(name)).Result()
		if err != nil {
			return nil, err
		}

		runner := &entity.ScraperRunner{Name: name, Status: entity.RunnerStatusOffline}
		if status, ok := fields["status"]; ok && status != "" {
			runner.Status = entity.RunnerStatus(strings.TrimSpace(status))
		}
		if raw, ok := fields["last_seen_at"]; ok {
			if ts, err := time.Parse(time.RFC3339, raw); err == nil {
				runner.LastSeenAt = ts
			}
		}
		runners = append(runners, runner)
	}
	return runners, nil
}
