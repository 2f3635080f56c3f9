package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/user/scrape-coordinator/internal/entity"
)

// ScraperRepoImpl provides a concrete implementation for the ScraperRepository interface using PostgreSQL.
type ScraperRepoImpl struct {
	db *pgxpool.Pool
}

// NewScraperRepo creates a new instance of ScraperRepoImpl.
func NewScraperRepo(db *pgxpool.Pool) *ScraperRepoImpl {
	return &ScraperRepoImpl{db: db}
}

// ListEnabled returns all non-disabled scraper configs.
func (r *ScraperRepoImpl) ListEnabled(ctx context.Context) ([]*entity.ScraperConfig, error) {
	query := `SELECT name, disabled, config FROM scraper_configs WHERE NOT disabled ORDER BY name ASC;`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanScrapers(rows)
}

// FindByNames returns the non-disabled configs among the given names.
func (r *ScraperRepoImpl) FindByNames(ctx context.Context, names []string) ([]*entity.ScraperConfig, error) {
	query := `SELECT name, disabled, config FROM scraper_configs WHERE name = ANY($1) AND NOT disabled ORDER BY name ASC;`
	rows, err := r.db.Query(ctx, query, names)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanScrapers(rows)
}

func scanScrapers(rows pgx.Rows) ([]*entity.ScraperConfig, error) {
	var configs []*entity.ScraperConfig
	for rows.Next() {
		var sc entity.ScraperConfig
		if err := rows.Scan(&sc.Name, &sc.Disabled, &sc.Config); err != nil {
			return nil, err
		}
		configs = append(configs, &sc)
	}
	return configs, rows.Err()
}
