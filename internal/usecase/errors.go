package usecase

import "errors"

var (
	ErrJobNotFound       = errors.New("scrape job not found")
	ErrChunkNotFound     = errors.New("job chunk not found")
	ErrProductNotFound   = errors.New("product record not found")
	ErrInvalidStatus     = errors.New("status must be completed or failed")
	ErrInvalidTransition = errors.New("invalid pipeline transition")
	ErrNoScrapers        = errors.New("no enabled scrapers matched the request")
)
