// Package classify manages manual symbol categorization: single and bulk
// category assignment on top of the symbol repository.
package classify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"manuscript-symbols/internal/symbol"

	"github.com/rs/zerolog"
)

// maxCategoryLen bounds category names so reports stay readable.
const maxCategoryLen = 64

// ErrInvalidCategory is returned for empty or oversized category names.
var ErrInvalidCategory = errors.New("invalid category")

// Service applies categories to symbols.
type Service struct {
	repo *symbol.Repository
	log  zerolog.Logger
}

// NewService creates a classification service.
func NewService(repo *symbol.Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  logger.With().Str("component", "classify").Logger(),
	}
}

// Categorize assigns category to one symbol and returns the updated
// symbol. Assigning the current category again succeeds unchanged.
func (s *Service) Categorize(ctx context.Context, id int64, category string) (*symbol.Symbol, error) {
	if err := validateCategory(category); err != nil {
		return nil, err
	}
	updated, err := s.repo.SetCategory(ctx, id, category)
	if err != nil {
		return nil, err
	}
	s.log.Debug().Int64("symbol_id", id).Str("category", category).Msg("symbol categorized")
	return updated, nil
}

// BulkResult records the outcome for one symbol of a bulk assignment.
type BulkResult struct {
	SymbolID int64   `json:"symbolId"`
	OK       bool    `json:"ok"`
	Error    *string `json:"error,omitempty"`
}

// CategorizeBulk assigns category to every listed symbol. The batch never
// aborts: unknown ids are reported in their result entry while the rest of
// the batch proceeds.
func (s *Service) CategorizeBulk(ctx context.Context, ids []int64, category string) ([]BulkResult, error) {
	if err := validateCategory(category); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no symbol ids given", ErrInvalidCategory)
	}

	results := make([]BulkResult, 0, len(ids))
	failed := 0
	for _, id := range ids {
		if _, err := s.repo.SetCategory(ctx, id, category); err != nil {
			msg := err.Error()
			results = append(results, BulkResult{SymbolID: id, Error: &msg})
			failed++
			continue
		}
		results = append(results, BulkResult{SymbolID: id, OK: true})
	}

	s.log.Info().
		Str("category", category).
		Int("total", len(ids)).
		Int("failed", failed).
		Msg("bulk categorization finished")
	return results, nil
}

func validateCategory(category string) error {
	trimmed := strings.TrimSpace(category)
	if trimmed == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidCategory)
	}
	if trimmed != category {
		return fmt.Errorf("%w: leading or trailing whitespace", ErrInvalidCategory)
	}
	if len(category) > maxCategoryLen {
		return fmt.Errorf("%w: name longer than %d characters", ErrInvalidCategory, maxCategoryLen)
	}
	return nil
}
