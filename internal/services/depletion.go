package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/stylepick/catalog-core/internal/cache"
	appErrors "github.com/stylepick/catalog-core/internal/errors"
	"github.com/stylepick/catalog-core/internal/metrics"
	repository "github.com/stylepick/catalog-core/internal/repositories"
)

// DepletionService consumes "option X depleted" events from the inventory
// ledger. It never reads or writes quantities; it only cascades SOLD_OUT
// status upward.
type DepletionService interface {
	OnOptionDepleted(ctx context.Context, optionID uuid.UUID) (*repository.DepletionOutcome, error)
}

type depletionService struct {
	catalogRepo repository.CatalogRepository
	cache       cache.Cache
	logger      *slog.Logger
}

func NewDepletionService(catalogRepo repository.CatalogRepository, cacheStore cache.Cache, logger *slog.Logger) DepletionService {
	return &depletionService{
		catalogRepo: catalogRepo,
		cache:       cacheStore,
		logger:      logger,
	}
}

// OnOptionDepleted marks the option SOLD_OUT and promotes the product only
// when no ACTIVE option remains anywhere under it. Duplicate signals are
// no-ops, so the ledger may deliver at-least-once.
func (s *depletionService) OnOptionDepleted(ctx context.Context, optionID uuid.UUID) (*repository.DepletionOutcome, error) {
	outcome, err := s.catalogRepo.DepleteOption(ctx, optionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NotFoundError("Option not found").WithError(err)
		}

		return nil, appErrors.DatabaseError("Failed to process depletion signal").WithError(err)
	}

	switch {
	case outcome.AlreadySoldOut:
		metrics.DepletionEvents.WithLabelValues(metrics.DepletionOutcomeNoop).Inc()
	case outcome.ProductMarkedSoldOut:
		metrics.DepletionEvents.WithLabelValues(metrics.DepletionOutcomeProduct).Inc()
	default:
		metrics.DepletionEvents.WithLabelValues(metrics.DepletionOutcomeOption).Inc()
	}

	if !outcome.AlreadySoldOut {
		cacheKey := cache.Key(cache.ProductKeyPrefix, outcome.ProductID.String())
		if err := s.cache.Delete(ctx, cacheKey); err != nil {
			s.logger.Warn("product cache invalidation failed",
				slog.String("product_id", outcome.ProductID.String()),
				slog.String("error", err.Error()))
		}
	}

	s.logger.Info("option depletion processed",
		slog.String("option_id", optionID.String()),
		slog.String("product_id", outcome.ProductID.String()),
		slog.Bool("duplicate", outcome.AlreadySoldOut),
		slog.Int("variant_active_options", outcome.VariantActiveCount),
		slog.Int("product_active_options", outcome.ProductActiveCount),
		slog.Bool("product_sold_out", outcome.ProductMarkedSoldOut))

	return outcome, nil
}
