package export

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fundingbay/leadsync/internal/model"
	"github.com/fundingbay/leadsync/pkg/closecrm"
)

// Fetcher lists leads for the configured source tag and enriches each
// one with its notes and tasks.
type Fetcher struct {
	crm         closecrm.Client
	enricher    *Enricher
	concurrency int
}

// NewFetcher creates a Fetcher. concurrency bounds the enrichment
// fan-out; zero means one goroutine per lead.
func NewFetcher(crm closecrm.Client, concurrency int) *Fetcher {
	return &Fetcher{
		crm:         crm,
		enricher:    NewEnricher(crm),
		concurrency: concurrency,
	}
}

// Fetch returns the enriched leads in listing order. A listing failure
// degrades to an empty set so a scheduled run still publishes a
// header-only grid instead of aborting.
func (f *Fetcher) Fetch(ctx context.Context) []model.Lead {
	leads, err := f.crm.ListLeadsBySource(ctx)
	if err != nil {
		zap.L().Error("export: list leads failed", zap.Error(err))
		return nil
	}
	if len(leads) == 0 {
		zap.L().Info("export: no leads matched source tag")
		return nil
	}

	zap.L().Info("export: enriching leads", zap.Int("count", len(leads)))

	g, gctx := errgroup.WithContext(ctx)
	if f.concurrency > 0 {
		g.SetLimit(f.concurrency)
	}
	for i := range leads {
		i := i
		g.Go(func() error {
			// Each goroutine writes only its own slot, so completion
			// order cannot reorder the batch.
			f.enricher.Enrich(gctx, &leads[i])
			return nil
		})
	}
	_ = g.Wait()

	return leads
}
