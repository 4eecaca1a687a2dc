package export

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fundingbay/leadsync/internal/model"
	"github.com/fundingbay/leadsync/pkg/closecrm"
)

// Enricher attaches the most recent notes and tasks to a lead.
type Enricher struct {
	crm closecrm.Client
}

// NewEnricher creates an Enricher backed by the given Close client.
func NewEnricher(crm closecrm.Client) *Enricher {
	return &Enricher{crm: crm}
}

// Enrich fetches the lead's notes and tasks concurrently and attaches
// them in place. A fetch that fails after retries degrades to an empty
// slice; one lead's missing activity never fails the batch, so Enrich
// has no error to return.
func (e *Enricher) Enrich(ctx context.Context, lead *model.Lead) {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		notes, err := e.crm.ListNotes(gctx, lead.ID)
		if err != nil {
			zap.L().Warn("export: notes unavailable",
				zap.String("lead_id", lead.ID),
				zap.Error(err),
			)
			notes = nil
		}
		lead.Notes = notes
		return nil
	})

	g.Go(func() error {
		tasks, err := e.crm.ListTasks(gctx, lead.ID)
		if err != nil {
			zap.L().Warn("export: tasks unavailable",
				zap.String("lead_id", lead.ID),
				zap.Error(err),
			)
			tasks = nil
		}
		lead.Tasks = tasks
		return nil
	})

	_ = g.Wait()
}
