package export

import (
	"context"

	"github.com/fundingbay/leadsync/internal/model"
)

// fakeCRM implements closecrm.Client with overridable behavior.
type fakeCRM struct {
	listLeads func(ctx context.Context) ([]model.Lead, error)
	listNotes func(ctx context.Context, leadID string) ([]model.Note, error)
	listTasks func(ctx context.Context, leadID string) ([]model.Task, error)
}

func (f *fakeCRM) ListLeadsBySource(ctx context.Context) ([]model.Lead, error) {
	if f.listLeads == nil {
		return nil, nil
	}
	return f.listLeads(ctx)
}

func (f *fakeCRM) ListNotes(ctx context.Context, leadID string) ([]model.Note, error) {
	if f.listNotes == nil {
		return nil, nil
	}
	return f.listNotes(ctx, leadID)
}

func (f *fakeCRM) ListTasks(ctx context.Context, leadID string) ([]model.Task, error) {
	if f.listTasks == nil {
		return nil, nil
	}
	return f.listTasks(ctx, leadID)
}
