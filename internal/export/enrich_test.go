package export

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fundingbay/leadsync/internal/model"
)

func TestEnrich_AttachesNotesAndTasks(t *testing.T) {
	t.Parallel()

	crm := &fakeCRM{
		listNotes: func(ctx context.Context, leadID string) ([]model.Note, error) {
			return []model.Note{{ID: "note_1", Body: "hello " + leadID}}, nil
		},
		listTasks: func(ctx context.Context, leadID string) ([]model.Task, error) {
			return []model.Task{{ID: "task_1", Text: "do " + leadID}}, nil
		},
	}

	lead := model.Lead{ID: "lead_1"}
	NewEnricher(crm).Enrich(context.Background(), &lead)

	assert.Equal(t, []model.Note{{ID: "note_1", Body: "hello lead_1"}}, lead.Notes)
	assert.Equal(t, []model.Task{{ID: "task_1", Text: "do lead_1"}}, lead.Tasks)
}

func TestEnrich_DegradesToEmptyOnFailure(t *testing.T) {
	t.Parallel()

	crm := &fakeCRM{
		listNotes: func(ctx context.Context, leadID string) ([]model.Note, error) {
			return nil, errors.New("exhausted retries")
		},
		listTasks: func(ctx context.Context, leadID string) ([]model.Task, error) {
			return []model.Task{{ID: "task_1"}}, nil
		},
	}

	lead := model.Lead{ID: "lead_1"}
	NewEnricher(crm).Enrich(context.Background(), &lead)

	assert.Empty(t, lead.Notes)
	assert.Len(t, lead.Tasks, 1)
}

func TestEnrich_CallsRunConcurrently(t *testing.T) {
	t.Parallel()

	// Both calls rendezvous on the barrier; the test only completes if
	// they are in flight at the same time.
	var barrier sync.WaitGroup
	barrier.Add(2)

	crm := &fakeCRM{
		listNotes: func(ctx context.Context, leadID string) ([]model.Note, error) {
			barrier.Done()
			barrier.Wait()
			return nil, nil
		},
		listTasks: func(ctx context.Context, leadID string) ([]model.Task, error) {
			barrier.Done()
			barrier.Wait()
			return nil, nil
		},
	}

	lead := model.Lead{ID: "lead_1"}
	NewEnricher(crm).Enrich(context.Background(), &lead)
}
