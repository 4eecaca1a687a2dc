package export

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/fundingbay/leadsync/internal/config"
	"github.com/fundingbay/leadsync/pkg/gsheet"
)

// Pipeline wires fetch → format → publish for one export run.
type Pipeline struct {
	fetcher   *Fetcher
	publisher gsheet.Publisher
	sheets    config.SheetsConfig
}

// Options tweaks a single run.
type Options struct {
	// SnapshotPath additionally writes the grids to a local XLSX file.
	SnapshotPath string
	// NoPublish skips the spreadsheet write; only the snapshot is
	// produced. The publisher may be nil in this mode.
	NoPublish bool
}

// NewPipeline creates a Pipeline. publisher may be nil when every run
// uses Options.NoPublish.
func NewPipeline(fetcher *Fetcher, publisher gsheet.Publisher, sheets config.SheetsConfig) *Pipeline {
	return &Pipeline{fetcher: fetcher, publisher: publisher, sheets: sheets}
}

// Run executes one full export. Upstream failures degrade to an empty
// lead set and still publish a header-only grid; only spreadsheet
// failures fail the run.
func (p *Pipeline) Run(ctx context.Context, opts Options) error {
	log := zap.L().With(zap.String("run_id", uuid.NewString()))
	log.Info("export run started")

	leads := p.fetcher.Fetch(ctx)

	leadGrid := BuildLeadGrid(leads)
	oppGrid := BuildOpportunityGrid(leads)

	if opts.SnapshotPath != "" {
		if err := WriteXLSX(opts.SnapshotPath, leadGrid, oppGrid); err != nil {
			return err
		}
		log.Info("wrote local snapshot", zap.String("path", opts.SnapshotPath))
	}
	if opts.NoPublish {
		return nil
	}

	spreadsheetID := p.sheets.SpreadsheetID
	if spreadsheetID == "" {
		title := fmt.Sprintf("Close Leads - %s", time.Now().Format("2006-01-02"))
		id, err := p.publisher.Create(ctx, title)
		if err != nil {
			return eris.Wrap(err, "export: create spreadsheet")
		}
		spreadsheetID = id
		log.Info("created spreadsheet",
			zap.String("spreadsheet_id", id),
			zap.String("url", gsheet.URL(id)),
		)
	}

	if p.sheets.ShareEmail != "" {
		if err := p.publisher.Share(ctx, spreadsheetID, p.sheets.ShareEmail); err != nil {
			log.Warn("share failed",
				zap.String("email", p.sheets.ShareEmail),
				zap.Error(err),
			)
		}
	}

	if err := p.publisher.Publish(ctx, spreadsheetID, leadGrid, oppGrid); err != nil {
		return eris.Wrap(err, "export: publish")
	}

	log.Info("export run complete",
		zap.Int("leads", len(leads)),
		zap.Int("opportunities", len(oppGrid)-1),
		zap.String("url", gsheet.URL(spreadsheetID)),
	)
	return nil
}
