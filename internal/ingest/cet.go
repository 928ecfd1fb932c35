package ingest

import (
	"context"
	"io"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/hollomancer/sbir-analytics-sub010/internal/fetcher"
	"github.com/hollomancer/sbir-analytics-sub010/internal/model"
)

// ParseCETLabels reads a technology-area label feed CSV. Each row carries a
// label plus an award id, a contract PIID, or both; rows with no key or no
// label are rejected into the error list.
func ParseCETLabels(ctx context.Context, r io.Reader) ([]model.CETLabel, []RecordError, error) {
	headerCh := make(chan []string, 1)
	rowCh, errCh := fetcher.StreamCSV(ctx, r, fetcher.CSVOptions{
		HasHeader: true,
		HeaderCh:  headerCh,
		TrimSpace: true,
	})

	var h header
	select {
	case cols := <-headerCh:
		h = newHeader(cols)
	case err := <-errCh:
		return nil, nil, eris.Wrap(err, "ingest: read cet header")
	case <-ctx.Done():
		return nil, nil, eris.Wrap(ctx.Err(), "ingest: cet labels cancelled")
	}
	if err := h.require("cet_label", "label", "technology_area", "cet"); err != nil {
		return nil, nil, err
	}

	var (
		labels  []model.CETLabel
		rejects []RecordError
		line    = 1
	)
	for row := range rowCh {
		line++
		l, err := cetLabelFromRow(h, row)
		if err != nil {
			rejects = append(rejects, RecordError{Line: line, Err: err.Error()})
			continue
		}
		labels = append(labels, l)
	}
	if err := <-errCh; err != nil {
		return nil, nil, eris.Wrap(err, "ingest: read cet labels")
	}

	zap.L().Info("parsed cet label feed",
		zap.Int("labels", len(labels)),
		zap.Int("rejected", len(rejects)),
	)
	return labels, rejects, nil
}

func cetLabelFromRow(h header, row []string) (model.CETLabel, error) {
	l := model.CETLabel{
		AwardID: h.get(row, "award_id", "contract", "agency_tracking_number"),
		PIID:    h.get(row, "piid", "contract_award_unique_key", "award_id_piid"),
		Label:   h.get(row, "cet_label", "label", "technology_area", "cet"),
	}
	if l.Label == "" {
		return model.CETLabel{}, eris.New("missing cet label")
	}
	if l.AwardID == "" && l.PIID == "" {
		return model.CETLabel{}, eris.New("missing award id or piid")
	}
	return l, nil
}
