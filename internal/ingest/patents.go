package ingest

import (
	"context"
	"io"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/hollomancer/sbir-analytics-sub010/internal/fetcher"
	"github.com/hollomancer/sbir-analytics-sub010/internal/model"
)

// ParsePatents reads a patent feed CSV keyed by award id.
func ParsePatents(ctx context.Context, r io.Reader) ([]model.Patent, []RecordError, error) {
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
		return nil, nil, eris.Wrap(err, "ingest: read patent header")
	case <-ctx.Done():
		return nil, nil, eris.Wrap(ctx.Err(), "ingest: patents cancelled")
	}
	if err := h.require("award_id"); err != nil {
		return nil, nil, err
	}

	var (
		patents []model.Patent
		rejects []RecordError
		line    = 1
	)
	for row := range rowCh {
		line++
		p, err := patentFromRow(h, row)
		if err != nil {
			rejects = append(rejects, RecordError{Line: line, Err: err.Error()})
			continue
		}
		patents = append(patents, p)
	}
	if err := <-errCh; err != nil {
		return nil, nil, eris.Wrap(err, "ingest: read patents")
	}

	zap.L().Info("parsed patent feed",
		zap.Int("patents", len(patents)),
		zap.Int("rejected", len(rejects)),
	)
	return patents, rejects, nil
}

func patentFromRow(h header, row []string) (model.Patent, error) {
	p := model.Patent{
		AwardID:       h.get(row, "award_id"),
		Assignee:      h.get(row, "assignee", "assignee_name"),
		GrantID:       h.get(row, "grant_id", "patent_number"),
		ApplicationID: h.get(row, "application_id", "application_number"),
	}
	if p.AwardID == "" {
		return model.Patent{}, eris.New("missing award id")
	}
	if p.Assignee == "" {
		return model.Patent{}, eris.New("missing assignee")
	}

	filed, err := parseDate(h.get(row, "filing_date", "filed"))
	if err != nil {
		return model.Patent{}, eris.Wrap(err, "filing date")
	}
	p.FilingDate = filed

	sim, err := parseOptionalFloat(h.get(row, "topic_similarity", "similarity"))
	if err != nil {
		return model.Patent{}, eris.Wrap(err, "topic similarity")
	}
	if sim != nil && (*sim < 0 || *sim > 1) {
		return model.Patent{}, eris.Errorf("topic similarity %.3f out of range", *sim)
	}
	p.TopicSimilarity = sim
	return p, nil
}
