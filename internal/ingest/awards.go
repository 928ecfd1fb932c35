package ingest

import (
	"context"
	"io"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/hollomancer/sbir-analytics-sub010/internal/fetcher"
	"github.com/hollomancer/sbir-analytics-sub010/internal/model"
	"github.com/hollomancer/sbir-analytics-sub010/internal/resolve"
)

// ParseAwards reads an award CSV extract. Rows missing an award id, firm
// name, or completion date are rejected into the error list.
func ParseAwards(ctx context.Context, r io.Reader) ([]model.Award, []RecordError, error) {
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
		return nil, nil, eris.Wrap(err, "ingest: read award header")
	case <-ctx.Done():
		return nil, nil, eris.Wrap(ctx.Err(), "ingest: awards cancelled")
	}
	if err := h.require("award_id", "contract"); err != nil {
		return nil, nil, err
	}

	var (
		awards  []model.Award
		rejects []RecordError
		line    = 1
	)
	for row := range rowCh {
		line++
		a, err := awardFromRow(h, row)
		if err != nil {
			rejects = append(rejects, RecordError{Line: line, Err: err.Error()})
			continue
		}
		awards = append(awards, a)
	}
	if err := <-errCh; err != nil {
		return nil, nil, eris.Wrap(err, "ingest: read awards")
	}

	zap.L().Info("parsed award extract",
		zap.Int("awards", len(awards)),
		zap.Int("rejected", len(rejects)),
	)
	return awards, rejects, nil
}

func awardFromRow(h header, row []string) (model.Award, error) {
	a := model.Award{
		ID:       h.get(row, "award_id", "contract", "agency_tracking_number"),
		Firm:     h.get(row, "firm", "company", "company_name"),
		UEI:      resolve.NormalizeIdentifier(h.get(row, "uei", "unique_entity_identifier")),
		CAGE:     resolve.NormalizeIdentifier(h.get(row, "cage", "cage_code")),
		DUNS:     resolve.NormalizeIdentifier(h.get(row, "duns", "duns_number")),
		Agency:   h.get(row, "agency", "agency_code"),
		Phase:    model.ParsePhase(h.get(row, "phase", "award_phase")),
		Program:  model.ParseProgram(h.get(row, "program")),
		CETLabel: h.get(row, "cet_label", "technology_area", "cet"),
		Title:    h.get(row, "title", "award_title"),
		Abstract: h.get(row, "abstract"),
	}
	if a.ID == "" {
		return model.Award{}, eris.New("missing award id")
	}
	if a.Firm == "" {
		return model.Award{}, eris.New("missing firm name")
	}

	completed, err := parseDate(h.get(row, "completion_date", "contract_end_date", "end_date"))
	if err != nil {
		return model.Award{}, eris.Wrap(err, "completion date")
	}
	a.CompletionDate = completed
	return a, nil
}

// ParseAwardsXLSX reads an award workbook as published by the program
// offices: data on the first sheet, one header row.
func ParseAwardsXLSX(ctx context.Context, path string) ([]model.Award, []RecordError, error) {
	head, err := fetcher.ReadXLSXHeader(path, fetcher.XLSXOptions{})
	if err != nil {
		return nil, nil, eris.Wrap(err, "ingest: award workbook header")
	}
	h := newHeader(head)
	if err := h.require("award_id", "contract"); err != nil {
		return nil, nil, err
	}

	rows, err := fetcher.ReadXLSX(path, fetcher.XLSXOptions{SkipRows: 1})
	if err != nil {
		return nil, nil, eris.Wrap(err, "ingest: award workbook rows")
	}

	var (
		awards  []model.Award
		rejects []RecordError
	)
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, nil, eris.Wrap(err, "ingest: awards cancelled")
		}
		a, err := awardFromRow(h, row)
		if err != nil {
			rejects = append(rejects, RecordError{Line: i + 2, Err: err.Error()})
			continue
		}
		awards = append(awards, a)
	}

	zap.L().Info("parsed award workbook",
		zap.String("path", path),
		zap.Int("awards", len(awards)),
		zap.Int("rejected", len(rejects)),
	)
	return awards, rejects, nil
}
