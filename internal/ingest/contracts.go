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

// ParseContracts reads a procurement CSV extract (USAspending column naming).
func ParseContracts(ctx context.Context, r io.Reader) ([]model.FederalContract, []RecordError, error) {
	headerCh := make(chan []string, 1)
	rowCh, errCh := fetcher.StreamCSV(ctx, r, fetcher.CSVOptions{
		HasHeader:  true,
		HeaderCh:   headerCh,
		TrimSpace:  true,
		LazyQuotes: true,
	})

	var h header
	select {
	case cols := <-headerCh:
		h = newHeader(cols)
	case err := <-errCh:
		return nil, nil, eris.Wrap(err, "ingest: read contract header")
	case <-ctx.Done():
		return nil, nil, eris.Wrap(ctx.Err(), "ingest: contracts cancelled")
	}
	if err := h.require("piid", "award_id_piid"); err != nil {
		return nil, nil, err
	}

	var (
		contracts []model.FederalContract
		rejects   []RecordError
		line      = 1
	)
	for row := range rowCh {
		line++
		c, err := contractFromRow(h, row)
		if err != nil {
			rejects = append(rejects, RecordError{Line: line, Err: err.Error()})
			continue
		}
		contracts = append(contracts, c)
	}
	if err := <-errCh; err != nil {
		return nil, nil, eris.Wrap(err, "ingest: read contracts")
	}

	zap.L().Info("parsed contract extract",
		zap.Int("contracts", len(contracts)),
		zap.Int("rejected", len(rejects)),
	)
	return contracts, rejects, nil
}

func contractFromRow(h header, row []string) (model.FederalContract, error) {
	c := model.FederalContract{
		PIID:          h.get(row, "piid", "award_id_piid"),
		Vendor:        h.get(row, "vendor", "recipient_name", "vendor_name"),
		UEI:           resolve.NormalizeIdentifier(h.get(row, "uei", "recipient_uei")),
		CAGE:          resolve.NormalizeIdentifier(h.get(row, "cage", "cage_code")),
		DUNS:          resolve.NormalizeIdentifier(h.get(row, "duns", "recipient_duns")),
		Agency:        h.get(row, "agency", "awarding_agency_code", "awarding_agency"),
		FundingAgency: h.get(row, "funding_agency", "funding_agency_code"),
		Competition:   model.ParseCompetitionType(h.get(row, "competition", "extent_competed")),
		Description:   h.get(row, "description", "award_description"),
		CETLabel:      h.get(row, "cet_label", "technology_area"),
	}
	if c.PIID == "" {
		return model.FederalContract{}, eris.New("missing piid")
	}
	if c.Vendor == "" {
		return model.FederalContract{}, eris.New("missing vendor name")
	}

	start, err := parseDate(h.get(row, "start_date", "period_of_performance_start_date", "action_date"))
	if err != nil {
		return model.FederalContract{}, eris.Wrap(err, "start date")
	}
	c.StartDate = start

	amount, err := parseAmount(h.get(row, "obligated_amount", "total_obligated_amount", "federal_action_obligation"))
	if err != nil {
		return model.FederalContract{}, err
	}
	c.ObligatedAmount = amount
	return c, nil
}
