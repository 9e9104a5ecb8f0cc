package dashboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chrissnell/gridlive/internal/gridlive"
	"github.com/chrissnell/gridlive/internal/meterseries"
	"github.com/chrissnell/gridlive/internal/substation"
)

// SeriesQuery selects a substation and the readings to chart for it. The
// substation is named by SubstationID or, when that is empty, by the exact
// position of its map marker.
type SeriesQuery struct {
	SubstationID string
	Position     *LatLon
	Areas        []string
	Limit        int
	Start        string
	End          string
	Column       string
}

// SeriesResult is a substation's merged smart-meter series. Series is nil
// when none of its feeders returned readings.
type SeriesResult struct {
	Substation     substation.Location `json:"substation"`
	FeederCount    int                 `json:"feeder_count"`
	FetchedFeeders []string            `json:"fetched_feeders"`
	FailedFeeders  []string            `json:"failed_feeders,omitempty"`
	Start          string              `json:"start_datetime"`
	End            string              `json:"end_datetime"`
	Columns        []string            `json:"columns"`
	Series         *meterseries.Series `json:"series,omitempty"`
}

// SubstationSeries fetches the readings of up to MaxFeeders feeders of a
// substation, attributes each to its feeder and builds one series.
func (s *Service) SubstationSeries(ctx context.Context, q SeriesQuery) (*SeriesResult, error) {
	fetched, err := s.fetchAreas(ctx, q.Areas, q.Limit)
	if err != nil {
		return nil, err
	}

	if q.SubstationID == "" && q.Position != nil {
		loc, ok := substation.FindByPosition(substation.Aggregate(fetched.Rows), q.Position.Lat, q.Position.Lon)
		if !ok {
			return nil, fmt.Errorf("%w: no marker at %v,%v", ErrUnknownSubstation, q.Position.Lat, q.Position.Lon)
		}
		q.SubstationID = loc.SecondarySubstationID
	}

	feeders := substation.FeedersOf(fetched.Rows, q.SubstationID)
	if len(feeders) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSubstation, q.SubstationID)
	}
	loc, _ := substation.FindByID(substation.Aggregate(feeders), q.SubstationID)

	result := &SeriesResult{
		Substation:  loc,
		FeederCount: len(feeders),
		Start:       q.Start,
		End:         q.End,
	}

	if len(feeders) > s.opts.MaxFeeders {
		feeders = feeders[:s.opts.MaxFeeders]
	}

	var (
		perFeeder [][]meterseries.RawRecord
		lastErr   error
	)
	for _, f := range feeders {
		recs, err := s.smartMeter(ctx, f.ESAID, q.Start, q.End)
		if err != nil {
			if errors.Is(err, gridlive.ErrNoAPIKey) || ctx.Err() != nil {
				return nil, err
			}
			s.logger.Errorw("fetching smart meter data", "esa_id", f.ESAID, "lv_feeder_id", f.LVFeederID, "error", err)
			result.FailedFeeders = append(result.FailedFeeders, f.LVFeederID)
			lastErr = err
			continue
		}
		if len(recs) == 0 {
			continue
		}
		result.FetchedFeeders = append(result.FetchedFeeders, f.LVFeederID)
		perFeeder = append(perFeeder, meterseries.StampFeeder(recs, f.LVFeederID))
	}

	if len(result.FailedFeeders) == len(feeders) {
		return nil, lastErr
	}

	combined := meterseries.Concat(perFeeder...)
	result.Columns = meterseries.Columns(combined)
	if len(combined) == 0 {
		return result, nil
	}

	column := q.Column
	if column == "" {
		column = meterseries.DefaultColumn(result.Columns)
	}
	series, err := meterseries.Build(combined, column, s.opts.OutlierCeiling)
	if err != nil {
		return nil, err
	}
	series.Chart.Title = meterseries.Title(loc.SecondarySubstationName)
	result.Series = series

	s.logger.Debugw("built smart meter series", "substation", q.SubstationID, "column", column,
		"feeders", len(result.FetchedFeeders), "points", len(series.Points))
	return result, nil
}

// DateRange turns a pair of calendar dates into the inclusive whole-day
// window the smart-meter endpoint expects.
func DateRange(start, end time.Time) (string, string, error) {
	startDay := start.Format("2006-01-02")
	endDay := end.Format("2006-01-02")
	if endDay < startDay {
		return "", "", fmt.Errorf("%w: %s < %s", ErrInvalidDateRange, endDay, startDay)
	}
	return startDay + "T00:00:00+00:00", endDay + "T23:59:59+00:00", nil
}
