package dashboard

import (
	"context"
	"fmt"

	"github.com/chrissnell/gridlive/internal/substation"
	"golang.org/x/sync/errgroup"
)

// areaRows is the metadata fetched for a set of license areas.
type areaRows struct {
	Areas   []string
	Rows    []substation.RawRecord
	Skipped []string
}

// fetchAreas fetches the metadata of each area, or of every known area when
// areas is empty. Areas whose fetch fails are logged and left out; rows keep
// the order of areas. It fails only when no area could be fetched.
func (s *Service) fetchAreas(ctx context.Context, areas []string, limit int) (*areaRows, error) {
	if len(areas) == 0 {
		all, err := s.LicenseAreas(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing license areas: %w", err)
		}
		areas = all
	}

	results := make([][]substation.RawRecord, len(areas))
	errs := make([]error, len(areas))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.FetchConcurrency)
	for i, area := range areas {
		g.Go(func() error {
			results[i], errs[i] = s.esaMetadata(gctx, area, limit)
			return nil
		})
	}
	g.Wait()

	out := &areaRows{Areas: areas}
	var firstErr error
	for i, area := range areas {
		if errs[i] != nil {
			s.logger.Errorw("skipping license area", "area", area, "error", errs[i])
			s.metrics.AreaSkipped()
			out.Skipped = append(out.Skipped, area)
			if firstErr == nil {
				firstErr = errs[i]
			}
			continue
		}
		out.Rows = append(out.Rows, results[i]...)
	}

	if len(areas) > 0 && len(out.Skipped) == len(areas) {
		return nil, fmt.Errorf("%w: %w", ErrNoData, firstErr)
	}
	s.logger.Debugw("fetched esa metadata", "areas", len(areas), "rows", len(out.Rows), "skipped", len(out.Skipped))
	return out, nil
}
