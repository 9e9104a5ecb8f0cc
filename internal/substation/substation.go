// Package substation collapses per-feeder ESA metadata rows into one located
// marker per secondary substation.
package substation

import (
	"fmt"

	"github.com/chrissnell/gridlive/internal/schema"
	"github.com/chrissnell/gridlive/pkg/osgrid"
)

// RawRecord is one (substation, feeder) row of ESA metadata. Eastings and
// northings are British National Grid meters.
type RawRecord struct {
	SecondarySubstationID   string  `json:"secondary_substation_id"`
	SecondarySubstationName string  `json:"secondary_substation_name"`
	DNOName                 string  `json:"dno_name"`
	LicenseAreaName         string  `json:"license_area_name"`
	Eastings                float64 `json:"esa_location_eastings"`
	Northings               float64 `json:"esa_location_northings"`
	ESAID                   string  `json:"esa_id"`
	LVFeederID              string  `json:"lv_feeder_id"`
}

var requiredFields = []string{
	"secondary_substation_id",
	"esa_location_eastings",
	"esa_location_northings",
	"esa_id",
	"lv_feeder_id",
}

// UnmarshalJSON decodes a metadata row, failing when a field needed for
// grouping, locating or fetching readings is missing.
func (r *RawRecord) UnmarshalJSON(data []byte) error {
	fields, err := schema.Fields(data)
	if err != nil {
		return fmt.Errorf("decoding ESA metadata: %w", err)
	}
	if err := schema.Require("ESA metadata", fields, requiredFields...); err != nil {
		return err
	}

	var rec RawRecord
	if rec.SecondarySubstationID, err = schema.ID(fields["secondary_substation_id"]); err != nil {
		return fmt.Errorf("secondary_substation_id: %w", err)
	}
	if rec.ESAID, err = schema.ID(fields["esa_id"]); err != nil {
		return fmt.Errorf("esa_id: %w", err)
	}
	if rec.LVFeederID, err = schema.ID(fields["lv_feeder_id"]); err != nil {
		return fmt.Errorf("lv_feeder_id: %w", err)
	}
	if rec.Eastings, err = schema.Float(fields["esa_location_eastings"]); err != nil {
		return fmt.Errorf("esa_location_eastings: %w", err)
	}
	if rec.Northings, err = schema.Float(fields["esa_location_northings"]); err != nil {
		return fmt.Errorf("esa_location_northings: %w", err)
	}
	if rec.SecondarySubstationName, err = schema.String(fields, "secondary_substation_name"); err != nil {
		return err
	}
	if rec.DNOName, err = schema.String(fields, "dno_name"); err != nil {
		return err
	}
	if rec.LicenseAreaName, err = schema.String(fields, "license_area_name"); err != nil {
		return err
	}

	*r = rec
	return nil
}

// Location is one physical secondary substation. Display fields come from the
// first metadata row seen for the substation.
type Location struct {
	SecondarySubstationID   string  `json:"secondary_substation_id"`
	SecondarySubstationName string  `json:"secondary_substation_name"`
	DNOName                 string  `json:"dno_name"`
	LicenseAreaName         string  `json:"license_area_name"`
	Eastings                float64 `json:"esa_location_eastings"`
	Northings               float64 `json:"esa_location_northings"`
	ESAID                   string  `json:"esa_id"`
	LVFeederID              string  `json:"lv_feeder_id"`
	NumberOfFeeders         int     `json:"number_of_feeders"`
	Latitude                float64 `json:"latitude"`
	Longitude               float64 `json:"longitude"`
}

// Aggregate groups rows by secondary substation id, in first-seen order. The
// first row of each group supplies the display fields and the location.
func Aggregate(rows []RawRecord) []Location {
	counts := make(map[string]int, len(rows))
	firstIdx := make(map[string]int, len(rows))
	order := make([]string, 0)

	for i, r := range rows {
		id := r.SecondarySubstationID
		if _, seen := firstIdx[id]; !seen {
			firstIdx[id] = i
			order = append(order, id)
		}
		counts[id]++
	}

	locations := make([]Location, 0, len(order))
	for _, id := range order {
		r := rows[firstIdx[id]]
		lat, lon := osgrid.ToLatLon(r.Eastings, r.Northings)
		locations = append(locations, Location{
			SecondarySubstationID:   r.SecondarySubstationID,
			SecondarySubstationName: r.SecondarySubstationName,
			DNOName:                 r.DNOName,
			LicenseAreaName:         r.LicenseAreaName,
			Eastings:                r.Eastings,
			Northings:               r.Northings,
			ESAID:                   r.ESAID,
			LVFeederID:              r.LVFeederID,
			NumberOfFeeders:         counts[id],
			Latitude:                lat,
			Longitude:               lon,
		})
	}
	return locations
}

// FeedersOf returns every metadata row belonging to a substation, in input order.
func FeedersOf(rows []RawRecord, substationID string) []RawRecord {
	var feeders []RawRecord
	for _, r := range rows {
		if r.SecondarySubstationID == substationID {
			feeders = append(feeders, r)
		}
	}
	return feeders
}

// FindByPosition returns the location whose marker sits exactly at lat/lon.
func FindByPosition(locations []Location, lat, lon float64) (Location, bool) {
	for _, l := range locations {
		if l.Latitude == lat && l.Longitude == lon {
			return l, true
		}
	}
	return Location{}, false
}

// FindByID returns the location with the given substation id.
func FindByID(locations []Location, id string) (Location, bool) {
	for _, l := range locations {
		if l.SecondarySubstationID == id {
			return l, true
		}
	}
	return Location{}, false
}

// FeederRange returns the smallest and largest feeder counts.
func FeederRange(locations []Location) (min, max int) {
	for i, l := range locations {
		if i == 0 || l.NumberOfFeeders < min {
			min = l.NumberOfFeeders
		}
		if i == 0 || l.NumberOfFeeders > max {
			max = l.NumberOfFeeders
		}
	}
	return min, max
}

// LicenseAreas lists each location's license area, in order.
func LicenseAreas(locations []Location) []string {
	areas := make([]string, len(locations))
	for i, l := range locations {
		areas[i] = l.LicenseAreaName
	}
	return areas
}
