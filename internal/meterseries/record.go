package meterseries

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/chrissnell/gridlive/internal/schema"
	"github.com/vmihailenco/msgpack/v5"
)

// Reserved record fields that are never plotted.
const (
	FieldESAID     = "esa_id"
	FieldFeederID  = "lv_feeder_id"
	FieldTimestamp = "data_timestamp"
)

// timestampLayouts are the ISO-8601 forms the API has been seen to emit.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999",
}

// RawRecord is one smart-meter reading row for an ESA at a point in time.
// Values holds every numeric measurement column; JSON null decodes as NaN.
type RawRecord struct {
	ESAID      string             `json:"esa_id"`
	LVFeederID string             `json:"lv_feeder_id,omitempty"`
	Timestamp  time.Time          `json:"data_timestamp"`
	Values     map[string]float64 `json:"values"`
}

// UnmarshalJSON decodes a flat reading row as served by the API.
func (r *RawRecord) UnmarshalJSON(data []byte) error {
	fields, err := schema.Fields(data)
	if err != nil {
		return fmt.Errorf("decoding smart meter reading: %w", err)
	}
	if err := schema.Require("smart meter", fields, FieldESAID, FieldTimestamp); err != nil {
		return err
	}

	var rec RawRecord
	if rec.ESAID, err = schema.ID(fields[FieldESAID]); err != nil {
		return fmt.Errorf("%s: %w", FieldESAID, err)
	}
	if raw, ok := fields[FieldFeederID]; ok {
		if rec.LVFeederID, err = schema.ID(raw); err != nil {
			return fmt.Errorf("%s: %w", FieldFeederID, err)
		}
	}

	var ts string
	if err := json.Unmarshal(fields[FieldTimestamp], &ts); err != nil {
		return fmt.Errorf("%s: %w", FieldTimestamp, err)
	}
	if rec.Timestamp, err = ParseTimestamp(ts); err != nil {
		return err
	}

	rec.Values = make(map[string]float64, len(fields))
	for k, raw := range fields {
		if k == FieldESAID || k == FieldFeederID || k == FieldTimestamp {
			continue
		}
		if schema.IsNull(raw) {
			rec.Values[k] = math.NaN()
			continue
		}
		v, err := schema.Float(raw)
		if err != nil {
			// non-numeric columns are not plottable
			continue
		}
		rec.Values[k] = v
	}

	*r = rec
	return nil
}

// cachedRecord is the msgpack form of a RawRecord. The timestamp travels as
// text so the offset the API sent survives a round trip through the cache;
// msgpack's native time decodes into the local zone.
type cachedRecord struct {
	ESAID      string             `msgpack:"esa_id"`
	LVFeederID string             `msgpack:"lv_feeder_id,omitempty"`
	Timestamp  string             `msgpack:"data_timestamp"`
	Values     map[string]float64 `msgpack:"values"`
}

// EncodeMsgpack implements msgpack.CustomEncoder.
func (r RawRecord) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.Encode(cachedRecord{
		ESAID:      r.ESAID,
		LVFeederID: r.LVFeederID,
		Timestamp:  r.Timestamp.Format(time.RFC3339Nano),
		Values:     r.Values,
	})
}

// DecodeMsgpack implements msgpack.CustomDecoder.
func (r *RawRecord) DecodeMsgpack(dec *msgpack.Decoder) error {
	var c cachedRecord
	if err := dec.Decode(&c); err != nil {
		return err
	}
	ts, err := time.Parse(time.RFC3339Nano, c.Timestamp)
	if err != nil {
		return fmt.Errorf("cached %s: %w", FieldTimestamp, err)
	}
	*r = RawRecord{ESAID: c.ESAID, LVFeederID: c.LVFeederID, Timestamp: ts, Values: c.Values}
	return nil
}

// ParseTimestamp parses an ISO-8601 instant, keeping its UTC offset.
// Timestamps without an offset are taken as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable %s %q", FieldTimestamp, s)
}

// StampFeeder returns copies of records attributed to the given LV feeder.
func StampFeeder(records []RawRecord, feederID string) []RawRecord {
	stamped := make([]RawRecord, len(records))
	for i, r := range records {
		r.LVFeederID = feederID
		stamped[i] = r
	}
	return stamped
}

// Concat joins per-feeder record sets end to end without resampling.
func Concat(feeds ...[]RawRecord) []RawRecord {
	n := 0
	for _, f := range feeds {
		n += len(f)
	}
	all := make([]RawRecord, 0, n)
	for _, f := range feeds {
		all = append(all, f...)
	}
	return all
}

// Columns lists the plottable measurement columns present in any record, sorted.
func Columns(records []RawRecord) []string {
	seen := make(map[string]bool)
	var cols []string
	for _, r := range records {
		for k := range r.Values {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	sort.Strings(cols)
	return cols
}

// DefaultColumn picks the primary consumption metric when offered, otherwise
// the first column. It returns "" for no columns.
func DefaultColumn(columns []string) string {
	for _, c := range columns {
		if c == PrimaryColumn {
			return c
		}
	}
	if len(columns) > 0 {
		return columns[0]
	}
	return ""
}
