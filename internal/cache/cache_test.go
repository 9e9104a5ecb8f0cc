package cache

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/chrissnell/gridlive/internal/meterseries"
	"github.com/chrissnell/gridlive/pkg/config"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	c := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	m := NewMemory().WithClock(c.now)

	m.Set(ctx, "areas", []byte("x"), time.Hour)
	m.Set(ctx, "forever", []byte("y"), 0)

	if v, ok, _ := m.Get(ctx, "areas"); !ok || string(v) != "x" {
		t.Fatalf("Get before expiry = %q, %v", v, ok)
	}

	c.t = c.t.Add(time.Hour)
	if _, ok, _ := m.Get(ctx, "areas"); ok {
		t.Error("entry still present at its expiry instant")
	}
	if _, ok, _ := m.Get(ctx, "forever"); !ok {
		t.Error("entry without ttl expired")
	}
	if m.Len() != 1 {
		t.Errorf("Len = %d after lazy expiry, expected 1", m.Len())
	}
}

func TestMemorySweep(t *testing.T) {
	ctx := context.Background()
	c := &clock{t: time.Unix(0, 0)}
	m := NewMemory().WithClock(c.now)

	m.Set(ctx, "a", nil, time.Minute)
	m.Set(ctx, "b", nil, time.Hour)
	m.Set(ctx, "c", nil, 0)

	c.t = c.t.Add(2 * time.Minute)
	if n := m.Sweep(); n != 1 {
		t.Errorf("Sweep dropped %d, expected 1", n)
	}
	if m.Len() != 2 {
		t.Errorf("Len = %d, expected 2", m.Len())
	}
}

func TestMemoryCopiesValue(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	buf := []byte("abc")
	m.Set(ctx, "k", buf, time.Minute)
	buf[0] = 'z'

	if v, _, _ := m.Get(ctx, "k"); string(v) != "abc" {
		t.Errorf("stored value changed with caller's buffer: %q", v)
	}

	m.Delete(ctx, "k")
	if _, ok, _ := m.Get(ctx, "k"); ok {
		t.Error("Delete left the entry behind")
	}
}

type reading struct {
	ESA    string
	At     time.Time
	Values map[string]float64
}

func TestMemoize(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	calls := 0

	fetch := func(context.Context) ([]reading, error) {
		calls++
		return []reading{{
			ESA:    "esa-1",
			At:     time.Date(2024, 3, 1, 0, 30, 0, 0, time.UTC),
			Values: map[string]float64{"import": 512.5, "missing": math.NaN()},
		}}, nil
	}

	first, err := Memoize(ctx, store, "smart_meter:esa-1", time.Hour, fetch)
	if err != nil {
		t.Fatalf("Memoize returned error: %v", err)
	}
	second, err := Memoize(ctx, store, "smart_meter:esa-1", time.Hour, fetch)
	if err != nil {
		t.Fatalf("Memoize returned error: %v", err)
	}

	if calls != 1 {
		t.Errorf("fetch called %d times, expected 1", calls)
	}
	if !second[0].At.Equal(first[0].At) || second[0].Values["import"] != 512.5 {
		t.Errorf("cached value = %+v, expected %+v", second[0], first[0])
	}
	if !math.IsNaN(second[0].Values["missing"]) {
		t.Errorf("NaN did not survive the cache: %v", second[0].Values["missing"])
	}
}

func TestMemoizeDoesNotCacheErrors(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	boom := errors.New("upstream down")
	calls := 0

	fetch := func(context.Context) ([]string, error) {
		calls++
		if calls == 1 {
			return nil, boom
		}
		return []string{"Yorkshire"}, nil
	}

	if _, err := Memoize(ctx, store, "areas", time.Hour, fetch); !errors.Is(err, boom) {
		t.Fatalf("first call error = %v, expected %v", err, boom)
	}
	areas, err := Memoize(ctx, store, "areas", time.Hour, fetch)
	if err != nil || len(areas) != 1 {
		t.Fatalf("second call = %v, %v", areas, err)
	}
	if calls != 2 {
		t.Errorf("fetch called %d times, expected 2", calls)
	}
}

func TestMemoizeCorruptEntry(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	store.Set(ctx, "areas", []byte{0xc1}, time.Hour)

	areas, err := Memoize(ctx, store, "areas", time.Hour, func(context.Context) ([]string, error) {
		return []string{"London"}, nil
	})
	if err != nil || len(areas) != 1 || areas[0] != "London" {
		t.Errorf("Memoize over corrupt entry = %v, %v", areas, err)
	}
}

func TestMemoizeKeepsReadingOffsets(t *testing.T) {
	local := time.Local
	time.Local = time.FixedZone("EST", -5*60*60)
	t.Cleanup(func() { time.Local = local })

	var fetched []meterseries.RawRecord
	err := json.Unmarshal([]byte(`[
		{"esa_id": "E1", "lv_feeder_id": "3", "data_timestamp": "2024-03-01T10:00:00+01:00",
		 "active_total_consumption_import": 512.5, "voltage": null}
	]`), &fetched)
	if err != nil {
		t.Fatalf("decoding readings: %v", err)
	}

	ctx := context.Background()
	store := NewMemory()
	fetch := func(context.Context) ([]meterseries.RawRecord, error) { return fetched, nil }

	miss, err := Memoize(ctx, store, "smart_meter:E1", time.Hour, fetch)
	if err != nil {
		t.Fatalf("first Memoize: %v", err)
	}
	hit, err := Memoize(ctx, store, "smart_meter:E1", time.Hour, func(context.Context) ([]meterseries.RawRecord, error) {
		t.Fatal("fetch called on a cached key")
		return nil, nil
	})
	if err != nil {
		t.Fatalf("second Memoize: %v", err)
	}

	if len(hit) != 1 {
		t.Fatalf("cached %d readings, expected 1", len(hit))
	}
	const want = "2024-03-01T10:00:00+01:00"
	if got := miss[0].Timestamp.Format(time.RFC3339); got != want {
		t.Errorf("fresh timestamp = %s, expected %s", got, want)
	}
	if got := hit[0].Timestamp.Format(time.RFC3339); got != want {
		t.Errorf("cached timestamp = %s, expected %s", got, want)
	}
	if !hit[0].Timestamp.Equal(miss[0].Timestamp) {
		t.Errorf("cached instant %v differs from %v", hit[0].Timestamp, miss[0].Timestamp)
	}
	if hit[0].ESAID != "E1" || hit[0].LVFeederID != "3" || hit[0].Values["active_total_consumption_import"] != 512.5 {
		t.Errorf("cached reading = %+v", hit[0])
	}
	if !math.IsNaN(hit[0].Values["voltage"]) {
		t.Errorf("null voltage cached as %v, expected NaN", hit[0].Values["voltage"])
	}
}

func TestMemoizeNilStore(t *testing.T) {
	n, err := Memoize(context.Background(), nil, "k", time.Hour, func(context.Context) (int, error) {
		return 7, nil
	})
	if err != nil || n != 7 {
		t.Errorf("Memoize(nil store) = %d, %v", n, err)
	}
}

func TestKey(t *testing.T) {
	got := Key("esa_metadata", "South Wales", "limit=100")
	if got != "esa_metadata:South Wales:limit=100" {
		t.Errorf("Key = %q", got)
	}
	if Key("a:b", "c") == Key("a", "b:c") {
		t.Error("Key parts containing ':' collide")
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		backend string
		wantErr bool
	}{
		{"memory", false},
		{"", false},
		{"none", false},
		{"memcached", true},
	}

	for _, test := range tests {
		store, closeFn, err := Open(ctx, config.CacheData{Backend: test.backend})
		if test.wantErr {
			if err == nil {
				t.Errorf("Open(%q) succeeded", test.backend)
			}
			continue
		}
		if err != nil || store == nil {
			t.Errorf("Open(%q) = %v, %v", test.backend, store, err)
			continue
		}
		closeFn()
	}

	if _, _, err := Open(ctx, config.CacheData{Backend: "redis", RedisURL: "not a url"}); err == nil {
		t.Error("Open accepted a malformed redis url")
	}
}
