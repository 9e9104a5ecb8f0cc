package osgrid

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrOutsideGrid is returned when a position falls outside the lettered
// 500 km squares of the National Grid.
var ErrOutsideGrid = errors.New("position is outside the National Grid lettered squares")

// firstLetters holds the 500 km square letters, rows north to south, indexed by
// [2-n500][e500].
var firstLetters = [3][2]byte{
	{'H', 'J'},
	{'N', 'O'},
	{'S', 'T'},
}

// secondLetters holds the 100 km square letters within a 500 km square,
// indexed by [e100][4-n100].
var secondLetters = [5]string{
	"AFLQV",
	"BGMRW",
	"CHNSX",
	"DJOTY",
	"EKPUZ",
}

// GridReference returns the 10-digit (1 m) OS grid reference for a WGS84
// position, e.g. "TG5140913177".
func GridReference(lat, lon float64) (string, error) {
	e, n := ToEastingsNorthings(lat, lon)
	return FormatGridReference(e, n)
}

// FormatGridReference returns the 10-digit OS grid reference for National Grid
// eastings/northings.
func FormatGridReference(eastings, northings float64) (string, error) {
	if math.IsNaN(eastings) || math.IsNaN(northings) {
		return "", fmt.Errorf("%w: non-numeric coordinates", ErrOutsideGrid)
	}
	e := int64(math.Floor(eastings))
	n := int64(math.Floor(northings))

	e500, n500 := floorDiv(e, 500000), floorDiv(n, 500000)
	if e500 < 0 || e500 > 1 || n500 < 0 || n500 > 2 {
		return "", fmt.Errorf("%w: 500 km square (%d, %d)", ErrOutsideGrid, e500, n500)
	}
	first := firstLetters[2-n500][e500]

	e100 := (e % 500000) / 100000
	n100 := (n % 500000) / 100000
	second := secondLetters[e100][4-n100]

	return fmt.Sprintf("%c%c%05d%05d", first, second, e%100000, n%100000), nil
}

// ParseGridReference decodes a grid reference with 0 to 5 digits per axis into
// the eastings/northings of the south-west corner of the referenced square.
// Spaces are ignored.
func ParseGridReference(ref string) (eastings, northings float64, err error) {
	ref = strings.ToUpper(strings.ReplaceAll(ref, " ", ""))
	if len(ref) < 2 {
		return 0, 0, fmt.Errorf("grid reference too short: %q", ref)
	}

	e500, n500, ok := findFirst(ref[0])
	if !ok {
		return 0, 0, fmt.Errorf("%w: unknown 500 km letter %q", ErrOutsideGrid, ref[0])
	}
	e100, n100, ok := findSecond(ref[1])
	if !ok {
		return 0, 0, fmt.Errorf("%w: unknown 100 km letter %q", ErrOutsideGrid, ref[1])
	}

	digits := ref[2:]
	if len(digits)%2 != 0 || len(digits) > 10 {
		return 0, 0, fmt.Errorf("grid reference %q must have an even number of digits, at most 10", ref)
	}
	half := len(digits) / 2
	de, err := parseOffset(digits[:half])
	if err != nil {
		return 0, 0, fmt.Errorf("grid reference %q: %w", ref, err)
	}
	dn, err := parseOffset(digits[half:])
	if err != nil {
		return 0, 0, fmt.Errorf("grid reference %q: %w", ref, err)
	}

	eastings = float64(e500*500000 + e100*100000 + de)
	northings = float64(n500*500000 + n100*100000 + dn)
	return eastings, northings, nil
}

// parseOffset scales a 0-5 digit group to meters within a 100 km square.
func parseOffset(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid digits %q", s)
	}
	for i := len(s); i < 5; i++ {
		v *= 10
	}
	return v, nil
}

func findFirst(c byte) (e500, n500 int64, ok bool) {
	for row := range firstLetters {
		for col, l := range firstLetters[row] {
			if l == c {
				return int64(col), int64(2 - row), true
			}
		}
	}
	return 0, 0, false
}

func findSecond(c byte) (e100, n100 int64, ok bool) {
	for col, letters := range secondLetters {
		if i := strings.IndexByte(letters, c); i >= 0 {
			return int64(col), int64(4 - i), true
		}
	}
	return 0, 0, false
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
