package geo

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"rakshak/internal/kb"
)

const (
	earthRadiusKm = 6371.0

	// Distances closer than this are considered equal and ordered by
	// shelter id, so identical inputs always rank identically.
	tieEpsilonKm = 1e-6
)

// LocationNotFoundError is recoverable: the caller substitutes the
// "location unknown" response branch instead of failing the turn.
type LocationNotFoundError struct {
	Name string
}

func (e *LocationNotFoundError) Error() string {
	return fmt.Sprintf("location %q not found", e.Name)
}

type Ranked struct {
	Shelter    kb.ShelterRecord
	DistanceKm float64
}

// Resolver answers nearest-shelter queries over the immutable knowledge
// base. Safe for concurrent use.
type Resolver struct {
	shelters  []kb.ShelterRecord
	locations map[string]kb.Coordinate
	names     []string
}

func NewResolver(base *kb.KB) *Resolver {
	r := &Resolver{
		shelters:  append([]kb.ShelterRecord(nil), base.Shelters...),
		locations: map[string]kb.Coordinate{},
	}
	for name, c := range base.Locations {
		key := normalizeName(name)
		r.locations[key] = c
		r.names = append(r.names, key)
	}
	sort.Strings(r.names)
	return r
}

// Nearest returns up to n shelters ordered by ascending great-circle
// distance from c. An empty shelter set yields an empty slice, which the
// caller must treat as "no shelter available".
func (r *Resolver) Nearest(c kb.Coordinate, n int) []Ranked {
	if n <= 0 || len(r.shelters) == 0 {
		return nil
	}

	ranked := make([]Ranked, 0, len(r.shelters))
	for _, s := range r.shelters {
		ranked = append(ranked, Ranked{
			Shelter:    s,
			DistanceKm: Haversine(c, s.Coordinate()),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		di, dj := ranked[i].DistanceKm, ranked[j].DistanceKm
		if math.Abs(di-dj) <= tieEpsilonKm {
			return ranked[i].Shelter.ID < ranked[j].Shelter.ID
		}
		return di < dj
	})

	if n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}

// NearestNamed resolves a place name through the location index first.
func (r *Resolver) NearestNamed(name string, n int) ([]Ranked, error) {
	c, err := r.Resolve(name)
	if err != nil {
		return nil, err
	}
	return r.Nearest(c, n), nil
}

func (r *Resolver) Resolve(name string) (kb.Coordinate, error) {
	if c, ok := r.locations[normalizeName(name)]; ok {
		return c, nil
	}
	return kb.Coordinate{}, &LocationNotFoundError{Name: name}
}

// LocateInText extracts a reference coordinate from free text: an embedded
// "28.6139, 77.2090" pair wins, then a known location name, then an
// explicit "near <place>" mention of an unknown place, which is reported
// as LocationNotFoundError. ok is false when the text names no location at
// all and the engine's reference location should be used.
func (r *Resolver) LocateInText(text string) (c kb.Coordinate, ok bool, err error) {
	if c, found := ParseCoordinate(text); found {
		return c, true, nil
	}

	norm := " " + normalizeName(text) + " "
	for _, name := range r.names {
		if strings.Contains(norm, " "+name+" ") {
			return r.locations[name], true, nil
		}
	}

	words := strings.Fields(norm)
	for i, w := range words {
		if w != "near" || i+1 == len(words) {
			continue
		}
		rest := words[i+1:]
		for len(rest) > 0 && articleWords[rest[0]] {
			rest = rest[1:]
		}
		// "near me" / "near here" names no place; fall back to the
		// reference location instead of the unknown-location branch.
		if len(rest) == 0 || deicticWords[rest[0]] {
			break
		}
		return kb.Coordinate{}, false, &LocationNotFoundError{Name: strings.Join(rest, " ")}
	}

	return kb.Coordinate{}, false, nil
}

var (
	articleWords = map[string]bool{"the": true, "a": true, "an": true}
	deicticWords = map[string]bool{
		"me": true, "us": true, "here": true, "my": true, "our": true, "myself": true,
	}
)

// "28.6139, 77.2090" or "28.6139°N, 77.2090°E"
var coordRe = regexp.MustCompile(`(-?\d+\.?\d*)[°\s]*[NS]?,\s*(-?\d+\.?\d*)[°\s]*[EW]?`)

func ParseCoordinate(text string) (kb.Coordinate, bool) {
	m := coordRe.FindStringSubmatch(text)
	if m == nil {
		return kb.Coordinate{}, false
	}
	lat, err1 := strconv.ParseFloat(m[1], 64)
	lon, err2 := strconv.ParseFloat(m[2], 64)
	if err1 != nil || err2 != nil {
		return kb.Coordinate{}, false
	}
	c := kb.Coordinate{Latitude: lat, Longitude: lon}
	if !c.Valid() {
		return kb.Coordinate{}, false
	}
	return c, true
}

// Haversine returns the great-circle distance between two points in km.
func Haversine(a, b kb.Coordinate) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dlat := (b.Latitude - a.Latitude) * math.Pi / 180
	dlon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	return earthRadiusKm * 2 * math.Asin(math.Sqrt(h))
}

// FormatDistance renders a distance the way the assistant speaks it:
// meters under a kilometer, one decimal under ten, whole km beyond.
func FormatDistance(km float64) string {
	switch {
	case km < 1.0:
		return fmt.Sprintf("%d meters", int(km*1000))
	case km < 10.0:
		return fmt.Sprintf("%.1f km", km)
	default:
		return fmt.Sprintf("%.0f km", km)
	}
}

func normalizeName(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
