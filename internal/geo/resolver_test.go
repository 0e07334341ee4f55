package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rakshak/internal/kb"
)

func testKB() *kb.KB {
	return &kb.KB{
		Shelters: []kb.ShelterRecord{
			{ID: "S1", Name: "Community Center", Latitude: 28.6139, Longitude: 77.2090},
			{ID: "S2", Name: "School", Latitude: 28.6129, Longitude: 77.2080},
			{ID: "S3", Name: "Stadium", Latitude: 28.6000, Longitude: 77.2300},
		},
		Locations: map[string]kb.Coordinate{
			"new delhi":  {Latitude: 28.6139, Longitude: 77.2090},
			"india gate": {Latitude: 28.6129, Longitude: 77.2295},
		},
	}
}

func TestHaversine(t *testing.T) {
	delhi := kb.Coordinate{Latitude: 28.6139, Longitude: 77.2090}
	mumbai := kb.Coordinate{Latitude: 19.0760, Longitude: 72.8777}

	assert.InDelta(t, 0.0, Haversine(delhi, delhi), 1e-9)

	// Delhi to Mumbai is roughly 1150 km great-circle.
	d := Haversine(delhi, mumbai)
	assert.InDelta(t, 1150, d, 20)
}

func TestNearest(t *testing.T) {
	r := NewResolver(testKB())
	origin := kb.Coordinate{Latitude: 28.6139, Longitude: 77.2090}

	t.Run("sorted ascending and capped at n", func(t *testing.T) {
		ranked := r.Nearest(origin, 2)
		require.Len(t, ranked, 2)
		assert.Equal(t, "S1", ranked[0].Shelter.ID)
		assert.Equal(t, "S2", ranked[1].Shelter.ID)
		assert.LessOrEqual(t, ranked[0].DistanceKm, ranked[1].DistanceKm)
	})

	t.Run("own coordinate ranks first at distance zero", func(t *testing.T) {
		ranked := r.Nearest(origin, 1)
		require.Len(t, ranked, 1)
		assert.Equal(t, "S1", ranked[0].Shelter.ID)
		assert.InDelta(t, 0.0, ranked[0].DistanceKm, 1e-6)
	})

	t.Run("n larger than dataset returns everything", func(t *testing.T) {
		ranked := r.Nearest(origin, 10)
		assert.Len(t, ranked, 3)
	})

	t.Run("empty shelter set yields empty result", func(t *testing.T) {
		empty := NewResolver(&kb.KB{})
		assert.Empty(t, empty.Nearest(origin, 3))
	})

	t.Run("non-positive n yields empty result", func(t *testing.T) {
		assert.Empty(t, r.Nearest(origin, 0))
	})
}

func TestNearestTieBreakByID(t *testing.T) {
	base := &kb.KB{
		Shelters: []kb.ShelterRecord{
			{ID: "B", Name: "Second", Latitude: 10, Longitude: 10},
			{ID: "A", Name: "First", Latitude: 10, Longitude: 10},
		},
	}
	r := NewResolver(base)

	ranked := r.Nearest(kb.Coordinate{Latitude: 11, Longitude: 11}, 2)
	require.Len(t, ranked, 2)
	assert.Equal(t, "A", ranked[0].Shelter.ID)
	assert.Equal(t, "B", ranked[1].Shelter.ID)
}

func TestResolve(t *testing.T) {
	r := NewResolver(testKB())

	c, err := r.Resolve("New Delhi")
	require.NoError(t, err)
	assert.InDelta(t, 28.6139, c.Latitude, 1e-9)

	_, err = r.Resolve("atlantis")
	var lnf *LocationNotFoundError
	require.ErrorAs(t, err, &lnf)
	assert.Equal(t, "atlantis", lnf.Name)
}

func TestNearestNamed(t *testing.T) {
	r := NewResolver(testKB())

	ranked, err := r.NearestNamed("india gate", 1)
	require.NoError(t, err)
	require.Len(t, ranked, 1)

	_, err = r.NearestNamed("atlantis", 1)
	assert.Error(t, err)
}

func TestLocateInText(t *testing.T) {
	r := NewResolver(testKB())

	t.Run("embedded coordinate wins", func(t *testing.T) {
		c, ok, err := r.LocateInText("I am at 28.6139, 77.2090 right now")
		require.NoError(t, err)
		require.True(t, ok)
		assert.InDelta(t, 28.6139, c.Latitude, 1e-9)
		assert.InDelta(t, 77.2090, c.Longitude, 1e-9)
	})

	t.Run("known location name", func(t *testing.T) {
		c, ok, err := r.LocateInText("need a shelter, I'm close to India Gate")
		require.NoError(t, err)
		require.True(t, ok)
		assert.InDelta(t, 28.6129, c.Latitude, 1e-9)
	})

	t.Run("unknown place after near", func(t *testing.T) {
		_, ok, err := r.LocateInText("shelter near atlantis")
		assert.False(t, ok)
		var lnf *LocationNotFoundError
		require.ErrorAs(t, err, &lnf)
		assert.Equal(t, "atlantis", lnf.Name)
	})

	t.Run("near me names no place", func(t *testing.T) {
		for _, text := range []string{"shelter near me", "shelter near here", "somewhere near my house"} {
			_, ok, err := r.LocateInText(text)
			require.NoError(t, err, "text %q", text)
			assert.False(t, ok, "text %q", text)
		}
	})

	t.Run("article before the place name is dropped", func(t *testing.T) {
		_, ok, err := r.LocateInText("shelter near the atlantis")
		assert.False(t, ok)
		var lnf *LocationNotFoundError
		require.ErrorAs(t, err, &lnf)
		assert.Equal(t, "atlantis", lnf.Name)
	})

	t.Run("no location mentioned", func(t *testing.T) {
		_, ok, err := r.LocateInText("medical emergency")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestParseCoordinate(t *testing.T) {
	c, ok := ParseCoordinate("28.6139, 77.2090")
	require.True(t, ok)
	assert.InDelta(t, 28.6139, c.Latitude, 1e-9)

	_, ok = ParseCoordinate("no numbers here")
	assert.False(t, ok)

	// Out of range pairs are rejected, not clamped.
	_, ok = ParseCoordinate("95.0, 10.0")
	assert.False(t, ok)
}

func TestFormatDistance(t *testing.T) {
	assert.Equal(t, "500 meters", FormatDistance(0.5))
	assert.Equal(t, "1.2 km", FormatDistance(1.2))
	assert.Equal(t, "9.9 km", FormatDistance(9.94))
	assert.Equal(t, "23 km", FormatDistance(23.4))
}
