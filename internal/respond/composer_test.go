package respond

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rakshak/internal/geo"
	"rakshak/internal/intent"
	"rakshak/internal/kb"
)

var testShelter = kb.ShelterRecord{
	ID:        "S1",
	Name:      "Community Center",
	Address:   "123 Main Street",
	Latitude:  28.6139,
	Longitude: 77.2090,
	Capacity:  200,
	Contact:   "Emergency Hotline: 108",
}

func rankedShelters() []geo.Ranked {
	return []geo.Ranked{{Shelter: testShelter, DistanceKm: 1.2}}
}

func TestComposeMedical(t *testing.T) {
	c := NewComposer(Options{})

	p := c.Compose(Input{
		Category:      intent.Medical,
		Confidence:    1.0,
		Shelters:      rankedShelters(),
		LocationKnown: true,
	})

	assert.Equal(t, intent.Medical, p.Category)
	assert.Equal(t, SeverityHigh, p.Severity)
	assert.Contains(t, p.Text, "Medical emergency detected")
	assert.Contains(t, p.Text, "The nearest shelter is Community Center, 1.2 km away.")
	require.NotNil(t, p.Shelter)
	assert.Equal(t, "S1", p.Shelter.ID)
	require.NotNil(t, p.DistanceKm)
	assert.InDelta(t, 1.2, *p.DistanceKm, 1e-9)
}

func TestComposeFireWithoutShelter(t *testing.T) {
	c := NewComposer(Options{})

	p := c.Compose(Input{Category: intent.Fire, LocationKnown: true})

	assert.Equal(t, SeverityHigh, p.Severity)
	assert.Contains(t, p.Text, "Fire emergency detected")
	assert.Nil(t, p.Shelter)
	assert.Nil(t, p.DistanceKm)
}

func TestComposeShelterRequest(t *testing.T) {
	c := NewComposer(Options{})

	t.Run("lists nearest shelters", func(t *testing.T) {
		p := c.Compose(Input{
			Category:      intent.ShelterRequest,
			Shelters:      rankedShelters(),
			LocationKnown: true,
		})

		assert.Equal(t, SeverityMedium, p.Severity)
		assert.Contains(t, p.Text, "1. Community Center")
		assert.Contains(t, p.Text, "Distance: 1.2 km")
		assert.Contains(t, p.Text, "Capacity: 200 people")
		require.NotNil(t, p.Shelter)
		assert.Equal(t, "S1", p.Shelter.ID)
	})

	t.Run("no shelters known nearby", func(t *testing.T) {
		p := c.Compose(Input{Category: intent.ShelterRequest, LocationKnown: true})

		assert.Contains(t, p.Text, "I don't have shelter information available")
		assert.Nil(t, p.Shelter)
	})

	t.Run("location unknown branch", func(t *testing.T) {
		p := c.Compose(Input{Category: intent.ShelterRequest, LocationKnown: false})

		assert.Contains(t, p.Text, "couldn't determine that location")
		assert.Nil(t, p.Shelter)
	})
}

func TestComposeGeneralHelp(t *testing.T) {
	c := NewComposer(Options{})

	p := c.Compose(Input{Category: intent.GeneralHelp})

	assert.Equal(t, generalHelpText, p.Text)
	assert.Equal(t, SeverityLow, p.Severity)
	assert.Nil(t, p.Shelter)
}

func TestComposeExit(t *testing.T) {
	c := NewComposer(Options{})

	p := c.Compose(Input{Category: intent.Exit})

	assert.Equal(t, exitText, p.Text)
	assert.Equal(t, SeverityLow, p.Severity)
}

func TestComposeUnknown(t *testing.T) {
	t.Run("plain clarification", func(t *testing.T) {
		c := NewComposer(Options{})
		p := c.Compose(Input{Category: intent.Unknown})
		assert.Equal(t, unknownText, p.Text)
	})

	t.Run("suggestion surfaces when enabled", func(t *testing.T) {
		c := NewComposer(Options{SuggestOnLowConfidence: true})
		p := c.Compose(Input{Category: intent.Unknown, Suggestion: intent.Medical})
		assert.Contains(t, p.Text, "Did you mean a medical emergency?")
	})

	t.Run("suggestion suppressed when disabled", func(t *testing.T) {
		c := NewComposer(Options{SuggestOnLowConfidence: false})
		p := c.Compose(Input{Category: intent.Unknown, Suggestion: intent.Medical})
		assert.Equal(t, unknownText, p.Text)
	})
}

func TestComposeCopiesShelter(t *testing.T) {
	c := NewComposer(Options{})
	ranked := rankedShelters()

	p := c.Compose(Input{
		Category:      intent.ShelterRequest,
		Shelters:      ranked,
		LocationKnown: true,
	})

	require.NotNil(t, p.Shelter)
	p.Shelter.Name = "mutated"
	assert.Equal(t, "Community Center", ranked[0].Shelter.Name)
}

func TestComposeDeterministic(t *testing.T) {
	c := NewComposer(Options{SuggestOnLowConfidence: true})
	in := Input{
		Category:      intent.Medical,
		Confidence:    1.0,
		Shelters:      rankedShelters(),
		LocationKnown: true,
	}

	a, err := json.Marshal(c.Compose(in))
	require.NoError(t, err)
	b, err := json.Marshal(c.Compose(in))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEmergencyNumber(t *testing.T) {
	assert.Equal(t, "101", EmergencyNumber("fire"))
	assert.Equal(t, "108", EmergencyNumber("Ambulance"))
	assert.Equal(t, "112", EmergencyNumber("coast guard"))
}

func TestFallback(t *testing.T) {
	p := Fallback()
	assert.Equal(t, intent.Unknown, p.Category)
	assert.Contains(t, p.Text, "please repeat")
}
