package alert

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"rakshak/internal/intent"
	"rakshak/internal/kb"
	"rakshak/internal/respond"
)

// Dispatcher simulates SMS alerts to emergency contacts. There is no real
// network dispatch in the engine; alerts go to the structured log only.
type Dispatcher struct {
	log      *slog.Logger
	enabled  bool
	contacts []string
	now      func() time.Time
}

func NewDispatcher(log *slog.Logger, enabled bool, contacts []string) *Dispatcher {
	return &Dispatcher{
		log:      log,
		enabled:  enabled,
		contacts: contacts,
		now:      time.Now,
	}
}

// Send emits one simulated alert and returns its generated id, or "" when
// dispatch is disabled or the category warrants no alert.
func (d *Dispatcher) Send(cat intent.Category, message string, at kb.Coordinate) string {
	if !d.enabled || message == "" {
		return ""
	}

	id := "EMG-" + uuid.NewString()
	d.log.Info("Simulated SMS alert",
		"id", id,
		"category", cat.String(),
		"severity", string(respond.CategorySeverity(cat)),
		"message", message,
		"time", d.now().Format("2006-01-02 15:04:05"),
		"location", fmt.Sprintf("Lat: %.4f, Lon: %.4f", at.Latitude, at.Longitude),
		"contacts", len(d.contacts),
	)
	return id
}

// MessageFor is the per-category alert line. Categories that trigger no
// alert return "".
func MessageFor(cat intent.Category, shelterName string) string {
	switch cat {
	case intent.GeneralHelp:
		return "General emergency assistance requested"
	case intent.ShelterRequest:
		if shelterName == "" {
			return "Shelter information requested"
		}
		return "Shelter information sent: " + shelterName
	case intent.Medical:
		return "Medical emergency - immediate assistance needed"
	case intent.Fire:
		return "Fire emergency - evacuation required"
	case intent.Flood:
		return "Flood emergency - move to higher ground"
	case intent.Earthquake:
		return "Earthquake detected - following safety protocols"
	}
	return ""
}
