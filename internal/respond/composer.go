package respond

import (
	"fmt"
	"strings"

	"rakshak/internal/geo"
	"rakshak/internal/intent"
	"rakshak/internal/kb"
)

type Severity string

const (
	SeverityHigh   Severity = "HIGH"
	SeverityMedium Severity = "MEDIUM"
	SeverityLow    Severity = "LOW"
)

// Emergency service dial codes (India). Unknown services fall back to the
// national emergency number.
var emergencyNumbers = map[string]string{
	"police":    "100",
	"fire":      "101",
	"ambulance": "108",
	"disaster":  "1070",
	"women":     "1091",
	"child":     "1098",
	"national":  "112",
}

func EmergencyNumber(service string) string {
	if n, ok := emergencyNumbers[strings.ToLower(service)]; ok {
		return n
	}
	return emergencyNumbers["national"]
}

// Payload is the engine's reply for one turn. Created fresh per request;
// the shelter record is a value copy, never a reference into the knowledge
// base.
type Payload struct {
	Text       string            `json:"text"`
	Category   intent.Category   `json:"category"`
	Severity   Severity          `json:"severity"`
	Shelter    *kb.ShelterRecord `json:"shelter,omitempty"`
	DistanceKm *float64          `json:"distance_km,omitempty"`
}

type Input struct {
	Category   intent.Category
	Confidence float64
	Suggestion intent.Category

	// Shelters is the resolver output, nearest first. Empty means no
	// shelter could be offered.
	Shelters []geo.Ranked

	// LocationKnown is false when the turn hit the "location unknown"
	// branch (unresolvable place name).
	LocationKnown bool
}

type Options struct {
	SuggestOnLowConfidence bool
}

type Composer struct {
	opts Options
}

func NewComposer(opts Options) *Composer {
	return &Composer{opts: opts}
}

func CategorySeverity(c intent.Category) Severity {
	switch c {
	case intent.Medical, intent.Fire, intent.Flood, intent.Earthquake:
		return SeverityHigh
	case intent.ShelterRequest:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Compose builds the reply payload. Every category is handled explicitly;
// adding a category without a template is a compile-time conversation
// dead-end, so the switch stays exhaustive.
func (c *Composer) Compose(in Input) Payload {
	p := Payload{
		Category: in.Category,
		Severity: CategorySeverity(in.Category),
	}

	switch in.Category {
	case intent.Medical:
		p.Text = medicalText
		c.attachNearest(&p, in)

	case intent.Fire:
		p.Text = fireText
		c.attachNearest(&p, in)

	case intent.Flood:
		p.Text = floodText
		c.attachNearest(&p, in)

	case intent.Earthquake:
		p.Text = earthquakeText
		c.attachNearest(&p, in)

	case intent.ShelterRequest:
		p.Text = c.shelterText(in)
		if len(in.Shelters) > 0 && in.LocationKnown {
			attachShelter(&p, in.Shelters[0])
		}

	case intent.GeneralHelp:
		p.Text = generalHelpText

	case intent.Exit:
		p.Text = exitText

	case intent.Unknown:
		p.Text = unknownText
		if c.opts.SuggestOnLowConfidence && in.Suggestion != intent.Unknown {
			p.Text = fmt.Sprintf("Did you mean a %s emergency? %s", in.Suggestion, unknownText)
		}
	}

	return p
}

// Fallback is the degraded reply for a turn that failed internally. The
// session must keep going, so this is always a valid payload.
func Fallback() Payload {
	return Payload{
		Text:     "I didn't understand, please repeat.",
		Category: intent.Unknown,
		Severity: SeverityLow,
	}
}

func (c *Composer) attachNearest(p *Payload, in Input) {
	if !in.LocationKnown {
		p.Text += " " + locationUnknownNote
		return
	}
	if len(in.Shelters) == 0 {
		return
	}
	top := in.Shelters[0]
	p.Text += fmt.Sprintf(" The nearest shelter is %s, %s away.",
		top.Shelter.Name, geo.FormatDistance(top.DistanceKm))
	attachShelter(p, top)
}

func attachShelter(p *Payload, r geo.Ranked) {
	shelter := r.Shelter
	dist := r.DistanceKm
	p.Shelter = &shelter
	p.DistanceKm = &dist
}

func (c *Composer) shelterText(in Input) string {
	if !in.LocationKnown {
		return "I couldn't determine that location. " +
			"Please tell me a known place name, or call emergency services at " +
			EmergencyNumber("ambulance") + "."
	}
	if len(in.Shelters) == 0 {
		return "I don't have shelter information available right now. " +
			"Please contact emergency services at " + EmergencyNumber("ambulance") + "."
	}

	var b strings.Builder
	b.WriteString("Here are the nearest emergency shelters:\n\n")
	for i, r := range in.Shelters {
		fmt.Fprintf(&b, "%d. %s\n", i+1, r.Shelter.Name)
		if r.Shelter.Address != "" {
			fmt.Fprintf(&b, "   Address: %s\n", r.Shelter.Address)
		}
		fmt.Fprintf(&b, "   Distance: %s\n", geo.FormatDistance(r.DistanceKm))
		if r.Shelter.Capacity > 0 {
			fmt.Fprintf(&b, "   Capacity: %d people\n", r.Shelter.Capacity)
		}
		if len(r.Shelter.Facilities) > 0 {
			fmt.Fprintf(&b, "   Facilities: %s\n", strings.Join(r.Shelter.Facilities, ", "))
		}
		if r.Shelter.Contact != "" {
			fmt.Fprintf(&b, "   Contact: %s\n", r.Shelter.Contact)
		}
		b.WriteString("\n")
	}
	b.WriteString("Stay safe and move to the nearest shelter if possible.")
	return b.String()
}

const (
	medicalText = "Medical emergency detected. " +
		"If someone is seriously injured, call emergency services immediately at 108. " +
		"For minor injuries: " +
		"1. Keep the person calm and still " +
		"2. Apply pressure to stop bleeding " +
		"3. Do not move someone with possible spinal injury " +
		"4. Check for breathing and pulse " +
		"The nearest medical facilities will be contacted."

	fireText = "Fire emergency detected. " +
		"Safety instructions: " +
		"1. Get out of the building immediately " +
		"2. Stay low to avoid smoke " +
		"3. Feel doors before opening them " +
		"4. Don't use elevators " +
		"5. Call fire department at 101 " +
		"6. Go to your designated meeting point " +
		"Emergency services are being notified."

	floodText = "Flood emergency detected. " +
		"Safety instructions: " +
		"1. Move to higher ground immediately " +
		"2. Avoid walking or driving through flood water " +
		"3. Stay away from electrical equipment " +
		"4. If trapped, signal for help from upper floors " +
		"5. Don't drink flood water " +
		"Emergency rescue teams are being alerted."

	earthquakeText = "Earthquake emergency detected. " +
		"If shaking continues: Drop, Cover, and Hold On. " +
		"After shaking stops: " +
		"1. Check for injuries " +
		"2. Look for hazards like gas leaks or structural damage " +
		"3. Exit carefully if building is damaged " +
		"4. Stay away from damaged structures " +
		"5. Be prepared for aftershocks " +
		"Emergency teams are being mobilized."

	generalHelpText = "I'm here to help you in this emergency. " +
		"I can help you find the nearest shelter, provide medical guidance, " +
		"or connect you with emergency services. " +
		"Say 'nearest shelter' to find safe places, " +
		"or 'medical emergency' if you need medical assistance."

	exitText = "Stay safe. Ending the emergency assistance session now. " +
		"For immediate help at any time, call emergency services at 112."

	unknownText = "I didn't recognize that emergency request. " +
		"You can say things like: " +
		"'I need help', 'nearest shelter', 'medical emergency', " +
		"'fire emergency', or 'earthquake'. " +
		"For immediate assistance, call emergency services at 108."

	locationUnknownNote = "I couldn't determine that location, " +
		"so I can't point you to the nearest shelter."
)
