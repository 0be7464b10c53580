package protocol

import "fmt"

// Urgency is the three-valued notification urgency enumeration.
type Urgency int

const (
	// UrgencyLow is the default urgency for a notify message.
	UrgencyLow Urgency = iota
	UrgencyNormal
	UrgencyCritical
)

// String returns the canonical lowercase name for u.
func (u Urgency) String() string {
	switch u {
	case UrgencyLow:
		return "low"
	case UrgencyNormal:
		return "normal"
	case UrgencyCritical:
		return "critical"
	default:
		return fmt.Sprintf("urgency(%d)", int(u))
	}
}

// ParseUrgency maps a canonical name back to an Urgency value.
func ParseUrgency(name string) (Urgency, error) {
	switch name {
	case "low":
		return UrgencyLow, nil
	case "normal":
		return UrgencyNormal, nil
	case "critical":
		return UrgencyCritical, nil
	default:
		return UrgencyLow, fmt.Errorf("protocol: unknown urgency name %q", name)
	}
}
