package risk

import (
	"fmt"
	"strings"
)

// Shared cut points for every model. Boundaries are closed-above.
const (
	HighThreshold     = 0.8
	ModerateThreshold = 0.5
)

type Severity int

const (
	Low Severity = iota
	Moderate
	High
)

// Tiers lists severities in display order.
func Tiers() []Severity {
	return []Severity{Low, Moderate, High}
}

// SeverityFor buckets a positive-class probability.
func SeverityFor(p float64) Severity {
	switch {
	case p >= HighThreshold:
		return High
	case p >= ModerateThreshold:
		return Moderate
	default:
		return Low
	}
}

func (s Severity) String() string {
	switch s {
	case High:
		return "High Risk"
	case Moderate:
		return "Moderate Risk"
	default:
		return "Low Risk"
	}
}

// Tier is the short name used in metrics and storage.
func (s Severity) Tier() string {
	switch s {
	case High:
		return "high"
	case Moderate:
		return "moderate"
	default:
		return "low"
	}
}

// Color is the card colour used by the reports.
func (s Severity) Color() string {
	switch s {
	case High:
		return "red"
	case Moderate:
		return "orange"
	default:
		return "green"
	}
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(b []byte) error {
	parsed, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSeverity accepts either the display form ("High Risk") or the tier ("high").
func ParseSeverity(v string) (Severity, error) {
	key := strings.ToLower(strings.TrimSpace(v))
	key = strings.TrimSuffix(key, " risk")
	switch key {
	case "low":
		return Low, nil
	case "moderate":
		return Moderate, nil
	case "high":
		return High, nil
	}
	return Low, fmt.Errorf("unknown severity %q", v)
}
