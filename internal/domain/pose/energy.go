package pose

import (
	"strings"

	"github.com/turtacn/BlindDock/pkg/errors"
)

// EnergyUnit is the unit an engine reports its score in.
type EnergyUnit string

const (
	KcalPerMol EnergyUnit = "kcal/mol"
	KJPerMol   EnergyUnit = "kJ/mol"
)

const kJPerKcal = 4.184

// Convention describes how a parser's raw scores are expressed.
type Convention struct {
	Unit EnergyUnit
	// HigherIsBetter is set for engines that report favourable poses with
	// larger values (for example fitness scores).
	HigherIsBetter bool
}

// Canonical is kcal/mol with lower values more favourable.
var Canonical = Convention{Unit: KcalPerMol}

// ParseUnit accepts "kcal/mol", "kcal", "kj/mol" and "kj" in any case.
func ParseUnit(s string) (EnergyUnit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "kcal", "kcal/mol":
		return KcalPerMol, nil
	case "kj", "kj/mol":
		return KJPerMol, nil
	}
	return "", errors.InvalidParam("unknown energy unit").WithDetail(s)
}

// Normalize converts raw from c into the canonical convention.
func (c Convention) Normalize(raw float64) float64 {
	v := raw
	if c.Unit == KJPerMol {
		v /= kJPerKcal
	}
	if c.HigherIsBetter {
		v = -v
	}
	return v
}

//Personal.AI order the ending
