package budget

// Thresholds holds the spend fractions at which a bucket changes zone.
// Invariant: 0 <= Yellow < Orange < Red <= 1.0. Red is conventionally 1.0,
// full exhaustion.
type Thresholds struct {
	Yellow float64 `yaml:"yellow"`
	Orange float64 `yaml:"orange"`
	Red    float64 `yaml:"red"`
}

// validate checks the monotonicity invariant.
func (t Thresholds) validate(field string) []FieldError {
	var errs []FieldError
	if t.Yellow < 0 {
		errs = append(errs, FieldError{field, "yellow threshold must be >= 0"})
	}
	if t.Yellow >= t.Orange {
		errs = append(errs, FieldError{field, "yellow threshold must be below orange"})
	}
	if t.Orange >= t.Red {
		errs = append(errs, FieldError{field, "orange threshold must be below red"})
	}
	if t.Red > 1.0 {
		errs = append(errs, FieldError{field, "red threshold must be <= 1.0"})
	}
	return errs
}

// ClassifyZone maps a spent fraction to a zone: below yellow is green,
// [yellow, orange) is yellow, [orange, red) is orange, and everything at
// or past red is red. Report-only deficits produce fractions above 1.0,
// which are still red.
//
// ClassifyZone is a pure function.
func ClassifyZone(spentFraction float64, t Thresholds) Zone {
	switch {
	case spentFraction >= t.Red:
		return ZoneRed
	case spentFraction >= t.Orange:
		return ZoneOrange
	case spentFraction >= t.Yellow:
		return ZoneYellow
	default:
		return ZoneGreen
	}
}

// WorstZone returns the maximum zone across statuses. Any bucket nearing
// exhaustion degrades the whole action.
func WorstZone(statuses []BucketStatus) Zone {
	worst := ZoneGreen
	for _, s := range statuses {
		if s.Zone > worst {
			worst = s.Zone
		}
	}
	return worst
}
