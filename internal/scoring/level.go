package scoring

// Level buckets an overall score for presentation.
type Level string

const (
	LevelExceptional  Level = "exceptional"
	LevelStrong       Level = "strong"
	LevelGood         Level = "good"
	LevelAverage      Level = "average"
	LevelBelowAverage Level = "below_average"
	LevelPoor         Level = "poor"
)

// LevelForScore maps an overall score to its level. A nil score reads as poor.
func LevelForScore(score *int) Level {
	if score == nil {
		return LevelPoor
	}
	switch {
	case *score >= 90:
		return LevelExceptional
	case *score >= 80:
		return LevelStrong
	case *score >= 70:
		return LevelGood
	case *score >= 60:
		return LevelAverage
	case *score >= 50:
		return LevelBelowAverage
	default:
		return LevelPoor
	}
}

// Label returns the human-readable name for a level.
func (l Level) Label() string {
	switch l {
	case LevelExceptional:
		return "Exceptional"
	case LevelStrong:
		return "Strong"
	case LevelGood:
		return "Good"
	case LevelAverage:
		return "Average"
	case LevelBelowAverage:
		return "Below Average"
	default:
		return "Needs Work"
	}
}

// Description returns the one-line explanation shown on full reports.
func (l Level) Description() string {
	switch l {
	case LevelExceptional:
		return "Top-tier profile that stands out to recruiters"
	case LevelStrong:
		return "Well-maintained profile with good presence"
	case LevelGood:
		return "Solid profile with room for improvement"
	case LevelAverage:
		return "Standard profile, needs attention"
	case LevelBelowAverage:
		return "Profile needs significant improvements"
	default:
		return "Major issues that could hurt job prospects"
	}
}

// Color returns the hex color used by report rendering.
func (l Level) Color() string {
	switch l {
	case LevelExceptional:
		return "#22c55e"
	case LevelStrong:
		return "#84cc16"
	case LevelGood:
		return "#eab308"
	case LevelAverage:
		return "#f97316"
	case LevelBelowAverage:
		return "#ef4444"
	default:
		return "#dc2626"
	}
}
