// Package scoring computes category and overall scores from AI analysis
// output. Everything here is pure and deterministic.
package scoring

// Category names as they appear in the AI response.
const (
	CategoryProfileCompleteness     = "profile_completeness"
	CategoryProjectQuality          = "project_quality"
	CategoryContributionConsistency = "contribution_consistency"
	CategoryTechnicalSignals        = "technical_signals"
	CategoryCommunityEngagement     = "community_engagement"
)

// weights are percentages summing to 100, so the weighted sum stays exact
// in integer arithmetic. Project quality carries the most weight.
var weights = map[string]int{
	CategoryProfileCompleteness:     15,
	CategoryProjectQuality:          30,
	CategoryContributionConsistency: 20,
	CategoryTechnicalSignals:        20,
	CategoryCommunityEngagement:     15,
}

// CategoryScores holds the five per-category scores extracted from an
// analysis result.
type CategoryScores struct {
	Profile     int `json:"profile"`
	Projects    int `json:"projects"`
	Consistency int `json:"consistency"`
	Technical   int `json:"technical"`
	Community   int `json:"community"`
}

// OverallScore returns the weighted overall score rounded half away from
// zero. Categories missing from the input contribute 0.
func OverallScore(categories map[string]map[string]any) int {
	var sum int
	for category, weight := range weights {
		sum += categoryScore(categories, category) * weight
	}
	return roundHundredths(sum)
}

// roundHundredths rounds sum/100 half away from zero without going through
// floating point.
func roundHundredths(sum int) int {
	if sum < 0 {
		return -((-sum + 50) / 100)
	}
	return (sum + 50) / 100
}

// ExtractCategoryScores returns the five per-category scores, defaulting to
// 0 for categories absent from the input.
func ExtractCategoryScores(categories map[string]map[string]any) CategoryScores {
	return CategoryScores{
		Profile:     categoryScore(categories, CategoryProfileCompleteness),
		Projects:    categoryScore(categories, CategoryProjectQuality),
		Consistency: categoryScore(categories, CategoryContributionConsistency),
		Technical:   categoryScore(categories, CategoryTechnicalSignals),
		Community:   categoryScore(categories, CategoryCommunityEngagement),
	}
}

func categoryScore(categories map[string]map[string]any, key string) int {
	category, ok := categories[key]
	if !ok {
		return 0
	}
	return numericScore(category["score"])
}

// numericScore coerces the loosely-typed score field to an int. Non-numeric
// values read as 0.
func numericScore(raw any) int {
	switch v := raw.(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}

// Normalize clamps a score into [0,100].
func Normalize(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Trend compares the mean of the last three overall scores against the first
// recorded score. A swing of more than five points either way counts as a
// trend; fewer than two data points read as stable.
func Trend(history []int) string {
	if len(history) < 2 {
		return "stable"
	}
	recent := history
	if len(recent) > 3 {
		recent = recent[len(recent)-3:]
	}
	var sum int
	for _, score := range recent {
		sum += score
	}
	average := float64(sum) / float64(len(recent))
	change := average - float64(history[0])
	switch {
	case change > 5:
		return "improving"
	case change < -5:
		return "declining"
	default:
		return "stable"
	}
}
