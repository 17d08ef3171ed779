package scoring

import "testing"

func cat(score any) map[string]any {
	return map[string]any{"score": score}
}

func TestOverallScoreWeightedExample(t *testing.T) {
	categories := map[string]map[string]any{
		CategoryProfileCompleteness:     cat(float64(80)),
		CategoryProjectQuality:          cat(float64(70)),
		CategoryContributionConsistency: cat(float64(60)),
		CategoryTechnicalSignals:        cat(float64(90)),
		CategoryCommunityEngagement:     cat(float64(50)),
	}

	// 80*0.15 + 70*0.30 + 60*0.20 + 90*0.20 + 50*0.15 = 71.5 -> 72
	if got := OverallScore(categories); got != 72 {
		t.Fatalf("expected overall 72, got %d", got)
	}
}

func TestOverallScoreMissingCategoriesDefaultToZero(t *testing.T) {
	categories := map[string]map[string]any{
		CategoryProfileCompleteness: cat(float64(80)),
	}

	if got := OverallScore(categories); got != 12 {
		t.Fatalf("expected overall 12, got %d", got)
	}
}

func TestOverallScoreEmptyInput(t *testing.T) {
	if got := OverallScore(nil); got != 0 {
		t.Fatalf("expected overall 0 for empty categories, got %d", got)
	}
	if got := OverallScore(map[string]map[string]any{}); got != 0 {
		t.Fatalf("expected overall 0 for empty map, got %d", got)
	}
}

func TestOverallScoreNonNumericScoreReadsAsZero(t *testing.T) {
	categories := map[string]map[string]any{
		CategoryProjectQuality: cat("eighty"),
	}
	if got := OverallScore(categories); got != 0 {
		t.Fatalf("expected overall 0 for non-numeric score, got %d", got)
	}
}

func TestOverallScoreStaysInRange(t *testing.T) {
	full := map[string]map[string]any{
		CategoryProfileCompleteness:     cat(float64(100)),
		CategoryProjectQuality:          cat(float64(100)),
		CategoryContributionConsistency: cat(float64(100)),
		CategoryTechnicalSignals:        cat(float64(100)),
		CategoryCommunityEngagement:     cat(float64(100)),
	}
	if got := OverallScore(full); got != 100 {
		t.Fatalf("expected overall 100, got %d", got)
	}
}

func TestExtractCategoryScores(t *testing.T) {
	categories := map[string]map[string]any{
		CategoryProfileCompleteness: cat(float64(55)),
		CategoryTechnicalSignals:    cat(float64(65)),
	}

	scores := ExtractCategoryScores(categories)
	if scores.Profile != 55 {
		t.Fatalf("expected profile 55, got %d", scores.Profile)
	}
	if scores.Technical != 65 {
		t.Fatalf("expected technical 65, got %d", scores.Technical)
	}
	if scores.Projects != 0 || scores.Consistency != 0 || scores.Community != 0 {
		t.Fatalf("expected missing categories to read 0, got %+v", scores)
	}
}

func TestNormalizeClampsAndIsIdempotent(t *testing.T) {
	cases := []struct {
		in, want int
	}{
		{-10, 0},
		{0, 0},
		{50, 50},
		{100, 100},
		{150, 100},
	}
	for _, tc := range cases {
		got := Normalize(tc.in)
		if got != tc.want {
			t.Fatalf("Normalize(%d): expected %d, got %d", tc.in, tc.want, got)
		}
		if again := Normalize(got); again != got {
			t.Fatalf("Normalize not idempotent at %d: %d != %d", tc.in, again, got)
		}
	}
}

func TestTrend(t *testing.T) {
	cases := []struct {
		name    string
		history []int
		want    string
	}{
		{"empty", nil, "stable"},
		{"single point", []int{70}, "stable"},
		{"improving", []int{50, 60, 70, 80}, "improving"},
		{"declining", []int{80, 60, 50, 40}, "declining"},
		{"flat", []int{70, 71, 69, 70}, "stable"},
		{"two points up", []int{50, 61}, "improving"},
		{"exactly five up is stable", []int{50, 60}, "stable"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Trend(tc.history); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestLevelForScore(t *testing.T) {
	score := func(v int) *int { return &v }
	cases := []struct {
		in   *int
		want Level
	}{
		{nil, LevelPoor},
		{score(95), LevelExceptional},
		{score(90), LevelExceptional},
		{score(85), LevelStrong},
		{score(72), LevelGood},
		{score(60), LevelAverage},
		{score(50), LevelBelowAverage},
		{score(10), LevelPoor},
	}
	for _, tc := range cases {
		if got := LevelForScore(tc.in); got != tc.want {
			t.Fatalf("expected %q, got %q", tc.want, got)
		}
	}
}
