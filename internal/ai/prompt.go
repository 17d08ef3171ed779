package ai

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"gitscore-backend/internal/github"
)

//go:embed prompts/system.txt
var systemPrompt string

const profileReadmeMaxChars = 2000

// SystemPrompt returns the recruiter persona and response schema instructions.
func SystemPrompt() string {
	return systemPrompt
}

// BuildUserPrompt renders the profile snapshot into the analysis prompt.
func BuildUserPrompt(snapshot github.Snapshot) (string, error) {
	user := snapshot.User

	profile := map[string]any{
		"username":         user.Login,
		"name":             user.Name,
		"bio":              user.Bio,
		"location":         user.Location,
		"blog":             user.Blog,
		"company":          user.Company,
		"twitter":          user.TwitterUsername,
		"public_repos":     user.PublicRepos,
		"followers":        user.Followers,
		"following":        user.Following,
		"account_age_days": accountAgeDays(user.CreatedAt, snapshot.FetchedAt),
	}
	profileJSON, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return "", err
	}

	repos := make([]map[string]any, 0, len(snapshot.Repositories))
	for _, repo := range snapshot.Repositories {
		readmeLength := 0
		if repo.Readme != nil {
			readmeLength = len(*repo.Readme)
		}
		repos = append(repos, map[string]any{
			"name":          repo.Name,
			"description":   repo.Description,
			"language":      repo.Language,
			"stars":         repo.StargazersCount,
			"forks":         repo.ForksCount,
			"topics":        repo.Topics,
			"has_readme":    repo.Readme != nil,
			"readme_length": readmeLength,
			"last_pushed":   repo.PushedAt.Format(time.RFC3339),
		})
	}
	reposJSON, err := json.MarshalIndent(repos, "", "  ")
	if err != nil {
		return "", err
	}

	readme := "No profile README found"
	if snapshot.ProfileReadme != nil && *snapshot.ProfileReadme != "" {
		readme = truncateRunesPrompt(*snapshot.ProfileReadme, profileReadmeMaxChars)
	}

	return fmt.Sprintf(`Analyze this GitHub profile:

Username: %s

Profile Data:
%s

Repositories (top by stars and recent activity):
%s

Profile README:
%s

Provide your analysis in the exact JSON format specified in the system prompt.`,
		user.Login, profileJSON, reposJSON, readme), nil
}

func accountAgeDays(createdAt, now time.Time) int {
	if createdAt.IsZero() {
		return 0
	}
	days := int(now.Sub(createdAt).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

func truncateRunesPrompt(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
