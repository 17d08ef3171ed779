package github

import (
	"context"
	"encoding/base64"
	"sort"
	"time"

	"gitscore-backend/internal/shared/telemetry"
)

const (
	cacheTTL       = time.Hour
	reposPerPage   = 30
	rankedRepoMax  = 15
	readmeRepoMax  = 6
	readmeMaxChars = 3000
	recentPushDays = 90
	recentPushBump = 10
)

// Fetcher retrieves and normalizes profile data, caching snapshots per
// username.
type Fetcher struct {
	Client Client
	Cache  Cache
	now    func() time.Time
}

// NewFetcher constructs a Fetcher. Cache may be nil to disable caching.
func NewFetcher(client Client, cache Cache) *Fetcher {
	return &Fetcher{
		Client: client,
		Cache:  cache,
		now:    time.Now,
	}
}

// Fetch returns the profile snapshot for a username, serving from cache when
// a fresh entry exists. Only core-profile failures (not found, rate limited,
// transport) are fatal; README and activity sub-fetches degrade silently.
func (f *Fetcher) Fetch(ctx context.Context, username string) (Snapshot, error) {
	key := "github:profile:" + username
	if f.Cache != nil {
		if snapshot, ok, err := f.Cache.Get(ctx, key); err == nil && ok {
			return snapshot, nil
		} else if err != nil {
			telemetry.Error("github.cache.get_failed", map[string]any{
				"username": username,
				"error":    err.Error(),
			})
		}
	}

	snapshot, err := f.fetch(ctx, username)
	if err != nil {
		return Snapshot{}, err
	}

	if f.Cache != nil {
		if err := f.Cache.Set(ctx, key, snapshot, cacheTTL); err != nil {
			telemetry.Error("github.cache.set_failed", map[string]any{
				"username": username,
				"error":    err.Error(),
			})
		}
	}
	return snapshot, nil
}

func (f *Fetcher) fetch(ctx context.Context, username string) (Snapshot, error) {
	userData, err := f.Client.GetUser(ctx, username)
	if err != nil {
		return Snapshot{}, err
	}

	reposData, err := f.Client.GetRepositories(ctx, username, reposPerPage, "pushed")
	if err != nil {
		return Snapshot{}, err
	}

	repos := f.rankRepositories(reposData)
	for i := range repos {
		if i >= readmeRepoMax {
			break
		}
		if readme := f.fetchReadme(ctx, username, repos[i].Name); readme != nil {
			repos[i].Readme = readme
		}
	}

	// A profile README lives in the repository named after the user.
	profileReadme := f.fetchReadme(ctx, username, username)

	events, err := f.Client.GetPublicEvents(ctx, username)
	if err != nil {
		events = nil
	}

	return Snapshot{
		User:          parseUser(userData, username),
		Repositories:  repos,
		ProfileReadme: profileReadme,
		Events:        events,
		FetchedAt:     f.now().UTC(),
	}, nil
}

// rankRepositories drops forks, orders by stars*2 plus a recent-push bonus
// (stable, so ties keep API order), and keeps the top repositories.
func (f *Fetcher) rankRepositories(raw []map[string]any) []Repository {
	cutoff := f.now().AddDate(0, 0, -recentPushDays)

	candidates := make([]Repository, 0, len(raw))
	for _, item := range raw {
		repo := parseRepository(item)
		if repo.IsFork || repo.Name == "" {
			continue
		}
		candidates = append(candidates, repo)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return rankScore(candidates[i], cutoff) > rankScore(candidates[j], cutoff)
	})

	if len(candidates) > rankedRepoMax {
		candidates = candidates[:rankedRepoMax]
	}
	return candidates
}

func rankScore(repo Repository, recentCutoff time.Time) int {
	score := repo.StargazersCount * 2
	if repo.PushedAt.After(recentCutoff) {
		score += recentPushBump
	}
	return score
}

// fetchReadme decodes and truncates a repository README. Absence is not an
// error.
func (f *Fetcher) fetchReadme(ctx context.Context, owner, repo string) *string {
	encoded, err := f.Client.GetReadme(ctx, owner, repo)
	if err != nil {
		return nil
	}
	decoded, err := base64.StdEncoding.DecodeString(stripNewlines(encoded))
	if err != nil {
		return nil
	}
	text := truncateRunes(string(decoded), readmeMaxChars)
	return &text
}

func stripNewlines(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' || s[i] == '\r' {
			continue
		}
		out = append(out, s[i])
	}
	return string(out)
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

func parseUser(data map[string]any, fallbackLogin string) User {
	login := getString(data, "login")
	if login == "" {
		login = fallbackLogin
	}
	return User{
		Login:           login,
		Name:            getStringPtr(data, "name"),
		Bio:             getStringPtr(data, "bio"),
		AvatarURL:       getStringPtr(data, "avatar_url"),
		Location:        getStringPtr(data, "location"),
		Blog:            getStringPtr(data, "blog"),
		Company:         getStringPtr(data, "company"),
		TwitterUsername: getStringPtr(data, "twitter_username"),
		PublicRepos:     getInt(data, "public_repos"),
		Followers:       getInt(data, "followers"),
		Following:       getInt(data, "following"),
		CreatedAt:       getTime(data, "created_at"),
	}
}

func parseRepository(data map[string]any) Repository {
	var license *string
	if rawLicense, ok := data["license"].(map[string]any); ok {
		license = getStringPtr(rawLicense, "name")
	}

	var topics []string
	if rawTopics, ok := data["topics"].([]any); ok {
		for _, topic := range rawTopics {
			if s, ok := topic.(string); ok {
				topics = append(topics, s)
			}
		}
	}

	isFork, _ := data["fork"].(bool)

	return Repository{
		Name:            getString(data, "name"),
		Description:     getStringPtr(data, "description"),
		Language:        getStringPtr(data, "language"),
		StargazersCount: getInt(data, "stargazers_count"),
		ForksCount:      getInt(data, "forks_count"),
		OpenIssuesCount: getInt(data, "open_issues_count"),
		CreatedAt:       getTime(data, "created_at"),
		UpdatedAt:       getTime(data, "updated_at"),
		PushedAt:        getTime(data, "pushed_at"),
		Topics:          topics,
		License:         license,
		IsFork:          isFork,
	}
}

func getString(data map[string]any, key string) string {
	if s, ok := data[key].(string); ok {
		return s
	}
	return ""
}

func getStringPtr(data map[string]any, key string) *string {
	if s, ok := data[key].(string); ok && s != "" {
		return &s
	}
	return nil
}

func getInt(data map[string]any, key string) int {
	switch v := data[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

func getTime(data map[string]any, key string) time.Time {
	raw, ok := data[key].(string)
	if !ok {
		return time.Time{}
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return parsed
}
