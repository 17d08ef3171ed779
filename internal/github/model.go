package github

import "time"

// User holds the core profile attributes fetched from the user endpoint.
type User struct {
	Login           string    `json:"login"`
	Name            *string   `json:"name"`
	Bio             *string   `json:"bio"`
	AvatarURL       *string   `json:"avatarUrl"`
	Location        *string   `json:"location"`
	Blog            *string   `json:"blog"`
	Company         *string   `json:"company"`
	TwitterUsername *string   `json:"twitterUsername"`
	PublicRepos     int       `json:"publicRepos"`
	Followers       int       `json:"followers"`
	Following       int       `json:"following"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Repository is one owned repository after normalization.
type Repository struct {
	Name            string    `json:"name"`
	Description     *string   `json:"description"`
	Language        *string   `json:"language"`
	StargazersCount int       `json:"stargazersCount"`
	ForksCount      int       `json:"forksCount"`
	OpenIssuesCount int       `json:"openIssuesCount"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
	PushedAt        time.Time `json:"pushedAt"`
	Topics          []string  `json:"topics"`
	License         *string   `json:"license"`
	IsFork          bool      `json:"isFork"`
	// Readme is populated for the top-ranked repositories only, trimmed to
	// readmeMaxChars. Nil when the repository has no README.
	Readme *string `json:"readme,omitempty"`
}

// Snapshot combines everything the analysis pipeline needs about a profile.
type Snapshot struct {
	User          User             `json:"user"`
	Repositories  []Repository     `json:"repositories"`
	ProfileReadme *string          `json:"profileReadme,omitempty"`
	Events        []map[string]any `json:"events,omitempty"`
	FetchedAt     time.Time        `json:"fetchedAt"`
}
