package analyses

import "time"

// Analysis is one profile analysis job, addressed externally by UUID.
type Analysis struct {
	ID               int64          `json:"-"`
	UUID             string         `json:"id"`
	Username         string         `json:"username"`
	Status           Status         `json:"status"`
	OverallScore     *int           `json:"overallScore"`
	ProfileScore     *int           `json:"profileScore"`
	ProjectsScore    *int           `json:"projectsScore"`
	ConsistencyScore *int           `json:"consistencyScore"`
	TechnicalScore   *int           `json:"technicalScore"`
	CommunityScore   *int           `json:"communityScore"`
	GitHubData       map[string]any `json:"githubData,omitempty"`
	AIAnalysis       map[string]any `json:"aiAnalysis,omitempty"`
	IsPaid           bool           `json:"isPaid"`
	PaymentReference *string        `json:"paymentReference,omitempty"`
	PaidAt           *time.Time     `json:"paidAt,omitempty"`
	IPAddress        *string        `json:"-"`
	ErrorMessage     *string        `json:"errorMessage,omitempty"`
	CompletedAt      *time.Time     `json:"completedAt,omitempty"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
}

// CompletionResult is everything MarkCompleted writes in one shot.
type CompletionResult struct {
	OverallScore     int
	ProfileScore     int
	ProjectsScore    int
	ConsistencyScore int
	TechnicalScore   int
	CommunityScore   int
	AIAnalysis       map[string]any
}

// aiField reads a key out of the stored AI document, tolerating absence.
func (a Analysis) aiField(key string) any {
	if a.AIAnalysis == nil {
		return nil
	}
	return a.AIAnalysis[key]
}

// DealBreakers returns the stored deal breaker list, never nil.
func (a Analysis) DealBreakers() []any {
	if list, ok := a.aiField("deal_breakers").([]any); ok {
		return list
	}
	return []any{}
}

// Strengths returns the stored strengths list, never nil.
func (a Analysis) Strengths() []any {
	if list, ok := a.aiField("strengths").([]any); ok {
		return list
	}
	return []any{}
}

// ImprovementChecklist returns the stored checklist, never nil.
func (a Analysis) ImprovementChecklist() []any {
	if list, ok := a.aiField("improvement_checklist").([]any); ok {
		return list
	}
	return []any{}
}
