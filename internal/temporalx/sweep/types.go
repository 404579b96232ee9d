package sweep

import "time"

const (
	WorkflowName        = "learner_sweep"
	ActivityListUsers   = "learner_sweep_list_users"
	ActivityRefreshUser = "learner_sweep_refresh_user"
)

type Input struct {
	// Now pins the evaluation day; zero uses the workflow clock.
	Now time.Time `json:"now,omitempty"`
	// ActiveWithinDays limits the sweep to recently active users; 0 sweeps everyone.
	ActiveWithinDays int `json:"active_within_days,omitempty"`
	// Parallelism caps in-flight refresh activities.
	Parallelism int `json:"parallelism,omitempty"`
	// PageSize is how many users one list call returns.
	PageSize int `json:"page_size,omitempty"`
	// MaxPagesPerRun bounds a single run before it continues as new.
	MaxPagesPerRun int `json:"max_pages_per_run,omitempty"`

	// Cursor is the last user id already swept; set on continuation.
	Cursor string `json:"cursor,omitempty"`
	// Carry holds the totals of earlier runs of the same sweep.
	Carry *Result `json:"carry,omitempty"`
}

type ListUsersInput struct {
	Since *time.Time `json:"since,omitempty"`
	// After and Limit page through users in id order; Limit 0 returns all.
	After string `json:"after,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

type RefreshUserInput struct {
	UserID string    `json:"user_id"`
	Now    time.Time `json:"now"`
}

type RefreshUserResult struct {
	UserID      string `json:"user_id"`
	Grade       string `json:"grade"`
	Degraded    bool   `json:"degraded"`
	Suggestions int    `json:"suggestions"`
}

// MaxErrorSamples caps Result.Errors; Failed keeps the full count.
const MaxErrorSamples = 50

type Result struct {
	Users       int `json:"users"`
	Succeeded   int `json:"succeeded"`
	Failed      int `json:"failed"`
	Suggestions int `json:"suggestions"`
	// Errors samples failed users, at most MaxErrorSamples of them.
	Errors map[string]string `json:"errors,omitempty"`
	Runs   int               `json:"runs"`
}

func (r *Result) recordFailure(userID string, err error) {
	r.Failed++
	if len(r.Errors) >= MaxErrorSamples {
		return
	}
	if r.Errors == nil {
		r.Errors = map[string]string{}
	}
	r.Errors[userID] = err.Error()
}
