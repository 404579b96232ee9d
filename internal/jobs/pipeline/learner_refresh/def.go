package learner_refresh

import (
	"gorm.io/gorm"

	"github.com/yungbote/prepcoach-backend/internal/data/repos"
	"github.com/yungbote/prepcoach-backend/internal/modules/learning/coaching"
	"github.com/yungbote/prepcoach-backend/internal/observability"
	"github.com/yungbote/prepcoach-backend/internal/platform/logger"
)

// DefaultConcurrency bounds how many users a sweep refreshes at once.
const DefaultConcurrency = 4

type Repos struct {
	Attempts  repos.AttemptRepo
	Tests     repos.TestResultRepo
	Topics    repos.TopicMasteryRepo
	Subjects  repos.SubjectMasteryRepo
	Schedules repos.ReviewScheduleRepo
	Snapshots repos.PerformanceSnapshotRepo
	Grades    repos.StudentGradeRepo
}

func (r Repos) complete() bool {
	return r.Attempts != nil && r.Tests != nil && r.Topics != nil && r.Subjects != nil &&
		r.Schedules != nil && r.Snapshots != nil && r.Grades != nil
}

type Pipeline struct {
	db          *gorm.DB
	log         *logger.Logger
	repos       Repos
	engine      *coaching.Engine
	book        *coaching.RuleBook
	metrics     *observability.Metrics
	concurrency int
}

type Option func(*Pipeline)

// WithMetrics records stage timings and outcomes; a nil registry is fine.
func WithMetrics(m *observability.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

func WithConcurrency(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

func New(
	db *gorm.DB,
	baseLog *logger.Logger,
	r Repos,
	engine *coaching.Engine,
	book *coaching.RuleBook,
	opts ...Option,
) *Pipeline {
	p := &Pipeline{
		db:          db,
		log:         baseLog.With("job", "learner_refresh"),
		repos:       r,
		engine:      engine,
		book:        book,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pipeline) Type() string { return "learner_refresh" }
