package ranker

import (
	"context"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venari/internal/common"
	"github.com/ternarybob/venari/internal/interfaces"
	"github.com/ternarybob/venari/internal/models"
)

// Service scores persisted jobs against the user profile. One LLM call
// per job, bounded parallelism, and a per-call timeout. Ranker
// failures degrade to a neutral annotation; they never fail a crawl.
type Service struct {
	llm       interfaces.LLMClient
	jobs      interfaces.JobStorage
	telemetry interfaces.TelemetrySink
	config    *common.RankerConfig
	logger    arbor.ILogger
}

// NewService creates a ranker over the LLM client and job store
func NewService(llm interfaces.LLMClient, jobs interfaces.JobStorage, telemetry interfaces.TelemetrySink, config *common.RankerConfig, logger arbor.ILogger) *Service {
	return &Service{
		llm:       llm,
		jobs:      jobs,
		telemetry: telemetry,
		config:    config,
		logger:    logger,
	}
}

// RankAll drains the job id channel, scoring each job against the
// profile snapshot. Returns when the channel closes or the context is
// cancelled. With zero jobs no LLM call is made.
func (s *Service) RankAll(ctx context.Context, profile *models.UserProfile, jobIDs <-chan string) {
	sem := make(chan struct{}, s.config.Parallelism)
	var wg sync.WaitGroup

	for jobID := range jobIDs {
		select {
		case <-ctx.Done():
			// Drain remaining ids without scoring
			continue
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			defer func() { <-sem }()
			s.rankOne(ctx, profile, id)
		}(jobID)
	}

	wg.Wait()
}

// RankJob scores a single job immediately, outside a run
func (s *Service) RankJob(ctx context.Context, profile *models.UserProfile, jobID string) error {
	return s.rankOne(ctx, profile, jobID)
}

func (s *Service) rankOne(ctx context.Context, profile *models.UserProfile, jobID string) error {
	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		s.logger.Warn().Str("job_id", jobID).Err(err).Msg("Ranker could not load job")
		return err
	}

	annotation := s.score(ctx, profile, job)
	annotation.Clamp()

	if err := s.jobs.AnnotateJobAI(ctx, jobID, annotation); err != nil {
		s.logger.Warn().Str("job_id", jobID).Err(err).Msg("Failed to persist AI annotation")
		return err
	}
	return nil
}

// score runs one LLM call and maps the result to an annotation. Any
// failure yields the neutral annotation and bumps the error counter.
func (s *Service) score(ctx context.Context, profile *models.UserProfile, job *models.Job) models.AIAnnotation {
	if s.llm == nil {
		return neutralAnnotation()
	}
	s.telemetry.IncrRankerCalls()

	callCtx, cancel := context.WithTimeout(ctx, s.config.TimeoutDuration())
	defer cancel()

	start := time.Now()
	response, err := s.llm.Generate(callCtx, BuildPrompt(profile, job), interfaces.GenerateOptions{
		JSONOutput: true,
	})
	if err != nil {
		s.telemetry.IncrRankerErrors()
		s.logger.Warn().
			Str("job_id", job.ID).
			Err(err).
			Msg("Ranker LLM call failed, applying neutral annotation")
		return neutralAnnotation()
	}

	parsed, err := ParseResponse(response)
	if err != nil {
		s.telemetry.IncrRankerErrors()
		s.logger.Warn().
			Str("job_id", job.ID).
			Err(err).
			Msg("Ranker response malformed, applying neutral annotation")
		return neutralAnnotation()
	}

	score := parsed.Score
	recommended := parsed.Recommended
	// Single policy: the threshold wins over the model's own flag
	if score < s.config.RecommendThreshold {
		recommended = false
	}

	annotation := models.AIAnnotation{
		MatchScore:      &score,
		Recommended:     recommended,
		Summary:         parsed.Summary,
		Pros:            parsed.Pros,
		Cons:            parsed.Cons,
		MatchedKeywords: parsed.KeywordsMatched,
	}
	if recommended {
		now := time.Now()
		annotation.RecommendedOn = &now
	}

	s.logger.Debug().
		Str("job_id", job.ID).
		Int("score", score).
		Bool("recommended", recommended).
		Dur("duration", time.Since(start)).
		Msg("Job ranked")
	return annotation
}

func neutralAnnotation() models.AIAnnotation {
	return models.AIAnnotation{
		MatchScore:  nil,
		Recommended: false,
		Summary:     "unavailable",
	}
}
