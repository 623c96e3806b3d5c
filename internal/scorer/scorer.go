package scorer

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"job-scorer/internal/baseline"
	"job-scorer/internal/models"
	"job-scorer/internal/provider"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// fallbackThreshold is used when neither a per-account override nor a global
// default is available.
const fallbackThreshold = 0.6

// maxProviderCallsPerMinute bounds model invocations across a rate-limit
// window shared by all runs.
const maxProviderCallsPerMinute = 50

type Store interface {
	GetQueuedPostings(ctx context.Context, limit int) ([]models.Posting, error)
	ClaimPosting(ctx context.Context, postingID string) (bool, error)
	MarkPostingProcessed(ctx context.Context, postingID string) error
	MarkPostingError(ctx context.Context, postingID, message string) error
	HasProcessedDuplicate(ctx context.Context, contentHash, sourceURL string) (bool, error)
	GetLatestResumes(ctx context.Context) ([]models.Resume, error)
	GetDefaultThreshold(ctx context.Context) (*float64, error)
	GetThresholdOverrides(ctx context.Context, accountIDs []string) (map[string]float64, error)
	UpsertJobDescription(ctx context.Context, jd *models.JobDescription) (string, error)
	UpsertAnalysisProcessing(ctx context.Context, a *models.Analysis) (string, error)
	CompleteAnalysis(ctx context.Context, analysisID string, score int, keywordsFound, keywordsMissing []string, suggestions string, metadata models.RawJSON) error
	FailAnalysis(ctx context.Context, analysisID, message string) error
	UpsertNotification(ctx context.Context, n *models.Notification) (bool, error)
}

type Provider interface {
	Invoke(ctx context.Context, req provider.Request) (*provider.Response, error)
	Name() string
}

type BaselineBuilder interface {
	Build(ctx context.Context, accountID, resumeID string) (*baseline.Baseline, error)
}

type Locker interface {
	AcquireBatchLock(ctx context.Context, token string) (bool, error)
	ReleaseBatchLock(ctx context.Context) error
	IncrementProviderRateLimit(ctx context.Context) (int64, error)
	GetProviderRateLimit(ctx context.Context) (int64, error)
}

// Notifier delivers a freshly inserted notification out of band. Delivery is
// fire-and-forget; failures must never propagate into the batch.
type Notifier interface {
	Notify(ctx context.Context, n *models.Notification)
}

type Config struct {
	Models           []string
	Temperature      float64
	MaxOutputTokens  int
	MaxOutputRetries int
	BatchSize        int
	DefaultThreshold float64
}

// Scorer drives one bounded execution of the scoring batch: the cross
// product of queued postings × the latest baseline-eligible candidate per
// account. Pairs run sequentially; the workload is dominated by network
// latency and sequential execution avoids interleaved partial writes.
type Scorer struct {
	store     Store
	provider  Provider
	baselines BaselineBuilder
	locker    Locker
	notifier  Notifier // optional
	cfg       Config
	logger    *zap.Logger
}

func New(store Store, prov Provider, baselines BaselineBuilder, locker Locker, notifier Notifier, cfg Config, logger *zap.Logger) *Scorer {
	return &Scorer{
		store:     store,
		provider:  prov,
		baselines: baselines,
		locker:    locker,
		notifier:  notifier,
		cfg:       cfg,
		logger:    logger,
	}
}

// Result aggregates one batch run. FailedJobs counts postings that reached
// the error state; ProcessedJobs counts postings that reached processed.
type Result struct {
	RequestID              string
	ProcessedJobs          int
	ScoredAnalyses         int
	FailedJobs             int
	NotificationsTriggered int
	Duration               time.Duration
}

// Partial reports whether some postings failed while the run as a whole
// succeeded.
func (r *Result) Partial() bool {
	return r.FailedJobs > 0
}

type pairOutcome int

const (
	pairSkipped pairOutcome = iota
	pairScored
	pairFailed
)

// Run executes one batch. Postings are processed oldest-fetched-first; every
// failure below the posting level is isolated to its (posting, candidate)
// pair and never aborts the batch.
func (s *Scorer) Run(ctx context.Context) (*Result, error) {
	requestID := uuid.New().String()
	start := time.Now()
	log := s.logger.With(zap.String("request_id", requestID))
	result := &Result{RequestID: requestID}

	acquired, err := s.locker.AcquireBatchLock(ctx, requestID)
	if err != nil {
		// Idempotent upserts keep concurrent runs safe; prefer running over
		// blocking on an unavailable lock backend.
		log.Warn("batch lock unavailable, continuing without it", zap.Error(err))
	} else if !acquired {
		log.Info("another batch run holds the lock, nothing to do")
		result.Duration = time.Since(start)
		return result, nil
	}
	if acquired {
		defer func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.locker.ReleaseBatchLock(releaseCtx); err != nil {
				log.Warn("failed to release batch lock", zap.Error(err))
			}
		}()
	}

	postings, err := s.store.GetQueuedPostings(ctx, s.cfg.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("load queued postings: %w", err)
	}

	if len(postings) == 0 {
		log.Info("no queued postings")
		result.Duration = time.Since(start)
		return result, nil
	}

	resumes, err := s.store.GetLatestResumes(ctx)
	if err != nil {
		return nil, fmt.Errorf("load candidate resumes: %w", err)
	}

	defaultThreshold := s.resolveDefaultThreshold(ctx, log)
	overrides := s.loadThresholdOverrides(ctx, log, resumes)

	log.Info("starting batch scoring",
		zap.Int("postings", len(postings)),
		zap.Int("candidates", len(resumes)),
		zap.Float64("default_threshold", defaultThreshold),
	)

	for i := range postings {
		posting := &postings[i]

		claimed, err := s.store.ClaimPosting(ctx, posting.ID)
		if err != nil {
			log.Error("failed to claim posting",
				zap.String("posting_id", posting.ID),
				zap.Error(err),
			)
			continue
		}
		if !claimed {
			log.Debug("posting claimed by another run",
				zap.String("posting_id", posting.ID),
			)
			continue
		}

		s.processPosting(ctx, log, posting, resumes, defaultThreshold, overrides, result)
	}

	result.Duration = time.Since(start)

	log.Info("batch scoring finished",
		zap.Int("processed_jobs", result.ProcessedJobs),
		zap.Int("scored_analyses", result.ScoredAnalyses),
		zap.Int("failed_jobs", result.FailedJobs),
		zap.Int("notifications_triggered", result.NotificationsTriggered),
		zap.Duration("duration", result.Duration),
	)

	return result, nil
}

// processPosting attempts every eligible candidate against one posting and
// writes its terminal state: processed when at least one candidate scored or
// none were eligible, error only when all attempted candidates failed.
func (s *Scorer) processPosting(ctx context.Context, log *zap.Logger, posting *models.Posting, resumes []models.Resume, defaultThreshold float64, overrides map[string]float64, result *Result) {
	dup, err := s.store.HasProcessedDuplicate(ctx, posting.ContentHash, posting.SourceURL)
	if err == nil && dup {
		// Republished posting under a new URL: skip rather than rescore.
		log.Info("skipping posting with duplicate content",
			zap.String("posting_id", posting.ID),
			zap.String("content_hash", posting.ContentHash),
		)
		s.markProcessed(ctx, log, posting.ID)
		result.ProcessedJobs++
		return
	}

	if strings.TrimSpace(posting.Description) == "" {
		log.Warn("posting has an empty description, nothing to score",
			zap.String("posting_id", posting.ID),
		)
		s.markProcessed(ctx, log, posting.ID)
		result.ProcessedJobs++
		return
	}

	attempted := 0
	succeeded := 0
	lastErr := ""

	for i := range resumes {
		resume := &resumes[i]
		threshold := effectiveThreshold(overrides, resume.AccountID, defaultThreshold)

		outcome, err := s.scorePair(ctx, log, posting, resume, threshold, result)
		switch outcome {
		case pairSkipped:
			// Incomplete profile; not an attempt, not a failure.
		case pairScored:
			attempted++
			succeeded++
			result.ScoredAnalyses++
		case pairFailed:
			attempted++
			lastErr = err.Error()
			log.Warn("pair scoring failed",
				zap.String("posting_id", posting.ID),
				zap.String("account_id", resume.AccountID),
				zap.Error(err),
			)
		}
	}

	if attempted > 0 && succeeded == 0 {
		if err := s.store.MarkPostingError(ctx, posting.ID, lastErr); err != nil {
			log.Error("failed to mark posting errored",
				zap.String("posting_id", posting.ID),
				zap.Error(err),
			)
		}
		result.FailedJobs++
		return
	}

	s.markProcessed(ctx, log, posting.ID)
	result.ProcessedJobs++
}

// scorePair runs the full per-pair algorithm: baseline, job-description and
// analysis upserts, provider invocation with malformed-output retries,
// clamped persistence and threshold-gated notification.
func (s *Scorer) scorePair(ctx context.Context, log *zap.Logger, posting *models.Posting, resume *models.Resume, threshold float64, result *Result) (pairOutcome, error) {
	bl, err := s.baselines.Build(ctx, resume.AccountID, resume.ID)
	if err != nil {
		return pairFailed, fmt.Errorf("build baseline: %w", err)
	}
	if bl.Variant == baseline.VariantNone {
		return pairSkipped, nil
	}

	jdID, err := s.store.UpsertJobDescription(ctx, &models.JobDescription{
		AccountID: resume.AccountID,
		PostingID: posting.ID,
		Title:     posting.Title,
		Company:   posting.Company,
		Content:   posting.Description,
	})
	if err != nil {
		return pairFailed, fmt.Errorf("upsert job description: %w", err)
	}

	seedMeta, err := json.Marshal(map[string]interface{}{
		"request_id":       result.RequestID,
		"threshold":        threshold,
		"baseline_variant": bl.Variant,
	})
	if err != nil {
		return pairFailed, fmt.Errorf("marshal seed metadata: %w", err)
	}

	analysisID, err := s.store.UpsertAnalysisProcessing(ctx, &models.Analysis{
		AccountID:        resume.AccountID,
		ResumeID:         resume.ID,
		JobDescriptionID: jdID,
		PostingID:        posting.ID,
		Metadata:         models.RawJSON(seedMeta),
	})
	if err != nil {
		return pairFailed, fmt.Errorf("upsert analysis: %w", err)
	}

	resp, match, err := s.invokeWithRetries(ctx, log, posting, bl.Text)
	if err != nil {
		if ferr := s.store.FailAnalysis(ctx, analysisID, err.Error()); ferr != nil {
			log.Error("failed to record analysis failure",
				zap.String("analysis_id", analysisID),
				zap.Error(ferr),
			)
		}
		return pairFailed, err
	}

	score := int(math.Round(match.MatchScore * 100))

	metadata, err := json.Marshal(map[string]interface{}{
		"request_id":        result.RequestID,
		"threshold":         threshold,
		"model_used":        resp.ModelUsed,
		"provider":          resp.Provider,
		"cost_estimate_usd": resp.EstimatedCostUSD,
		"prompt_tokens":     resp.PromptTokens,
		"completion_tokens": resp.CompletionTokens,
		"retry_attempts":    resp.RetryAttempts,
		"score_breakdown":   match.Breakdown,
		"warnings":          match.Warnings,
		"evidence_count":    len(match.Evidence),
		"baseline_variant":  bl.Variant,
	})
	if err != nil {
		return pairFailed, fmt.Errorf("marshal result metadata: %w", err)
	}

	suggestions := strings.Join(match.Recommendations, "\n")

	if err := s.store.CompleteAnalysis(ctx, analysisID, score, match.KeywordsFound, match.KeywordsMissing, suggestions, models.RawJSON(metadata)); err != nil {
		return pairFailed, fmt.Errorf("complete analysis: %w", err)
	}

	if match.MatchScore > threshold {
		s.triggerNotification(ctx, log, posting, resume.AccountID, analysisID, score, threshold, result)
	}

	return pairScored, nil
}

// invokeWithRetries calls the provider and re-invokes with a correction hint
// when returned content fails validation, up to the configured retry budget.
func (s *Scorer) invokeWithRetries(ctx context.Context, log *zap.Logger, posting *models.Posting, baselineText string) (*provider.Response, *MatchResult, error) {
	if count, err := s.locker.GetProviderRateLimit(ctx); err == nil && count > maxProviderCallsPerMinute {
		return nil, nil, fmt.Errorf("provider rate limit window exhausted")
	}

	basePrompt := buildScoringPrompt(posting, baselineText)
	prompt := basePrompt

	maxRetries := s.cfg.MaxOutputRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	if maxRetries > 2 {
		maxRetries = 2
	}

	var lastParseErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if _, err := s.locker.IncrementProviderRateLimit(ctx); err != nil {
			log.Warn("failed to record provider rate limit", zap.Error(err))
		}

		resp, err := s.provider.Invoke(ctx, provider.Request{
			SystemPrompt:    scoringSystemPrompt,
			UserPrompt:      prompt,
			Models:          s.cfg.Models,
			Schema:          matchResultSchema,
			SchemaName:      "match_result",
			Temperature:     s.cfg.Temperature,
			MaxOutputTokens: s.cfg.MaxOutputTokens,
			MaxRetries:      maxRetries,
			TaskLabel:       "job_match_scoring",
		})
		if err != nil {
			return nil, nil, err
		}

		match, perr := ParseMatchResult(resp.Text)
		if perr == nil {
			return resp, match, nil
		}

		lastParseErr = perr
		log.Warn("model output failed validation",
			zap.String("posting_id", posting.ID),
			zap.Int("attempt", attempt),
			zap.Error(perr),
		)
		prompt = basePrompt + retryHint
	}

	return nil, nil, fmt.Errorf("no model produced schema-valid output: %w", lastParseErr)
}

func (s *Scorer) triggerNotification(ctx context.Context, log *zap.Logger, posting *models.Posting, accountID, analysisID string, score int, threshold float64, result *Result) {
	payload, err := json.Marshal(map[string]interface{}{
		"analysis_id": analysisID,
		"posting_id":  posting.ID,
		"score":       score,
		"threshold":   threshold,
		"title":       posting.Title,
		"company":     posting.Company,
		"source_url":  posting.SourceURL,
	})
	if err != nil {
		log.Warn("failed to marshal notification payload", zap.Error(err))
		return
	}

	company := posting.Company
	if company == "" {
		company = posting.Source
	}

	n := &models.Notification{
		AccountID: accountID,
		Type:      models.NotificationTypeJobMatch,
		Title:     fmt.Sprintf("New job match: %d%%", score),
		Message:   fmt.Sprintf("Your profile scored %d%% against %q at %s.", score, posting.Title, company),
		DedupeKey: "posting:" + posting.ID,
		Payload:   models.RawJSON(payload),
	}

	inserted, err := s.store.UpsertNotification(ctx, n)
	if err != nil {
		// A lost notification never negates a completed scoring record.
		log.Warn("failed to upsert notification",
			zap.String("posting_id", posting.ID),
			zap.String("account_id", accountID),
			zap.Error(err),
		)
		return
	}

	if !inserted {
		log.Debug("notification already exists",
			zap.String("posting_id", posting.ID),
			zap.String("account_id", accountID),
		)
		return
	}

	result.NotificationsTriggered++

	if s.notifier != nil {
		s.notifier.Notify(ctx, n)
	}
}

func (s *Scorer) markProcessed(ctx context.Context, log *zap.Logger, postingID string) {
	if err := s.store.MarkPostingProcessed(ctx, postingID); err != nil {
		log.Error("failed to mark posting processed",
			zap.String("posting_id", postingID),
			zap.Error(err),
		)
	}
}

// resolveDefaultThreshold prefers the global setting row, then the
// configured default, then the hardcoded fallback; the result is always
// clamped into [0,1].
func (s *Scorer) resolveDefaultThreshold(ctx context.Context, log *zap.Logger) float64 {
	threshold := s.cfg.DefaultThreshold
	if threshold <= 0 {
		threshold = fallbackThreshold
	}

	row, err := s.store.GetDefaultThreshold(ctx)
	if err != nil {
		log.Warn("failed to load default threshold, using fallback", zap.Error(err))
	} else if row != nil {
		threshold = *row
	}

	return clamp01(threshold)
}

func (s *Scorer) loadThresholdOverrides(ctx context.Context, log *zap.Logger, resumes []models.Resume) map[string]float64 {
	accountIDs := make([]string, 0, len(resumes))
	for _, r := range resumes {
		accountIDs = append(accountIDs, r.AccountID)
	}

	overrides, err := s.store.GetThresholdOverrides(ctx, accountIDs)
	if err != nil {
		// Threshold resolution degrades to the default, never fails a batch.
		log.Warn("failed to load threshold overrides", zap.Error(err))
		return map[string]float64{}
	}

	return overrides
}

func effectiveThreshold(overrides map[string]float64, accountID string, defaultThreshold float64) float64 {
	if override, ok := overrides[accountID]; ok {
		return clamp01(override)
	}
	return defaultThreshold
}
