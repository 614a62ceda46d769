package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/suryatejavarmaa/DigiMark-sub000/internal/cache"
	"github.com/suryatejavarmaa/DigiMark-sub000/internal/metrics"
	"github.com/suryatejavarmaa/DigiMark-sub000/internal/models"
	"github.com/suryatejavarmaa/DigiMark-sub000/internal/repository"
	"github.com/suryatejavarmaa/DigiMark-sub000/internal/transfer"
)

// publishWorkers is the number of workers draining a batch's attempt queue. Platforms
// are delivered one at a time, in selection order, so third-party rate limits stay
// predictable and progress is reported per item.
const publishWorkers = 1

// ProgressFunc observes every status change of an attempt.
type ProgressFunc func(batch *models.PublishBatch, attempt models.PublishAttempt)

type PublishRequest struct {
	UserID       int64
	Platforms    []string
	Content      models.Content
	OriginPostID string
	Progress     ProgressFunc
}

type PublishOptions struct {
	Pause           time.Duration
	AttemptTimeout  time.Duration
	LivePostTimeout time.Duration
}

type PublishService interface {
	Publish(ctx context.Context, req PublishRequest) (*models.PublishBatch, error)
	RetryFailed(ctx context.Context, batch *models.PublishBatch, progress ProgressFunc) (*models.PublishBatch, error)
}

type publishService struct {
	publisher Publisher
	registry  ConnectionService
	lp        repository.LivePostRepository
	sp        repository.ScheduledPostRepository
	drafts    cache.DraftCache
	opts      PublishOptions
	sleep     func(ctx context.Context, d time.Duration)
}

func NewPublishService(
	publisher Publisher,
	registry ConnectionService,
	lp repository.LivePostRepository,
	sp repository.ScheduledPostRepository,
	drafts cache.DraftCache,
	opts PublishOptions) PublishService {
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = time.Minute
	}
	if opts.LivePostTimeout <= 0 {
		opts.LivePostTimeout = 5 * time.Second
	}
	return &publishService{
		publisher: publisher,
		registry:  registry,
		lp:        lp,
		sp:        sp,
		drafts:    drafts,
		opts:      opts,
		sleep:     sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// uniquePlatforms keeps the first occurrence of every platform, in selection order.
func uniquePlatforms(platforms []string) []string {
	seen := make(map[string]struct{}, len(platforms))
	out := make([]string, 0, len(platforms))
	for _, p := range platforms {
		p = normalizePlatform(p)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

func (s *publishService) Publish(ctx context.Context, req PublishRequest) (*models.PublishBatch, error) {
	platforms := uniquePlatforms(req.Platforms)
	if len(platforms) == 0 {
		err := models.NewValidationError("platforms", "select at least one platform")
		slog.Info(err.Error())
		return nil, err
	}
	if req.Content.Caption == "" && req.Content.MediaRef == "" {
		err := models.NewValidationError("content", "caption or media is required")
		slog.Info(err.Error())
		return nil, err
	}
	if req.Content.Kind == "" {
		req.Content.Kind = models.ContentText
		if req.Content.MediaRef != "" {
			req.Content.Kind = models.ContentImage
		}
	}

	batch := &models.PublishBatch{
		ID:           uuid.NewString(),
		UserID:       req.UserID,
		OriginPostID: req.OriginPostID,
		Content:      req.Content,
		Attempts:     make([]models.PublishAttempt, len(platforms)),
		StartedAt:    time.Now(),
	}
	for i, p := range platforms {
		batch.Attempts[i] = models.PublishAttempt{Platform: p, Status: models.AttemptPending}
	}

	// A started batch runs to completion even if the caller goes away.
	ctx = context.WithoutCancel(ctx)

	if s.registry != nil {
		if err := s.registry.Ensure(ctx, batch.UserID); err != nil {
			slog.Warn("load connections failed", "user_id", batch.UserID, "error", err)
		}
	}

	queue := make(chan int, len(batch.Attempts))
	for i := range batch.Attempts {
		queue <- i
	}
	close(queue)

	done := make(chan error, publishWorkers)
	for w := 0; w < publishWorkers; w++ {
		go func() { done <- s.drain(ctx, batch, queue, req.Progress) }()
	}
	var loopErr error
	for w := 0; w < publishWorkers; w++ {
		if err := <-done; err != nil {
			loopErr = err
		}
	}

	batch.FinishedAt = time.Now()
	if loopErr != nil {
		s.abort(batch, loopErr)
		metrics.ObserveBatch(string(batch.Status))
		s.recordLivePost(ctx, batch)
		return batch, fmt.Errorf("%w: %v", models.ErrBatchAborted, loopErr)
	}

	batch.Status = models.DeriveStatus(batch.Attempts)
	metrics.ObserveBatch(string(batch.Status))
	slog.Info("publish batch finished",
		"batch_id", batch.ID,
		"user_id", batch.UserID,
		"status", batch.Status,
		"succeeded", len(batch.Platforms(models.AttemptSuccess)),
		"failed", len(batch.Platforms(models.AttemptFailed)))

	s.recordLivePost(ctx, batch)
	s.removeOrigin(ctx, batch)
	return batch, nil
}

func (s *publishService) RetryFailed(ctx context.Context, batch *models.PublishBatch, progress ProgressFunc) (*models.PublishBatch, error) {
	if batch == nil {
		return nil, models.NewValidationError("batch", "no batch to retry")
	}
	failed := batch.Platforms(models.AttemptFailed)
	if len(failed) == 0 {
		return nil, models.NewValidationError("batch", "no failed platforms to retry")
	}
	return s.Publish(ctx, PublishRequest{
		UserID:       batch.UserID,
		Platforms:    failed,
		Content:      batch.Content,
		OriginPostID: batch.OriginPostID,
		Progress:     progress,
	})
}

// drain is the queue worker. A panic anywhere in the loop is turned into an error so
// the caller can fail the whole batch instead of crashing.
func (s *publishService) drain(ctx context.Context, batch *models.PublishBatch, queue <-chan int, progress ProgressFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fan-out loop panicked: %v", r)
		}
	}()

	first := true
	for i := range queue {
		if !first {
			s.sleep(ctx, s.opts.Pause)
		}
		first = false
		s.attempt(ctx, batch, i, progress)
	}
	return nil
}

type publishResult struct {
	resp *transfer.PublishResponse
	err  error
}

func (s *publishService) attempt(ctx context.Context, batch *models.PublishBatch, i int, progress ProgressFunc) {
	a := &batch.Attempts[i]
	content := batch.Content

	if s.registry != nil && !s.registry.IsConnected(batch.UserID, a.Platform) {
		s.fail(batch, a, models.ErrorKindConnection, models.ErrConnection.Error(), "", progress)
		metrics.ObserveAttempt(a.Platform, string(a.Status), string(a.ErrorKind), time.Time{})
		return
	}

	a.Status = models.AttemptPublishing
	notify(progress, batch, *a)
	start := time.Now()

	attemptCtx, cancel := context.WithTimeout(ctx, s.opts.AttemptTimeout)
	defer cancel()

	req := transfer.PublishRequest{
		UserID:   batch.UserID,
		Platform: a.Platform,
		Content:  content.Caption,
		MediaRef: content.MediaRef,
		Kind:     string(content.Kind),
	}
	results := make(chan publishResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				results <- publishResult{err: fmt.Errorf("publisher panicked: %v", r)}
			}
		}()
		resp, err := s.publisher.Publish(attemptCtx, req)
		results <- publishResult{resp: resp, err: err}
	}()

	var res publishResult
	select {
	case res = <-results:
	case <-attemptCtx.Done():
		res = publishResult{err: attemptCtx.Err()}
	}

	switch {
	case res.err != nil && errors.Is(res.err, context.DeadlineExceeded):
		s.fail(batch, a, models.ErrorKindTimeout,
			fmt.Sprintf("%s after %s", models.ErrAttemptTimeout, s.opts.AttemptTimeout), "", progress)
	case res.err != nil:
		s.fail(batch, a, models.ErrorKindTransport, res.err.Error(), "", progress)
	case res.resp == nil:
		s.fail(batch, a, models.ErrorKindTransport, models.ErrTransport.Error(), "", progress)
	case res.resp.Status == transfer.PublishStatusSuccess:
		a.Status = models.AttemptSuccess
		a.PostURL = res.resp.PostURL
		a.ShareURL = res.resp.ShareURL
		notify(progress, batch, *a)
		s.rememberPostURL(ctx, batch.UserID, a.Platform, a.PostURL)
	default:
		msg := strings.TrimSpace(res.resp.Error)
		if msg == "" {
			msg = models.ErrTransport.Error()
		}
		s.fail(batch, a, models.ErrorKindTransport, msg, res.resp.ShareURL, progress)
	}

	metrics.ObserveAttempt(a.Platform, string(a.Status), string(a.ErrorKind), start)
}

func (s *publishService) fail(batch *models.PublishBatch, a *models.PublishAttempt, kind models.ErrorKind, msg, shareURL string, progress ProgressFunc) {
	a.Status = models.AttemptFailed
	a.ErrorKind = kind
	a.Error = msg
	if shareURL != "" {
		a.ShareURL = shareURL
		a.ManualAction = models.ManualCompose
	} else {
		a.ShareURL, a.ManualAction = ManualFallback(a.Platform, batch.Content)
	}
	slog.Info("publish attempt failed", "batch_id", batch.ID, "platform", a.Platform, "kind", kind, "error", msg)
	notify(progress, batch, *a)
}

// abort fails whatever the loop left unfinished. Attempts that already went out keep
// their result, so the status still reflects any posts that are live. The observer is
// not called again since it may be what panicked.
func (s *publishService) abort(batch *models.PublishBatch, cause error) {
	slog.Error("publish batch aborted", "batch_id", batch.ID, "error", cause)
	for i := range batch.Attempts {
		a := &batch.Attempts[i]
		if a.Status.Terminal() {
			continue
		}
		s.fail(batch, a, models.ErrorKindTransport, models.ErrBatchAborted.Error(), "", nil)
	}
	batch.Status = models.DeriveStatus(batch.Attempts)
}

func notify(progress ProgressFunc, batch *models.PublishBatch, a models.PublishAttempt) {
	if progress != nil {
		progress(batch, a)
	}
}

func (s *publishService) rememberPostURL(ctx context.Context, userID int64, platform, url string) {
	if s.drafts == nil || url == "" {
		return
	}
	if err := s.drafts.SetLastPostURL(ctx, userID, platform, url); err != nil {
		slog.Info(err.Error())
	}
}

// recordLivePost appends the denormalized live-post record. It is best effort: a slow
// or failing store is logged and never changes the batch result.
func (s *publishService) recordLivePost(ctx context.Context, batch *models.PublishBatch) {
	if s.lp == nil || batch.Status == models.BatchFailed {
		return
	}
	urls := make(map[string]string)
	for _, a := range batch.Attempts {
		if a.Status == models.AttemptSuccess {
			urls[a.Platform] = a.PostURL
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.LivePostTimeout)
	defer cancel()
	_, err := s.lp.Create(ctx, &models.LivePost{
		UserID:   batch.UserID,
		BatchID:  batch.ID,
		Caption:  batch.Content.Caption,
		MediaRef: batch.Content.MediaRef,
		PostURLs: urls,
	})
	if err != nil {
		slog.Warn("record live post failed", "batch_id", batch.ID, "error", err)
	}
}

func (s *publishService) removeOrigin(ctx context.Context, batch *models.PublishBatch) {
	if s.sp == nil || batch.OriginPostID == "" || batch.Status != models.BatchSuccess {
		return
	}
	if err := s.sp.Remove(ctx, batch.OriginPostID); err != nil {
		slog.Warn("remove published scheduled post failed", "post_id", batch.OriginPostID, "error", err)
	}
}
