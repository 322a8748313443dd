/**
 * @description
 * The batch renewal orchestrator: the schedulable entry point that discovers
 * due subscriptions in bounded pages, fans pages out across a fixed number of
 * concurrent workers, claims each subscription atomically before touching it,
 * retries transient failures a bounded number of times and aggregates the
 * run's counts.
 *
 * Concurrency is for amortizing I/O latency, not for parallel mutation of a
 * row: the claim serializes all work on a given subscription, including
 * against an overlapping orchestrator run.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shoply/renewal-service/internal/domain"
	"github.com/shoply/renewal-service/internal/store"
)

// RenewalSummary aggregates one orchestrator run for observability.
type RenewalSummary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"` // claimed by another worker or run
}

// RenewSubscriptions processes every subscription due on or before today.
// Safe to re-invoke: a second immediate run finds nothing due (all items
// advanced, paused or still claimed) and processes zero subscriptions.
func (s *Service) RenewSubscriptions(ctx context.Context, today time.Time) (RenewalSummary, error) {
	today = startOfDay(today)
	s.logger.Info("renewal run starting", "due_on", today.Format(time.DateOnly))

	var (
		mu      sync.Mutex
		summary RenewalSummary
	)

	offset := 0
	for {
		pageSizes := make([]int, s.cfg.ConcurrentBatches)
		pageErrs := make([]error, s.cfg.ConcurrentBatches)

		var wg sync.WaitGroup
		for i := 0; i < s.cfg.ConcurrentBatches; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				subs, err := s.repo.ListDueSubscriptions(ctx, today, s.cfg.BatchSize, offset+i*s.cfg.BatchSize)
				if err != nil {
					pageErrs[i] = err
					return
				}
				pageSizes[i] = len(subs)
				for _, sub := range subs {
					outcome := s.renewOne(ctx, sub, today)
					mu.Lock()
					summary.Total++
					switch outcome {
					case outcomeSucceeded:
						summary.Succeeded++
					case outcomeFailed:
						summary.Failed++
					case outcomeSkipped:
						summary.Skipped++
					}
					mu.Unlock()
				}
			}(i)
		}
		wg.Wait()

		// A page fetch failure aborts the whole run; the scheduler logs it
		// and waits for the next trigger.
		for _, err := range pageErrs {
			if err != nil {
				return summary, fmt.Errorf("fetch due subscriptions: %w", err)
			}
		}

		done := false
		for _, n := range pageSizes {
			if n < s.cfg.BatchSize {
				done = true
			}
		}
		if done {
			break
		}
		offset += s.cfg.ConcurrentBatches * s.cfg.BatchSize
	}

	s.logger.Info("renewal run finished",
		"total", summary.Total, "succeeded", summary.Succeeded,
		"failed", summary.Failed, "skipped", summary.Skipped)
	return summary, nil
}

type renewalOutcome int

const (
	outcomeSucceeded renewalOutcome = iota
	outcomeFailed
	outcomeSkipped
)

// renewOne claims a subscription and runs its cycle with bounded immediate
// retries. The claim is released on every failure exit so the subscription
// stays eligible for the next scheduled run.
func (s *Service) renewOne(ctx context.Context, sub domain.Subscription, today time.Time) renewalOutcome {
	if err := s.repo.ClaimSubscription(ctx, sub.ID); err != nil {
		if errors.Is(err, store.ErrAlreadyProcessing) {
			return outcomeSkipped
		}
		s.logger.Error("failed to claim subscription", "subscription_id", sub.ID, "error", err)
		return outcomeFailed
	}

	var err error
	for attempt := 0; attempt <= s.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			s.logger.Warn("retrying subscription renewal",
				"subscription_id", sub.ID, "attempt", attempt, "error", err)
		}
		err = s.processSubscription(ctx, sub, today)
		if err == nil {
			return outcomeSucceeded
		}
		if isFatal(err) {
			break
		}
	}

	s.logger.Error("subscription renewal failed",
		"subscription_id", sub.ID, "customer_id", sub.CustomerID, "error", err)
	if releaseErr := s.repo.ReleaseSubscription(ctx, sub.ID); releaseErr != nil {
		s.logger.Error("failed to release subscription claim",
			"subscription_id", sub.ID, "error", releaseErr)
	}
	return outcomeFailed
}
