package async

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/reel-api/internal/domain"
)

// DefaultPollInterval is the fixed delay between polls. Completion
// latency of the remote service is on the order of tens of seconds to
// minutes, so the interval is deliberately not adaptive.
const DefaultPollInterval = 10 * time.Second

// PollState is the poller's state machine:
// SUBMITTED -> POLLING -> {DONE, FAILED, CANCELLED}.
type PollState string

// Poller states. Done, failed, and cancelled are terminal.
const (
	StateSubmitted PollState = "SUBMITTED"
	StatePolling   PollState = "POLLING"
	StateDone      PollState = "DONE"
	StateFailed    PollState = "FAILED"
	StateCancelled PollState = "CANCELLED"
)

// OperationFetcher refreshes a submitted operation from the remote
// service. Implemented by the synthesis platform client.
type OperationFetcher interface {
	Fetch(ctx context.Context, op *domain.Operation) (*domain.Operation, error)
}

// FetcherFunc adapts a function to the OperationFetcher interface.
type FetcherFunc func(ctx context.Context, op *domain.Operation) (*domain.Operation, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, op *domain.Operation) (*domain.Operation, error) {
	return f(ctx, op)
}

// Poller drives a submitted long-running operation to completion or
// failure, retrying transient poll failures and honoring the
// orchestration's cancellation token.
type Poller struct {
	fetcher  OperationFetcher
	interval time.Duration
	policy   BackoffPolicy
	logger   *slog.Logger
}

// NewPoller creates a poller that refreshes operations through fetcher
// every interval (DefaultPollInterval when zero), wrapping each fetch in
// the retry executor with the given policy.
func NewPoller(fetcher OperationFetcher, interval time.Duration, policy BackoffPolicy, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		fetcher:  fetcher,
		interval: interval,
		policy:   policy,
		logger:   logger.With(slog.String("component", "poller")),
	}
}

// Wait blocks until the operation reaches a terminal state or the token
// aborts. The token is re-checked both before sleeping and before every
// fetch; an abort stops the poller immediately with no further network
// activity.
//
// On StateDone the returned operation is terminal and carries the
// result. On StateFailed and StateCancelled the error is a classified
// *domain.FailureInfo.
func (p *Poller) Wait(
	ctx context.Context,
	token *CancelToken,
	op *domain.Operation,
) (*domain.Operation, PollState, error) {
	log := p.logger.With(slog.String("operation", op.Name))
	log.Debug("tracking operation", "state", StateSubmitted)

	for !op.Done {
		if token.Aborted() {
			log.Info("operation tracking cancelled")
			return op, StateCancelled, domain.NewFailureInfo(domain.ErrCancelled)
		}

		timer := time.NewTimer(p.interval)
		select {
		case <-timer.C:
		case <-token.Done():
			timer.Stop()
			log.Info("operation tracking cancelled during poll wait")
			return op, StateCancelled, domain.NewFailureInfo(domain.ErrCancelled)
		case <-ctx.Done():
			timer.Stop()
			return op, StateCancelled, domain.NewFailureInfo(ctx.Err())
		}

		if token.Aborted() {
			log.Info("operation tracking cancelled")
			return op, StateCancelled, domain.NewFailureInfo(domain.ErrCancelled)
		}

		log.Debug("polling operation", "state", StatePolling)
		refreshed, err := Retry(ctx, token, p.policy, p.logger,
			func(ctx context.Context) (*domain.Operation, error) {
				return p.fetcher.Fetch(ctx, op)
			})
		if err != nil {
			fi := domain.NewFailureInfo(err)
			if fi.Kind == domain.FailureCancelled {
				return op, StateCancelled, fi
			}
			log.Error("operation poll failed", "kind", fi.Kind, "error", err)
			return op, StateFailed, fi
		}
		op = refreshed
	}

	if op.Failure != nil {
		fi := domain.NewFailureInfo(op.Failure)
		log.Error("operation completed with error payload", "kind", fi.Kind)
		return op, StateFailed, fi
	}
	if op.Result == nil {
		fi := domain.NewFailureInfo(fmt.Errorf("operation %s completed without a result", op.Name))
		return op, StateFailed, fi
	}

	log.Info("operation done")
	return op, StateDone, nil
}
