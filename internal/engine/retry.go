package engine

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog/log"
)

// RetryPolicy bounds how often a failed chunk is fetched again. The zero
// value disables retries.
type RetryPolicy struct {
	Attempts   int
	Backoff    time.Duration
	MaxBackoff time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts:   3,
		Backoff:    500 * time.Millisecond,
		MaxBackoff: 10 * time.Second,
	}
}

// delay grows exponentially per attempt with 0.5x-1.5x jitter.
func (p RetryPolicy) delay(attempt int) time.Duration {
	backoff := p.Backoff * time.Duration(1<<uint(attempt-1))
	if p.MaxBackoff > 0 && backoff > p.MaxBackoff {
		backoff = p.MaxBackoff
	}
	return time.Duration(float64(backoff) * (0.5 + rand.Float64()))
}

func (p RetryPolicy) wait(ctx context.Context, attempt int) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.delay(attempt)):
		return nil
	}
}

// fetchWithRetry runs FetchChunk under the policy. All attempts share one
// progress credit so retried bytes are not counted twice.
func fetchWithRetry(ctx context.Context, src Source, job *DownloadJob, r ChunkRange, tracker *Tracker, policy RetryPolicy) (string, error) {
	credit := &progressCredit{tracker: tracker}
	var lastErr error
	for attempt := 0; attempt <= policy.Attempts; attempt++ {
		if attempt > 0 {
			log.Warn().Str("op", "engine/retry").Msgf("Retrying chunk %d of %s (attempt %d/%d)", r.Index, job.OutputFilename, attempt+1, policy.Attempts+1)
			if err := policy.wait(ctx, attempt); err != nil {
				return "", &FetchError{Index: r.Index, Err: err}
			}
		}
		tempPath, err := fetchAttempt(ctx, src, job, r, credit)
		if err == nil {
			return tempPath, nil
		}
		lastErr = err
		if IsPermanent(err) || ctx.Err() != nil {
			break
		}
		log.Debug().Str("op", "engine/retry").Err(err).Msgf("Chunk %d attempt %d failed", r.Index, attempt+1)
	}
	return "", lastErr
}
