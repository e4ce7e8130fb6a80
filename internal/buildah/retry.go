// SPDX-License-Identifier: MPL-2.0

package buildah

import (
	"context"
	"fmt"
	"time"
)

// RetryWithBackoff calls op up to maxAttempts times, sleeping baseBackoff,
// 2*baseBackoff, 4*baseBackoff... between attempts. The wait is cut short
// when ctx is canceled.
//
// op returns (retry, err). A nil err ends the loop successfully; a non-nil
// err with retry false is returned immediately. On exhaustion the last error
// is returned.
func RetryWithBackoff(
	ctx context.Context,
	maxAttempts int,
	baseBackoff time.Duration,
	op func(attempt int) (retry bool, err error),
) error {
	var lastErr error
	for attempt := range maxAttempts {
		if attempt > 0 {
			timer := time.NewTimer(baseBackoff * time.Duration(1<<(attempt-1)))
			select {
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("retry aborted: %w", ctx.Err())
			case <-timer.C:
			}
		}

		retry, err := op(attempt)
		if err == nil {
			return nil
		}
		if !retry {
			return err
		}
		lastErr = err
	}
	return lastErr
}

// PullWithRetry pulls name, retrying transient failures. Attempts below one
// are treated as one.
func PullWithRetry(ctx context.Context, cli *CLI, name string, attempts int, baseBackoff time.Duration) (*Image, error) {
	var img *Image
	err := RetryWithBackoff(ctx, max(attempts, 1), baseBackoff, func(int) (bool, error) {
		var err error
		img, err = PullImage(ctx, cli, name)
		return IsTransientError(err), err
	})
	if err != nil {
		return nil, err
	}
	return img, nil
}
