package client

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"github.com/darmiel/authnd/internal/api"
)

const (
	DefaultRetryDelay = 5 * time.Second

	// used when the server reports no expiry
	defaultRefreshInterval = 4 * time.Minute
)

// LoginFunc performs one authentication attempt.
type LoginFunc func(ctx context.Context) (*api.AuthenticateResponse, string, error)

// TokenRefresher keeps an access token in a file fresh. It authenticates until
// the first attempt succeeds and then re-authenticates before the token expires.
type TokenRefresher struct {
	Login LoginFunc
	Path  string

	// RetryDelay is the pause between failed attempts. Defaults to DefaultRetryDelay.
	RetryDelay time.Duration

	now func() time.Time
}

func NewTokenRefresher(path string, login LoginFunc) *TokenRefresher {
	return &TokenRefresher{
		Login:      login,
		Path:       path,
		RetryDelay: DefaultRetryDelay,
		now:        time.Now,
	}
}

// Authenticate retries Login until it succeeds and writes the token to Path.
// It only gives up when ctx is done or the token file cannot be written.
func (r *TokenRefresher) Authenticate(ctx context.Context) (*api.AuthenticateResponse, error) {
	logger := log.Ctx(ctx)

	var (
		resp        *api.AuthenticateResponse
		correlation string
	)
	operation := func() error {
		var err error
		resp, correlation, err = r.Login(ctx)
		if err != nil {
			return err
		}
		if err := writeTokenFile(r.Path, resp.Token); err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}
	notify := func(err error, next time.Duration) {
		logger.Warn().Err(err).Str("correlation_id", correlation).
			Dur("retry_in", next).Msg("authentication failed")
	}

	b := backoff.WithContext(backoff.NewConstantBackOff(r.retryDelay()), ctx)
	if err := backoff.RetryNotify(operation, b, notify); err != nil {
		return nil, err
	}
	return resp, nil
}

// Run authenticates and keeps refreshing the token file until ctx is done.
// Cancellation is not reported as an error.
func (r *TokenRefresher) Run(ctx context.Context) error {
	logger := log.Ctx(ctx)
	for {
		resp, err := r.Authenticate(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}

		wait := r.nextRefresh(resp)
		logger.Debug().Str("role", resp.Role).Dur("refresh_in", wait).Msg("access token written")
		if err := sleep(ctx, wait); err != nil {
			return nil
		}
	}
}

// nextRefresh waits four fifths of the remaining lifetime, at least RetryDelay.
func (r *TokenRefresher) nextRefresh(resp *api.AuthenticateResponse) time.Duration {
	if resp.ExpiresAt <= 0 {
		return defaultRefreshInterval
	}
	wait := time.Unix(resp.ExpiresAt, 0).Sub(r.now()) * 4 / 5
	return max(wait, r.retryDelay())
}

func (r *TokenRefresher) retryDelay() time.Duration {
	if r.RetryDelay <= 0 {
		return DefaultRetryDelay
	}
	return r.RetryDelay
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// writeTokenFile replaces path so readers never see a partial token.
func writeTokenFile(path, token string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating token directory '%s': %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".access-token-*")
	if err != nil {
		return fmt.Errorf("creating token file in '%s': %w", dir, err)
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	if _, err := tmp.WriteString(token); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing token file '%s': %w", path, err)
	}
	return nil
}
