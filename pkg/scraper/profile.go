package scraper

import (
	"context"

	"igextract/pkg/config"
	"igextract/pkg/errors"
	"igextract/pkg/locate"
	"igextract/pkg/logger"
	"igextract/pkg/models"
	"igextract/pkg/normalize"
	"igextract/pkg/retry"
)

// APIProfileFetcher reads the profile from the web_profile_info API in a single request
type APIProfileFetcher struct {
	client  InstagramClient
	locator *locate.Locator
	logger  logger.Logger
}

// NewAPIProfileFetcher creates an APIProfileFetcher
func NewAPIProfileFetcher(client InstagramClient, log logger.Logger) *APIProfileFetcher {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &APIProfileFetcher{
		client:  client,
		locator: locate.NewProfileLocator(log),
		logger:  log,
	}
}

// Fetch returns the profile or the first failure; it does not retry
func (f *APIProfileFetcher) Fetch(ctx context.Context, username string) (*models.Profile, error) {
	body, err := f.client.FetchProfileInfo(ctx, username)
	if err != nil {
		return nil, err
	}

	rec, err := f.locator.Locate(locate.NewPayload(body), username)
	if err != nil {
		return nil, err
	}

	profile := normalize.Profile(rec, username)
	f.logger.DebugWithFields("Profile normalized", map[string]interface{}{
		"username":  profile.Username,
		"followers": profile.FollowerCount,
		"source":    config.ProfileSourceAPI,
	})
	return &profile, nil
}

// DocumentProfileFetcher reads the profile from the rendered HTML page and
// retries rate limits, transient failures and pages without user data.
type DocumentProfileFetcher struct {
	client  InstagramClient
	locator *locate.Locator
	retry   *retry.Config
	logger  logger.Logger
}

// NewDocumentProfileFetcher creates a DocumentProfileFetcher with the given sleeper
func NewDocumentProfileFetcher(client InstagramClient, cfg config.RetryConfig, sleeper retry.Sleeper, log logger.Logger) *DocumentProfileFetcher {
	if log == nil {
		log = logger.NewNopLogger()
	}
	backoff := retry.NewErrorTypeBackoff(cfg.RateLimitDelay, cfg.TransientBaseDelay)

	return &DocumentProfileFetcher{
		client:  client,
		locator: locate.NewDocumentLocator(log),
		retry: &retry.Config{
			MaxAttempts: cfg.MaxAttempts,
			DelayFor:    backoff.DelayFor,
			RetryIf:     retry.DefaultRetryIf,
			// A rate limit still waits out its penalty before giving up
			WaitOnFinal: func(err error) bool { return errors.IsType(err, errors.ErrorTypeRateLimit) },
			Sleeper:     sleeper,
			Logger:      log,
		},
		logger: log,
	}
}

// Fetch returns the profile, the not-found error, or an exhausted error
func (f *DocumentProfileFetcher) Fetch(ctx context.Context, username string) (*models.Profile, error) {
	return retry.DoWithResult(ctx, func(ctx context.Context) (*models.Profile, error) {
		body, err := f.client.FetchProfilePage(ctx, username)
		if err != nil {
			return nil, err
		}

		rec, err := f.locator.Locate(locate.NewPayload(body), username)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeMalformed, "page fetched but no user data located")
		}

		profile := normalize.Profile(rec, username)
		return &profile, nil
	}, f.retry)
}
