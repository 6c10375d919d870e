package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"

	"igextract/pkg/config"
	"igextract/pkg/instagram"
	"igextract/pkg/logger"
	"igextract/pkg/models"
	"igextract/pkg/proxy"
	"igextract/pkg/retry"
	"igextract/pkg/sink"
)

// Result summarizes one run
type Result struct {
	RunID      string
	Username   string
	Profile    *models.Profile
	Posts      []models.Post
	ProfileErr error
	PostsState FetchState
	Pages      int
	Reason     string
	Duration   time.Duration
}

// Scraper orchestrates profile and post extraction for one username at a time
type Scraper struct {
	config    *config.Config
	endpoints []proxy.Endpoint
	sink      sink.Sink
	logger    logger.Logger

	// newClient builds the per-run transport; replaced in tests
	newClient func(cfg *config.Config, rotator *proxy.Rotator, log logger.Logger) InstagramClient
	sleeper   retry.Sleeper
}

// New creates a new Scraper instance
func New(cfg *config.Config, out sink.Sink, log logger.Logger) (*Scraper, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if out == nil {
		return nil, fmt.Errorf("sink is required")
	}
	if log == nil {
		log = logger.NewNopLogger()
	}

	endpoints, err := proxy.ParseEndpoints(cfg.Proxy.Endpoints)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy configuration: %w", err)
	}

	return &Scraper{
		config:    cfg,
		endpoints: endpoints,
		sink:      out,
		logger:    log,
		newClient: func(cfg *config.Config, rotator *proxy.Rotator, log logger.Logger) InstagramClient {
			return instagram.NewClient(cfg, rotator, log)
		},
		sleeper: retry.NewClockSleeper(nil),
	}, nil
}

func (s *Scraper) profileFetcher(client InstagramClient, log logger.Logger) ProfileFetcher {
	if s.config.Fetch.ProfileSource == config.ProfileSourceHTML {
		return NewDocumentProfileFetcher(client, s.config.Retry, s.sleeper, log)
	}
	return NewAPIProfileFetcher(client, log)
}

// Run fetches the profile and up to maxPosts posts for username and persists
// them. A profile failure is recorded in the result and does not fail the
// run; only a sink failure does.
func (s *Scraper) Run(ctx context.Context, username string, maxPosts int) (*Result, error) {
	username = instagram.SanitizeUsername(username)
	if !instagram.IsValidUsername(username) {
		return nil, fmt.Errorf("invalid username %q", username)
	}

	start := time.Now()
	result := &Result{
		RunID:    xid.New().String(),
		Username: username,
		Posts:    []models.Post{},
	}

	log := s.logger.WithFields(map[string]interface{}{
		"run_id":   result.RunID,
		"username": username,
	})
	log.InfoWithFields("Starting extraction", map[string]interface{}{
		"max_posts":      maxPosts,
		"profile_source": s.config.Fetch.ProfileSource,
		"proxies":        len(s.endpoints),
	})

	// Proxy rotation state belongs to a single run
	client := s.newClient(s.config, proxy.NewRotator(s.endpoints), log)

	profile, err := s.profileFetcher(client, log).Fetch(ctx, username)
	if err != nil {
		result.ProfileErr = err
		log.WithError(err).Warn("Profile fetch failed")
	} else {
		result.Profile = profile
	}

	if s.config.Fetch.SkipPosts {
		result.PostsState = StateDone
		result.Reason = "posts skipped"
	} else {
		posts := NewPostFetcher(client, s.sleeper, s.config.Fetch.PageDelay, log).Fetch(ctx, username, maxPosts)
		result.Posts = posts.Posts
		result.PostsState = posts.State
		result.Pages = posts.Pages
		result.Reason = posts.Reason
	}

	// Partial results are still saved when ctx was cancelled
	if err := s.sink.Persist(context.WithoutCancel(ctx), result.Profile, result.Posts, username); err != nil {
		log.WithError(err).Error("Failed to persist results")
		return result, fmt.Errorf("failed to persist results: %w", err)
	}

	result.Duration = time.Since(start)
	log.InfoWithFields("Extraction complete", map[string]interface{}{
		"profile":     result.Profile != nil,
		"posts":       len(result.Posts),
		"pages":       result.Pages,
		"state":       string(result.PostsState),
		"reason":      result.Reason,
		"duration_ms": result.Duration.Milliseconds(),
	})

	return result, nil
}
