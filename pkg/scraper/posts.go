package scraper

import (
	"context"
	"time"

	"igextract/pkg/instagram"
	"igextract/pkg/locate"
	"igextract/pkg/logger"
	"igextract/pkg/models"
	"igextract/pkg/normalize"
	"igextract/pkg/retry"
)

// FetchState is the pagination state machine position
type FetchState string

const (
	StateFetching    FetchState = "FETCHING"
	StateEmptyStreak FetchState = "EMPTY_STREAK"
	StateDone        FetchState = "DONE"
	StateAborted     FetchState = "ABORTED"
)

const (
	// EmptyPageLimit is the number of consecutive pages without new posts that ends a fetch
	EmptyPageLimit = 3
	// MaxPages bounds the number of page requests in one fetch
	MaxPages = 100
	// DefaultPageDelay is the pause between successive page requests
	DefaultPageDelay = 2 * time.Second
)

// PostsResult is the outcome of a paginated fetch. It is returned even when
// the fetch aborted, carrying whatever was accumulated before the failure.
type PostsResult struct {
	Posts  []models.Post
	State  FetchState
	Pages  int
	Reason string
	Err    error
}

// PostFetcher pages through a user's timeline
type PostFetcher struct {
	client    InstagramClient
	sleeper   retry.Sleeper
	pageDelay time.Duration
	logger    logger.Logger
}

// NewPostFetcher creates a PostFetcher. A non-positive pageDelay selects DefaultPageDelay.
func NewPostFetcher(client InstagramClient, sleeper retry.Sleeper, pageDelay time.Duration, log logger.Logger) *PostFetcher {
	if sleeper == nil {
		sleeper = retry.NewClockSleeper(nil)
	}
	if pageDelay <= 0 {
		pageDelay = DefaultPageDelay
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &PostFetcher{
		client:    client,
		sleeper:   sleeper,
		pageDelay: pageDelay,
		logger:    log,
	}
}

// Fetch collects up to maxPosts unique posts; maxPosts <= 0 means no cap
func (f *PostFetcher) Fetch(ctx context.Context, username string, maxPosts int) *PostsResult {
	result := &PostsResult{Posts: []models.Post{}, State: StateFetching}
	seen := make(map[string]struct{})
	cursor := ""
	streak := 0

	log := f.logger.WithField("username", username)

	for result.Pages < MaxPages {
		if err := ctx.Err(); err != nil {
			return f.abort(result, log, "cancelled", err)
		}

		result.Pages++
		body, err := f.client.FetchTimelinePage(ctx, instagram.NewTimelineVariables(username, cursor))
		if err != nil {
			return f.abort(result, log, "page request failed", err)
		}

		page, err := locate.LocatePage(locate.NewPayload(body))
		if err != nil {
			return f.abort(result, log, "page could not be located", err)
		}

		added := 0
		for _, item := range page.Items {
			post := normalize.Post(item, username)
			key := post.Key()
			if key == "" {
				log.WarnWithFields("Skipping post without identifier", map[string]interface{}{
					"page": result.Pages,
				})
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			result.Posts = append(result.Posts, post)
			added++

			if maxPosts > 0 && len(result.Posts) >= maxPosts {
				return f.finish(result, log, "post limit reached")
			}
		}

		log.DebugWithFields("Page processed", map[string]interface{}{
			"page":          result.Pages,
			"items":         len(page.Items),
			"new":           added,
			"total":         len(result.Posts),
			"has_next_page": page.HasNextPage,
		})

		if added == 0 {
			streak++
			result.State = StateEmptyStreak
			if streak >= EmptyPageLimit {
				return f.finish(result, log, "consecutive pages without new posts")
			}
			// Same cursor is requested again after the usual pause
			if err := f.sleeper.Sleep(ctx, f.pageDelay); err != nil {
				return f.abort(result, log, "cancelled", err)
			}
			continue
		}

		streak = 0
		result.State = StateFetching

		if !page.HasNextPage {
			return f.finish(result, log, "no more pages")
		}
		if page.EndCursor == "" {
			log.WarnWithFields("Pagination anomaly: next page reported without cursor", map[string]interface{}{
				"page": result.Pages,
			})
			return f.finish(result, log, "next page without cursor")
		}
		cursor = page.EndCursor

		if err := f.sleeper.Sleep(ctx, f.pageDelay); err != nil {
			return f.abort(result, log, "cancelled", err)
		}
	}

	result.State = StateAborted
	result.Reason = "page limit reached"
	log.WarnWithFields("Pagination aborted", map[string]interface{}{
		"reason": result.Reason,
		"pages":  result.Pages,
		"posts":  len(result.Posts),
	})
	return result
}

func (f *PostFetcher) finish(result *PostsResult, log logger.Logger, reason string) *PostsResult {
	result.State = StateDone
	result.Reason = reason
	log.InfoWithFields("Pagination finished", map[string]interface{}{
		"reason": reason,
		"pages":  result.Pages,
		"posts":  len(result.Posts),
	})
	return result
}

func (f *PostFetcher) abort(result *PostsResult, log logger.Logger, reason string, err error) *PostsResult {
	result.State = StateAborted
	result.Reason = reason
	result.Err = err
	log.WithError(err).WarnWithFields("Pagination aborted", map[string]interface{}{
		"reason": reason,
		"pages":  result.Pages,
		"posts":  len(result.Posts),
	})
	return result
}
