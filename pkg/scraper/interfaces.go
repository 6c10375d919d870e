package scraper

import (
	"context"

	"igextract/pkg/instagram"
	"igextract/pkg/models"
)

// InstagramClient defines the transport operations the scraper needs
type InstagramClient interface {
	FetchProfileInfo(ctx context.Context, username string) ([]byte, error)
	FetchTimelinePage(ctx context.Context, vars instagram.TimelineVariables) ([]byte, error)
	FetchProfilePage(ctx context.Context, username string) ([]byte, error)
}

// ProfileFetcher resolves a username to its profile
type ProfileFetcher interface {
	Fetch(ctx context.Context, username string) (*models.Profile, error)
}
