package instagram

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

const (
	// BaseURL is the base URL for Instagram
	BaseURL = "https://www.instagram.com"

	// ProfileEndpoint is the web profile info API
	ProfileEndpoint = "/api/v1/users/web_profile_info/"

	// TimelineEndpoint serves persisted GraphQL queries
	TimelineEndpoint = "/graphql/query"

	// DefaultDocID identifies the user timeline query
	DefaultDocID = "34579740524958711"

	// DefaultPageSize is the number of items requested per timeline page
	DefaultPageSize = 12
)

// TimelineData holds the fixed flags of the timeline query
type TimelineData struct {
	Count                         int  `json:"count"`
	IncludeReelMediaSeenTimestamp bool `json:"include_reel_media_seen_timestamp"`
	IncludeRelationshipInfo       bool `json:"include_relationship_info"`
	LatestBestiesReelMedia        bool `json:"latest_besties_reel_media"`
	LatestReelMedia               bool `json:"latest_reel_media"`
}

// TimelineVariables is the variables document of the timeline query
type TimelineVariables struct {
	Data     TimelineData `json:"data"`
	Username string       `json:"username"`
	After    string       `json:"after,omitempty"`
}

// NewTimelineVariables builds the variables for one page. An empty cursor requests the first page.
func NewTimelineVariables(username, after string) TimelineVariables {
	return TimelineVariables{
		Data: TimelineData{
			Count:                         DefaultPageSize,
			IncludeReelMediaSeenTimestamp: true,
			IncludeRelationshipInfo:       true,
			LatestBestiesReelMedia:        true,
			LatestReelMedia:               true,
		},
		Username: username,
		After:    after,
	}
}

// GetProfileURL constructs the URL for fetching a user's profile info
func GetProfileURL(baseURL, username string) string {
	params := url.Values{}
	params.Set("username", username)
	params.Set("hl", "en")

	return fmt.Sprintf("%s%s?%s", baseURL, ProfileEndpoint, params.Encode())
}

// GetTimelineURL constructs the URL for one timeline page
func GetTimelineURL(baseURL, docID string, vars TimelineVariables) (string, error) {
	encoded, err := json.Marshal(vars)
	if err != nil {
		return "", fmt.Errorf("failed to encode timeline variables: %w", err)
	}

	params := url.Values{}
	params.Set("doc_id", docID)
	params.Set("variables", string(encoded))

	return fmt.Sprintf("%s%s?%s", baseURL, TimelineEndpoint, params.Encode()), nil
}

// GetUserProfileURL constructs the public profile URL for a user
func GetUserProfileURL(baseURL, username string) string {
	if username == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s/", baseURL, username)
}

// IsValidUsername checks if a username is valid according to Instagram rules
func IsValidUsername(username string) bool {
	if username == "" || len(username) > 30 {
		return false
	}

	// Instagram usernames can only contain letters, numbers, periods, and underscores
	for _, char := range username {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '.' || char == '_') {
			return false
		}
	}

	return true
}

// SanitizeUsername strips a leading @, a profile URL prefix and trailing slashes or spaces
func SanitizeUsername(username string) string {
	username = strings.TrimSpace(username)
	for _, prefix := range []string{"https://www.instagram.com/", "https://instagram.com/", "instagram.com/"} {
		username = strings.TrimPrefix(username, prefix)
	}
	username = strings.TrimPrefix(username, "@")
	return strings.TrimRight(username, "/ ")
}
