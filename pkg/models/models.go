package models

// MediaType classifies a post
type MediaType string

const (
	MediaTypeImage    MediaType = "IMAGE"
	MediaTypeVideo    MediaType = "VIDEO"
	MediaTypeCarousel MediaType = "CAROUSEL"
	MediaTypeReel     MediaType = "REEL"
)

// Profile is the canonical account record. Empty optional strings are omitted on output.
type Profile struct {
	Username          string `json:"username"`
	FullName          string `json:"full_name,omitempty"`
	Biography         string `json:"biography,omitempty"`
	FollowerCount     int64  `json:"follower_count"`
	FollowingCount    int64  `json:"following_count"`
	PostsCount        int64  `json:"posts_count"`
	ProfilePictureURL string `json:"profile_picture_url,omitempty"`
	IsVerified        bool   `json:"is_verified"`
	Category          string `json:"category,omitempty"`
	ExternalURL       string `json:"external_url,omitempty"`
}

// Location is the optional place a post was tagged with
type Location struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
	Slug string `json:"slug,omitempty"`
}

// Post is the canonical media record
type Post struct {
	PostID        string    `json:"post_id,omitempty"`
	PlatformID    string    `json:"platform_id,omitempty"`
	MediaType     MediaType `json:"media_type"`
	Caption       string    `json:"caption,omitempty"`
	LikeCount     int64     `json:"like_count"`
	CommentCount  int64     `json:"comment_count"`
	Timestamp     *int64    `json:"timestamp,omitempty"`
	DisplayURLs   []string  `json:"display_urls"`
	VideoURLs     []string  `json:"video_urls"`
	ViewCount     *int64    `json:"view_count,omitempty"`
	Location      *Location `json:"location,omitempty"`
	OwnerUsername string    `json:"owner_username,omitempty"`
}

// Key returns the de-duplication key: the shortcode when present, else the platform id
func (p Post) Key() string {
	if p.PostID != "" {
		return p.PostID
	}
	return p.PlatformID
}
