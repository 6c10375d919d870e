package normalize

import (
	"github.com/tidwall/gjson"
	"igextract/pkg/models"
)

var (
	profileUsername  = Rules{str("username")}
	profileFullName  = Rules{str("full_name")}
	profileBiography = Rules{str("biography")}
	profileFollowers = Rules{count("edge_followed_by.count"), count("follower_count")}
	profileFollowing = Rules{count("edge_follow.count"), count("following_count")}
	profilePosts     = Rules{count("edge_owner_to_timeline_media.count"), count("media_count")}
	profilePicture   = Rules{str("profile_pic_url_hd"), str("hd_profile_pic_url_info.url"), str("profile_pic_url")}
	profileCategory  = Rules{str("category_name"), str("business_category_name"), str("category")}
	profileExternal  = Rules{str("external_url")}
)

// Profile builds a canonical profile from a located user record.
// The requested username fills in when the record carries none.
func Profile(rec gjson.Result, requestedUsername string) models.Profile {
	username := profileUsername.String(rec)
	if username == "" {
		username = requestedUsername
	}

	return models.Profile{
		Username:          username,
		FullName:          profileFullName.String(rec),
		Biography:         profileBiography.String(rec),
		FollowerCount:     profileFollowers.Count(rec),
		FollowingCount:    profileFollowing.Count(rec),
		PostsCount:        profilePosts.Count(rec),
		ProfilePictureURL: profilePicture.String(rec),
		IsVerified:        rec.Get("is_verified").Type == gjson.True,
		Category:          profileCategory.String(rec),
		ExternalURL:       profileExternal.String(rec),
	}
}
