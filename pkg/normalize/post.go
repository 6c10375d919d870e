package normalize

import (
	"github.com/tidwall/gjson"
	"igextract/pkg/models"
)

var (
	postShortcode  = Rules{str("code"), str("shortcode")}
	postPlatformID = Rules{id("id"), id("pk")}
	postLikes      = Rules{count("like_count"), count("edge_liked_by.count"), count("edge_media_preview_like.count")}
	postComments   = Rules{count("comment_count"), count("edge_media_to_comment.count")}
	postTimestamp  = Rules{count("taken_at"), count("taken_at_timestamp")}
	postViews      = Rules{count("view_count"), count("video_view_count"), count("play_count")}
	postCaption    = Rules{str("caption"), str("caption.text"), str("edge_media_to_caption.edges.0.node.text")}
	displayURL     = Rules{str("image_versions2.candidates.0.url"), str("display_url")}
	videoURL       = Rules{str("video_versions.0.url"), str("video_url")}
)

// mediaRule is one row of the media type decision table
type mediaRule struct {
	match func(rec gjson.Result) bool
	media models.MediaType
}

func mediaTypeIs(code int64) func(gjson.Result) bool {
	return func(rec gjson.Result) bool {
		v := rec.Get("media_type")
		return v.Type == gjson.Number && v.Int() == code
	}
}

// mediaTable is evaluated top to bottom; the first match decides
var mediaTable = []mediaRule{
	{func(rec gjson.Result) bool { return rec.Get("product_type").Str == "clips" }, models.MediaTypeReel},
	{mediaTypeIs(2), models.MediaTypeVideo},
	{mediaTypeIs(8), models.MediaTypeCarousel},
	{mediaTypeIs(1), models.MediaTypeImage},
	{func(rec gjson.Result) bool { return truthy(rec.Get("is_video")) }, models.MediaTypeVideo},
	{func(rec gjson.Result) bool {
		return truthy(rec.Get("carousel_media_count")) ||
			truthy(rec.Get("carousel_media")) ||
			truthy(rec.Get("edge_sidecar_to_children.edges"))
	}, models.MediaTypeCarousel},
}

// MediaType classifies rec. Anything unmatched is an image.
func MediaType(rec gjson.Result) models.MediaType {
	for _, row := range mediaTable {
		if row.match(rec) {
			return row.media
		}
	}
	return models.MediaTypeImage
}

// Post builds a canonical post from one timeline item
func Post(rec gjson.Result, owner string) models.Post {
	display, video := mediaURLs(rec)

	return models.Post{
		PostID:        postShortcode.String(rec),
		PlatformID:    postPlatformID.String(rec),
		MediaType:     MediaType(rec),
		Caption:       postCaption.String(rec),
		LikeCount:     postLikes.Count(rec),
		CommentCount:  postComments.Count(rec),
		Timestamp:     postTimestamp.Optional(rec),
		DisplayURLs:   display,
		VideoURLs:     video,
		ViewCount:     postViews.Optional(rec),
		Location:      location(rec),
		OwnerUsername: owner,
	}
}

// mediaURLs walks carousel children when present, else the item itself.
// Both slices are non-nil.
func mediaURLs(rec gjson.Result) ([]string, []string) {
	display := []string{}
	video := []string{}

	collect := func(item gjson.Result) {
		if u := displayURL.String(item); u != "" {
			display = append(display, u)
		}
		if u := videoURL.String(item); u != "" {
			video = append(video, u)
		}
	}

	children := carouselChildren(rec)
	if len(children) == 0 {
		collect(rec)
		return display, video
	}
	for _, child := range children {
		collect(child)
	}
	return display, video
}

func carouselChildren(rec gjson.Result) []gjson.Result {
	if items := rec.Get("carousel_media"); items.IsArray() && len(items.Array()) > 0 {
		return items.Array()
	}

	var children []gjson.Result
	rec.Get("edge_sidecar_to_children.edges").ForEach(func(_, edge gjson.Result) bool {
		if node := edge.Get("node"); node.IsObject() {
			children = append(children, node)
		}
		return true
	})
	return children
}

func location(rec gjson.Result) *models.Location {
	loc := rec.Get("location")
	if !loc.IsObject() {
		return nil
	}
	return &models.Location{
		ID:   Rules{id("id"), id("pk")}.String(loc),
		Name: Rules{str("name")}.String(loc),
		Slug: Rules{str("slug")}.String(loc),
	}
}
