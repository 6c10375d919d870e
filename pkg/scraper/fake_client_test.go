package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"igextract/pkg/instagram"
)

// response is one scripted reply
type response struct {
	body []byte
	err  error
}

// fakeClient replays scripted responses per endpoint. When a script runs
// out the last response is repeated.
type fakeClient struct {
	mu       sync.Mutex
	profile  []response
	document []response
	pages    []response

	profileCalls  int
	documentCalls int
	variables     []instagram.TimelineVariables
}

func next(script []response, calls int) ([]byte, error) {
	if len(script) == 0 {
		return nil, fmt.Errorf("no scripted response")
	}
	if calls >= len(script) {
		calls = len(script) - 1
	}
	return script[calls].body, script[calls].err
}

func (c *fakeClient) FetchProfileInfo(ctx context.Context, username string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	body, err := next(c.profile, c.profileCalls)
	c.profileCalls++
	return body, err
}

func (c *fakeClient) FetchTimelinePage(ctx context.Context, vars instagram.TimelineVariables) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	body, err := next(c.pages, len(c.variables))
	c.variables = append(c.variables, vars)
	return body, err
}

func (c *fakeClient) FetchProfilePage(ctx context.Context, username string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	body, err := next(c.document, c.documentCalls)
	c.documentCalls++
	return body, err
}

func (c *fakeClient) pageCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.variables)
}

// recordingSleeper returns immediately and records requested delays
type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

// timelinePage renders a GraphQL timeline body holding one node per code
func timelinePage(hasNext bool, cursor string, codes ...string) response {
	edges := make([]map[string]interface{}, 0, len(codes))
	for i, code := range codes {
		node := map[string]interface{}{
			"media_type": 1,
			"like_count": i,
			"taken_at":   1700000000 + i,
			"image_versions2": map[string]interface{}{
				"candidates": []map[string]interface{}{{"url": "https://cdn.example/" + code + ".jpg"}},
			},
		}
		if code != "" {
			node["code"] = code
		}
		edges = append(edges, map[string]interface{}{"node": node})
	}

	pageInfo := map[string]interface{}{"has_next_page": hasNext}
	if cursor != "" {
		pageInfo["end_cursor"] = cursor
	}

	body, err := json.Marshal(map[string]interface{}{
		"data": map[string]interface{}{
			"xdt_api__v1__feed__user_timeline_graphql_connection": map[string]interface{}{
				"edges":     edges,
				"page_info": pageInfo,
			},
		},
	})
	if err != nil {
		panic(err)
	}
	return response{body: body}
}

const profileInfoBody = `{
	"status": "ok",
	"data": {
		"user": {
			"username": "natgeo",
			"full_name": "National Geographic",
			"biography": "Experience the world",
			"edge_followed_by": {"count": 280000000},
			"edge_follow": {"count": 150},
			"edge_owner_to_timeline_media": {"count": 30000},
			"is_verified": true,
			"profile_pic_url_hd": "https://cdn.example/natgeo.jpg"
		}
	}
}`

const profilePageBody = `<!DOCTYPE html>
<html><head>
<script type="application/json">{"require":[{"user":{"username":"natgeo","follower_count":42,"full_name":"National Geographic"}}]}</script>
</head><body></body></html>`

const emptyPageBody = `<!DOCTYPE html><html><head><title>Instagram</title></head><body></body></html>`
