package topics

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	"github.com/vartanbeno/go-reddit/v2/reddit"
)

type hotLister interface {
	HotPosts(ctx context.Context, subreddit string, opts *reddit.ListOptions) ([]*reddit.Post, *reddit.Response, error)
}

// Reddit turns hot post titles of a subreddit into topics.
type Reddit struct {
	posts hotLister
	log   zerolog.Logger
}

func NewReddit(userAgent string, log zerolog.Logger) (*Reddit, error) {
	client, err := reddit.NewReadonlyClient(reddit.WithUserAgent(userAgent))
	if err != nil {
		return nil, fmt.Errorf("reddit client: %w", err)
	}
	return &Reddit{posts: client.Subreddit, log: log.With().Str("component", "topics").Logger()}, nil
}

// tagPrefix matches leading markers such as "ELI5:" or "[Serious]".
var tagPrefix = regexp.MustCompile(`^(?i)(\[[^\]]*\]\s*|(eli5|til)\b\s*[:\-]?\s*)+`)

// Hot returns up to limit topics. Stickied and NSFW posts are skipped.
func (r *Reddit) Hot(ctx context.Context, subreddit string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 5
	}
	subreddit = strings.TrimPrefix(strings.TrimSpace(subreddit), "r/")

	// Over-fetch so skipped posts do not starve the result.
	posts, _, err := r.posts.HotPosts(ctx, subreddit, &reddit.ListOptions{Limit: limit * 3})
	if err != nil {
		return nil, fmt.Errorf("hot posts r/%s: %w", subreddit, err)
	}

	var out []string
	for _, p := range posts {
		if p == nil || p.Stickied || p.NSFW {
			continue
		}
		title := strings.TrimSpace(tagPrefix.ReplaceAllString(p.Title, ""))
		if title == "" {
			continue
		}
		out = append(out, title)
	}
	out = normalize(out)
	if len(out) > limit {
		out = out[:limit]
	}

	r.log.Info().Str("subreddit", subreddit).Int("posts", len(posts)).Int("topics", len(out)).Msg("reddit topics")
	return out, nil
}
