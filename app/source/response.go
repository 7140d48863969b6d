package source

import (
	"bytes"
	"encoding/json"
	"time"
)

// The API nests the tweet list under "data" in newer responses and at the
// top level in older ones; both shapes are accepted.
type lastPostsResponse struct {
	Data struct {
		Tweets []apiPost `json:"tweets"`
	} `json:"data"`
	Tweets []apiPost `json:"tweets"`
}

type apiPost struct {
	ID            flexString `json:"id"`
	Text          string     `json:"text"`
	CreatedAt     string     `json:"created_at"`
	PublicMetrics struct {
		LikeCount    int `json:"like_count"`
		RetweetCount int `json:"retweet_count"`
		ReplyCount   int `json:"reply_count"`
	} `json:"public_metrics"`
	Entities struct {
		Media []apiMedia `json:"media"`
	} `json:"entities"`
}

type apiMedia struct {
	Type            string `json:"type"`
	URL             string `json:"url"`
	MediaURLHTTPS   string `json:"media_url_https"`
	PreviewImageURL string `json:"preview_image_url"`
}

// flexString accepts both JSON strings and bare numbers. Post ids exceed
// float64 precision, so numeric ids are kept as their literal digits.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 1 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = flexString(str)
		return nil
	}

	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return err
	}
	*s = flexString(num.String())
	return nil
}

func (t apiPost) toPost() (Post, bool) {
	id := string(t.ID)
	if id == "" || id == "null" || t.Text == "" {
		return Post{}, false
	}

	createdAt, err := time.Parse(time.RFC3339, t.CreatedAt)
	if err != nil {
		createdAt, err = time.Parse(time.RubyDate, t.CreatedAt)
	}
	if err != nil {
		createdAt = time.Now().UTC()
	}

	var mediaURLs []string
	for _, m := range t.Entities.Media {
		switch m.Type {
		case "photo":
			if url := firstNonEmpty(m.URL, m.MediaURLHTTPS); url != "" {
				mediaURLs = append(mediaURLs, url)
			}
		case "video", "animated_gif":
			// Videos cannot be embedded, use the thumbnail instead.
			if url := firstNonEmpty(m.PreviewImageURL, m.MediaURLHTTPS); url != "" {
				mediaURLs = append(mediaURLs, url)
			}
		}
	}

	return Post{
		ID:        id,
		Text:      t.Text,
		CreatedAt: createdAt,
		Likes:     t.PublicMetrics.LikeCount,
		Reposts:   t.PublicMetrics.RetweetCount,
		Replies:   t.PublicMetrics.ReplyCount,
		URL:       "https://twitter.com/i/web/status/" + id,
		MediaURLs: mediaURLs,
	}, true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
