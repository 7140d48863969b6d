package source

import (
	"time"
)

// Post is one post returned by the content source API.
type Post struct {
	ID        string
	Text      string
	CreatedAt time.Time
	Likes     int
	Reposts   int
	Replies   int
	URL       string
	MediaURLs []string
}
