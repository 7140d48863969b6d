package notify

import (
	"fmt"
	"strings"

	"github.com/postwatch/postwatch/app/source"
)

// Discord's embed description limit is 4096; leave room for formatting.
const maxTextLength = 3900

func formatCount(n int) string {
	switch {
	case n >= 1000000:
		return fmt.Sprintf("%.1fM", float64(n)/1000000)
	case n >= 1000:
		return fmt.Sprintf("%.1fk", float64(n)/1000)
	default:
		return fmt.Sprintf("%d", n)
	}
}

func formatMetrics(post source.Post) string {
	return fmt.Sprintf("❤️ %s | 🔁 %s | 💬 %s",
		formatCount(post.Likes), formatCount(post.Reposts), formatCount(post.Replies))
}

// formatPostText prepares the embed description: reposts get a quote-style
// header, and overlong text is truncated at a word boundary with a pointer
// to the full post.
func formatPostText(post source.Post) string {
	text := post.Text

	if strings.HasPrefix(text, "RT @") {
		if header, rest, found := strings.Cut(text, ": "); found {
			text = fmt.Sprintf("🔁 **%s**\n\n%s", header, rest)
		}
	}

	runes := []rune(text)
	if len(runes) > maxTextLength {
		truncated := runes[:maxTextLength-50]
		if lastSpace := lastIndexRune(truncated, ' '); lastSpace > maxTextLength-100 {
			truncated = truncated[:lastSpace]
		}
		text = string(truncated) + "\n\n... *(truncated - click link for full post)*"
	}

	return text
}

func lastIndexRune(runes []rune, r rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == r {
			return i
		}
	}
	return -1
}
