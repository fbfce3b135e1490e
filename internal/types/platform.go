package types

// Platform identifies where a tracked link was shared.
type Platform string

const (
	PlatformYouTube    Platform = "YOUTUBE"
	PlatformInstagram  Platform = "INSTAGRAM"
	PlatformTikTok     Platform = "TIKTOK"
	PlatformTwitter    Platform = "TWITTER"
	PlatformTwitch     Platform = "TWITCH"
	PlatformDiscord    Platform = "DISCORD"
	PlatformNewsletter Platform = "NEWSLETTER"
	PlatformBlog       Platform = "BLOG"
	PlatformOther      Platform = "OTHER"
)

func (p Platform) Valid() bool {
	switch p {
	case PlatformYouTube, PlatformInstagram, PlatformTikTok, PlatformTwitter,
		PlatformTwitch, PlatformDiscord, PlatformNewsletter, PlatformBlog, PlatformOther:
		return true
	}
	return false
}

// DefaultDecay returns the starting per-platform time-decay constant (per hour).
// Ephemeral surfaces (chat, live streams) decay fast; evergreen surfaces
// (video, blog posts) keep converting for days.
func DefaultDecay(p Platform) float64 {
	switch p {
	case PlatformTwitch, PlatformDiscord:
		return 0.50
	case PlatformTwitter:
		return 0.25
	case PlatformInstagram, PlatformTikTok:
		return 0.15
	case PlatformNewsletter:
		return 0.08
	case PlatformYouTube, PlatformBlog:
		return 0.05
	default:
		return 0.10
	}
}
