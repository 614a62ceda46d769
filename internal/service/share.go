package service

import (
	"net/url"

	"github.com/suryatejavarmaa/DigiMark-sub000/internal/models"
)

const (
	TWITTER_INTENT_URL  = "https://twitter.com/intent/tweet"
	LINKEDIN_SHARE_URL  = "https://www.linkedin.com/sharing/share-offsite/"
	FACEBOOK_SHARER_URL = "https://www.facebook.com/sharer/sharer.php"
	THREADS_INTENT_URL  = "https://www.threads.net/intent/post"
)

// ManualFallback returns the compose URL for platforms that accept prefilled posts.
// Platforms without one (instagram, tiktok) fall back to copying the caption.
func ManualFallback(platform string, content models.Content) (string, models.ManualAction) {
	params := url.Values{}
	var base string

	switch normalizePlatform(platform) {
	case "twitter", "x":
		base = TWITTER_INTENT_URL
		params.Add("text", content.Caption)
		if content.MediaRef != "" {
			params.Add("url", content.MediaRef)
		}
	case "threads":
		base = THREADS_INTENT_URL
		params.Add("text", content.Caption)
	case "linkedin":
		if content.MediaRef == "" {
			return "", models.ManualCopyCaption
		}
		base = LINKEDIN_SHARE_URL
		params.Add("url", content.MediaRef)
	case "facebook":
		if content.MediaRef == "" {
			return "", models.ManualCopyCaption
		}
		base = FACEBOOK_SHARER_URL
		params.Add("u", content.MediaRef)
		params.Add("quote", content.Caption)
	default:
		return "", models.ManualCopyCaption
	}

	return base + "?" + params.Encode(), models.ManualCompose
}
