// Package fetch - platform.go provides content platform detection and
// platform-specific selectors.
package fetch

import (
	"net/url"
	"strings"
)

// Platform represents a known content platform.
type Platform string

const (
	// PlatformYouTube is youtube.com / youtu.be
	PlatformYouTube Platform = "youtube"
	// PlatformTikTok is tiktok.com
	PlatformTikTok Platform = "tiktok"
	// PlatformVimeo is vimeo.com
	PlatformVimeo Platform = "vimeo"
	// PlatformWeb is a general web page (articles, blogs, retailers)
	PlatformWeb Platform = "web"
)

// DetectPlatform identifies the content platform from a URL.
func DetectPlatform(urlStr string) Platform {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return PlatformWeb
	}

	host := strings.ToLower(parsed.Host)

	if strings.Contains(host, "youtube.com") || strings.Contains(host, "youtu.be") {
		return PlatformYouTube
	}

	if strings.Contains(host, "tiktok.com") {
		return PlatformTikTok
	}

	if strings.Contains(host, "vimeo.com") {
		return PlatformVimeo
	}

	return PlatformWeb
}

// VideoID extracts the video identifier from a YouTube watch or share URL.
// Returns an empty string for non-YouTube URLs.
func VideoID(urlStr string) string {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return ""
	}

	host := strings.ToLower(parsed.Host)

	if strings.Contains(host, "youtu.be") {
		return strings.Trim(parsed.Path, "/")
	}

	if strings.Contains(host, "youtube.com") {
		if id := parsed.Query().Get("v"); id != "" {
			return id
		}
		// Shorts and embed URLs carry the id as the last path segment.
		for _, prefix := range []string{"/shorts/", "/embed/"} {
			if strings.HasPrefix(parsed.Path, prefix) {
				return strings.Trim(strings.TrimPrefix(parsed.Path, prefix), "/")
			}
		}
	}

	return ""
}

// PlatformContentSelectors returns content selectors optimized for a specific platform.
// Video platforms are scraped only as a fallback when their APIs fail, so the
// selectors target description blocks.
func PlatformContentSelectors(platform Platform) []string {
	switch platform {
	case PlatformYouTube:
		return []string{
			"#description",
			"ytd-watch-metadata",
			"#meta-contents",
			"main",
		}
	case PlatformTikTok:
		return []string{
			"[data-e2e='browse-video-desc']",
			"[data-e2e='video-desc']",
			"main",
		}
	case PlatformVimeo:
		return []string{
			".clip_details",
			".description",
			"main",
		}
	default:
		return ArticleSelectors()
	}
}

// PlatformNoiseSelectors returns noise exclusion selectors for a specific platform.
func PlatformNoiseSelectors(platform Platform) []string {
	// Common noise selectors for all platforms
	common := []string{
		// Comment sections
		"#comments",
		".comments",
		".comment-section",
		"[data-e2e='comment-list']",

		// Related / recommended content rails
		".related-posts",
		".related-articles",
		".recommended",
		"#related",

		// Newsletter and subscription prompts
		".newsletter-signup",
		".subscribe-banner",
		".email-capture",

		// Social and share buttons
		".social-share",
		".share-buttons",
		".social-links",

		// Cookie and GDPR
		".cookie-banner",
		".cookie-consent",
		".gdpr-notice",
	}

	switch platform {
	case PlatformYouTube:
		return append(common,
			"#secondary",
			"ytd-comments",
			"#chat",
		)
	case PlatformTikTok:
		return append(common,
			"[data-e2e='recommend-list-item-container']",
			"[data-e2e='comment-level-1']",
		)
	case PlatformVimeo:
		return append(common,
			".related_clips",
			".comments_wrapper",
		)
	default:
		return common
	}
}
