package mailing

import (
	"fmt"
	"net/url"
	"strings"
)

// hrefMarker locates double-quoted href attributes.
const hrefMarker = `href="`

// RewriteLinks routes every external link through the click-tracking
// redirect. Anchors, mailto links and links already pointing at the
// tracking origin are left alone.
func RewriteLinks(htmlBody, baseURL, messageID string) string {
	var out strings.Builder
	rest := htmlBody

	for {
		idx := strings.Index(rest, hrefMarker)
		if idx < 0 {
			out.WriteString(rest)
			break
		}
		start := idx + len(hrefMarker)
		end := strings.Index(rest[start:], `"`)
		if end < 0 {
			out.WriteString(rest)
			break
		}

		target := rest[start : start+end]
		out.WriteString(rest[:start])
		if rewritable(target, baseURL) {
			out.WriteString(fmt.Sprintf("%s/track/click/%s?url=%s",
				baseURL, messageID, url.QueryEscape(target)))
		} else {
			out.WriteString(target)
		}
		rest = rest[start+end:]
	}

	return out.String()
}

// rewritable reports whether a link target should go through the redirect.
func rewritable(target, baseURL string) bool {
	lower := strings.ToLower(target)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return false
	}
	// Tracking and unsubscribe links must not be double-wrapped.
	return !strings.HasPrefix(target, baseURL)
}

// InjectPixel appends the open-tracking pixel, preferably just before the
// closing body tag.
func InjectPixel(htmlBody, baseURL, messageID string) string {
	pixel := fmt.Sprintf(`<img src="%s/track/open/%s" width="1" height="1" alt="" style="display:none"/>`,
		baseURL, messageID)

	idx := strings.LastIndex(strings.ToLower(htmlBody), "</body>")
	if idx < 0 {
		return htmlBody + pixel
	}
	return htmlBody[:idx] + pixel + htmlBody[idx:]
}

// InjectUnsubscribeLink appends an unsubscribe footer, preferably just
// before the closing body tag.
func InjectUnsubscribeLink(htmlBody, unsubURL string) string {
	footer := fmt.Sprintf(`<div style="margin-top:24px;font-size:12px;color:#888;text-align:center">`+
		`<a href="%s" style="color:#888">Unsubscribe</a></div>`, unsubURL)

	idx := strings.LastIndex(strings.ToLower(htmlBody), "</body>")
	if idx < 0 {
		return htmlBody + footer
	}
	return htmlBody[:idx] + footer + htmlBody[idx:]
}
