// Package device derives a short, human readable device label from a
// User-Agent header. Labels end up in audit events and access logs; they are
// never used for authorization.
package device

import (
	"strings"

	"github.com/mssola/useragent"
)

const unknownLabel = "unknown"

// Label returns "<browser> on <os>" for browser clients, the bot name for
// crawlers and the raw product token for API clients such as curl.
func Label(userAgent string) string {
	userAgent = strings.TrimSpace(userAgent)
	if userAgent == "" {
		return unknownLabel
	}

	ua := useragent.New(userAgent)
	browser, _ := ua.Browser()
	if ua.Bot() {
		if browser != "" {
			return "bot:" + browser
		}
		return "bot"
	}

	os := ua.OS()
	switch {
	case browser != "" && os != "":
		label := browser + " on " + os
		if ua.Mobile() {
			label += " (mobile)"
		}
		return label
	case browser != "":
		return browser
	case os != "":
		return os
	}

	// Non-browser clients: keep only the product name.
	if name, _, ok := strings.Cut(userAgent, "/"); ok && name != "" {
		return name
	}
	return unknownLabel
}
