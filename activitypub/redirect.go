package activitypub

import (
	"strings"

	"github.com/deemkeen/fedbridge/util"
)

// RedirectWrap routes a URL through this bridge's /r/ redirect endpoint
// so that clicks federate back through us. Empty input and URLs already
// pointing at the bridge pass through unchanged, which keeps the wrap
// idempotent.
func RedirectWrap(rawURL string, hostURL string) string {
	if rawURL == "" {
		return rawURL
	}
	if strings.HasPrefix(rawURL, hostURL) {
		return rawURL
	}
	return hostURL + "r/" + rawURL
}

// RedirectUnwrapString reverses RedirectWrap on a single URL. A bridge
// actor URL (hostURL plus a bare domain) unwraps to that domain's site
// so that outbound references point at the real source.
func RedirectUnwrapString(rawURL string, hostURL string) string {
	if strings.HasPrefix(rawURL, hostURL+"r/") {
		return strings.TrimPrefix(rawURL, hostURL+"r/")
	}
	if strings.HasPrefix(rawURL, hostURL) && rawURL != hostURL {
		rest := strings.TrimPrefix(rawURL, hostURL)
		if !strings.Contains(rest, "/") {
			return "https://" + util.DomainFromLink(rest) + "/"
		}
	}
	return rawURL
}

// RedirectUnwrap walks an AS2 value (maps, lists, strings) and unwraps
// every redirect URL it finds. The input is not modified.
func RedirectUnwrap(val interface{}, hostURL string) interface{} {
	switch v := val.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, item := range v {
			out[key] = RedirectUnwrap(item, hostURL)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = RedirectUnwrap(item, hostURL)
		}
		return out
	case string:
		return RedirectUnwrapString(v, hostURL)
	}
	return val
}
