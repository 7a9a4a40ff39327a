// AngelaMos | 2026
// origin.go

package admission

import (
	"net/url"
	"strings"
)

// OriginHost extracts the lowercase hostname from an Origin or Referer
// value. It returns false when no hostname can be found.
func OriginHost(origin string) (string, bool) {
	origin = strings.TrimSpace(origin)
	if origin == "" || origin == "null" {
		return "", false
	}

	u, err := url.Parse(origin)
	if err != nil {
		return "", false
	}

	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if host == "" {
		return "", false
	}
	return host, true
}

// HostAllowed matches host against the allow-list on label boundaries:
// "example.com" admits "example.com" and "shop.example.com" but not
// "badexample.com" or "example.com.evil.com".
func HostAllowed(host string, allowed []string) bool {
	for _, d := range allowed {
		d = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(d)), ".")
		if d == "" {
			continue
		}
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// OriginAllowed applies the allow-list to a raw header value. An empty
// allow-list or an absent origin imposes no restriction; an origin that is
// present but unparseable is refused when a list is configured.
func OriginAllowed(origin string, allowed []string) bool {
	if len(allowed) == 0 || strings.TrimSpace(origin) == "" {
		return true
	}
	host, ok := OriginHost(origin)
	if !ok {
		return false
	}
	return HostAllowed(host, allowed)
}
