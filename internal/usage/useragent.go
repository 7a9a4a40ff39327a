// AngelaMos | 2026
// useragent.go

package usage

import (
	"strings"
)

const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceBot     = "bot"
	unknown       = "unknown"
)

type Client struct {
	Device  string
	Browser string
	OS      string
}

// Order matters: Edge and Opera carry "Chrome" in their agent string, and
// Chrome carries "Safari".
var browserMarkers = []struct {
	marker string
	name   string
}{
	{"edg/", "Edge"},
	{"opr/", "Opera"},
	{"opera", "Opera"},
	{"samsungbrowser", "Samsung Internet"},
	{"firefox/", "Firefox"},
	{"fxios", "Firefox"},
	{"crios", "Chrome"},
	{"chrome/", "Chrome"},
	{"safari/", "Safari"},
	{"msie", "Internet Explorer"},
	{"trident/", "Internet Explorer"},
}

var osMarkers = []struct {
	marker string
	name   string
}{
	{"windows", "Windows"},
	{"android", "Android"},
	{"iphone", "iOS"},
	{"ipad", "iOS"},
	{"ipod", "iOS"},
	{"mac os x", "macOS"},
	{"macintosh", "macOS"},
	{"cros", "ChromeOS"},
	{"linux", "Linux"},
}

var botMarkers = []string{"bot", "crawler", "spider", "curl/", "wget/", "python-requests", "go-http-client"}

// ClassifyUserAgent derives a coarse device, browser and OS from a
// User-Agent header. Empty input yields unknown for every field.
func ClassifyUserAgent(ua string) Client {
	s := strings.ToLower(strings.TrimSpace(ua))
	if s == "" {
		return Client{Device: unknown, Browser: unknown, OS: unknown}
	}

	c := Client{
		Device:  classifyDevice(s),
		Browser: unknown,
		OS:      unknown,
	}

	for _, m := range browserMarkers {
		if strings.Contains(s, m.marker) {
			c.Browser = m.name
			break
		}
	}
	for _, m := range osMarkers {
		if strings.Contains(s, m.marker) {
			c.OS = m.name
			break
		}
	}

	return c
}

func classifyDevice(s string) string {
	for _, m := range botMarkers {
		if strings.Contains(s, m) {
			return DeviceBot
		}
	}

	switch {
	case strings.Contains(s, "ipad"), strings.Contains(s, "tablet"):
		return DeviceTablet
	case strings.Contains(s, "android") && !strings.Contains(s, "mobile"):
		return DeviceTablet
	case strings.Contains(s, "mobi"), strings.Contains(s, "iphone"), strings.Contains(s, "ipod"):
		return DeviceMobile
	}

	return DeviceDesktop
}
