package acquire

import "regexp"

// UnknownPortal is returned when a URL does not match the portal pattern.
const UnknownPortal = "Unknown"

// portalPattern captures the first DNS label after the scheme and an
// optional "www." prefix. The label must be followed by a dot.
var portalPattern = regexp.MustCompile(`https?://(?:www\.)?([\p{L}\p{N}_]+)\.`)

// IdentifyPortal returns the portal identifier of rawURL, for example
// "ekantipur" for "https://ekantipur.com/news/2024/01/01/x.html", or
// UnknownPortal.
func IdentifyPortal(rawURL string) string {
	m := portalPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return UnknownPortal
	}
	return m[1]
}
