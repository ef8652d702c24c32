package service

import "net/url"

// ValidateURL reports whether candidate is an absolute http or https URL
// with a host.
func ValidateURL(candidate string) bool {
	parsed, err := url.Parse(candidate)
	if err != nil || !parsed.IsAbs() {
		return false
	}
	// url.Parse lower-cases the scheme.
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}
	return parsed.Host != ""
}
