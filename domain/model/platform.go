package model

import (
	"fmt"
	"strings"
)

// Platform identifies an external social network.
type Platform string

const (
	PlatformInstagram      Platform = "instagram"
	PlatformFacebook       Platform = "facebook"
	PlatformX              Platform = "x"
	PlatformLinkedIn       Platform = "linkedin"
	PlatformTikTok         Platform = "tiktok"
	PlatformYouTube        Platform = "youtube"
	PlatformThreads        Platform = "threads"
	PlatformPinterest      Platform = "pinterest"
	PlatformBluesky        Platform = "bluesky"
	PlatformMastodon       Platform = "mastodon"
	PlatformGoogleBusiness Platform = "google_business"
)

// AllPlatforms is the canonical ordering used for listings and stats.
var AllPlatforms = []Platform{
	PlatformInstagram,
	PlatformFacebook,
	PlatformX,
	PlatformLinkedIn,
	PlatformTikTok,
	PlatformYouTube,
	PlatformThreads,
	PlatformPinterest,
	PlatformBluesky,
	PlatformMastodon,
	PlatformGoogleBusiness,
}

var platformAliases = map[string]Platform{
	"twitter": PlatformX,
	"gbp":     PlatformGoogleBusiness,
}

func (p Platform) String() string { return string(p) }

// Valid reports whether p is one of the supported platforms.
func (p Platform) Valid() bool {
	for _, known := range AllPlatforms {
		if p == known {
			return true
		}
	}
	return false
}

// EnvPrefix is the upper-case prefix used for credential environment variables.
func (p Platform) EnvPrefix() string {
	return strings.ToUpper(string(p))
}

// ParsePlatform normalises a user supplied platform name.
func ParsePlatform(s string) (Platform, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if alias, ok := platformAliases[name]; ok {
		return alias, nil
	}
	p := Platform(name)
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedPlatform, s)
	}
	return p, nil
}

// ParsePlatforms parses and de-duplicates a platform list, keeping the
// first-seen order.
func ParsePlatforms(names []string) ([]Platform, error) {
	out := make([]Platform, 0, len(names))
	seen := make(map[Platform]struct{}, len(names))
	for _, n := range names {
		p, err := ParsePlatform(n)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out, nil
}

// PlatformSet is a small helper for set arithmetic over platforms.
type PlatformSet map[Platform]struct{}

func NewPlatformSet(ps ...Platform) PlatformSet {
	s := make(PlatformSet, len(ps))
	for _, p := range ps {
		s[p] = struct{}{}
	}
	return s
}

func (s PlatformSet) Has(p Platform) bool {
	_, ok := s[p]
	return ok
}

func (s PlatformSet) Add(p Platform) { s[p] = struct{}{} }

// Filter returns the members of ps not contained in s, preserving order.
func (s PlatformSet) Filter(ps []Platform) []Platform {
	out := make([]Platform, 0, len(ps))
	for _, p := range ps {
		if !s.Has(p) {
			out = append(out, p)
		}
	}
	return out
}

// PlatformStrings converts platforms to plain strings, used for text[] columns.
func PlatformStrings(ps []Platform) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = string(p)
	}
	return out
}

// PlatformsFromStrings is the inverse of PlatformStrings. Unknown values are kept
// as-is so stored rows never fail to load.
func PlatformsFromStrings(ss []string) []Platform {
	out := make([]Platform, len(ss))
	for i, s := range ss {
		out[i] = Platform(s)
	}
	return out
}
