// internal/model/platform.go
package model

import "strings"

// PlatformOther is the bucket for channels outside the known set.
const PlatformOther = "other"

type PlatformInfo struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Icon  string `json:"icon"`
}

var knownPlatforms = map[string]PlatformInfo{
	"pinterest": {Name: "pinterest", Label: "Pinterest", Icon: "📌"},
	"youtube":   {Name: "youtube", Label: "YouTube", Icon: "▶️"},
	"reddit":    {Name: "reddit", Label: "Reddit", Icon: "👽"},
	"facebook":  {Name: "facebook", Label: "Facebook", Icon: "📘"},
	"linkedin":  {Name: "linkedin", Label: "LinkedIn", Icon: "💼"},
	"other":     {Name: "other", Label: "Other", Icon: "🌐"},
}

// NormalizePlatform lower-cases and trims a platform name. Platform stays
// an open string: unknown names are kept as-is, only empty becomes "other".
func NormalizePlatform(p string) string {
	p = strings.ToLower(strings.TrimSpace(p))
	if p == "" {
		return PlatformOther
	}
	return p
}

// PlatformBucket returns the reporting bucket for p: its own name when
// known, "other" otherwise.
func PlatformBucket(p string) string {
	p = NormalizePlatform(p)
	if _, ok := knownPlatforms[p]; ok {
		return p
	}
	return PlatformOther
}

func LookupPlatform(p string) PlatformInfo {
	return knownPlatforms[PlatformBucket(p)]
}
