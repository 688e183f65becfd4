// Package classify sniffs raw file content and decides whether it is a
// standard SVG document or an Android Vector Drawable.
//
// Detection is pattern based rather than a full XML parse, so malformed or
// binary input simply fails to match.
package classify

import "regexp"

// Kind labels a classified image file.
type Kind string

// Known kinds. KindNone means the content is not a recognized image.
const (
	KindNone          Kind = ""
	KindSVG           Kind = "svg"
	KindAndroidVector Kind = "android-vector"
)

var (
	svgOpenTag   = regexp.MustCompile(`(?i)<svg[^>]*>`)
	svgCloseTag  = regexp.MustCompile(`(?i)</svg>`)
	svgNamespace = regexp.MustCompile(`(?i)xmlns="http://www\.w3\.org/2000/svg"`)
	svgGraphic   = regexp.MustCompile(`(?i)<(path|rect|circle|ellipse|line|polyline|polygon|text|g|use|image)[^>]*>`)

	androidNamespace = regexp.MustCompile(`(?i)xmlns:android="http://schemas\.android\.com/apk/res/android"`)
	vectorOpenTag    = regexp.MustCompile(`(?i)<vector[^>]*>`)
	vectorCloseTag   = regexp.MustCompile(`(?i)</vector>`)
	vectorPath       = regexp.MustCompile(`(?i)<path[^>]*>`)
)

// Classify returns the kind of image described by content. Android vector
// drawables take priority when content matches both heuristics.
func Classify(content string) Kind {
	switch {
	case IsAndroidVector(content):
		return KindAndroidVector
	case IsSVG(content):
		return KindSVG
	default:
		return KindNone
	}
}

// IsSVG reports whether content has an svg element pair and either the SVG
// namespace declaration or at least one graphic element.
func IsSVG(content string) bool {
	if !svgOpenTag.MatchString(content) || !svgCloseTag.MatchString(content) {
		return false
	}
	return svgNamespace.MatchString(content) || svgGraphic.MatchString(content)
}

// IsAndroidVector reports whether content is an Android Vector Drawable:
// android namespace, a vector element pair and at least one path.
func IsAndroidVector(content string) bool {
	return androidNamespace.MatchString(content) &&
		vectorOpenTag.MatchString(content) &&
		vectorCloseTag.MatchString(content) &&
		vectorPath.MatchString(content)
}

// Valid reports whether k is one of the image kinds.
func (k Kind) Valid() bool {
	return k == KindSVG || k == KindAndroidVector
}
