// Package convert rewrites Android Vector Drawable markup into SVG markup.
//
// The conversion is a best-effort sequence of textual substitutions. It does
// not parse XML, so unusual attribute layouts may produce imperfect output.
package convert

import (
	"log/slog"
	"regexp"
	"strings"
)

// SVGNamespace is injected into the root element when missing.
const SVGNamespace = `xmlns="http://www.w3.org/2000/svg"`

type rewrite struct {
	re   *regexp.Regexp
	repl string
}

// rules run in order; the attribute renames rely on the android: prefix
// already being stripped.
var rules = []rewrite{
	{regexp.MustCompile(`\s*xmlns:android="[^"]*"`), ""},
	{regexp.MustCompile(`android:`), ""},
	{regexp.MustCompile(`<vector\b`), "<svg"},
	{regexp.MustCompile(`</vector>`), "</svg>"},
	{regexp.MustCompile(`\bviewportWidth="([^"]*)"`), `viewBox="0 0 $1 $1"`},
	{regexp.MustCompile(`\s*\bviewportHeight="[^"]*"`), ""},
	{regexp.MustCompile(`\bpathData=`), "d="},
	{regexp.MustCompile(`\bfillColor=`), "fill="},
	{regexp.MustCompile(`\bfillType=`), "fill-rule="},
	{regexp.MustCompile(`\bfillAlpha=`), "fill-opacity="},
	{regexp.MustCompile(`\bstrokeColor=`), "stroke="},
	{regexp.MustCompile(`\bstrokeWidth=`), "stroke-width="},
	{regexp.MustCompile(`\bstrokeLineCap=`), "stroke-linecap="},
	{regexp.MustCompile(`\bstrokeLineJoin=`), "stroke-linejoin="},
	{regexp.MustCompile(`\bstrokeAlpha=`), "stroke-opacity="},
	{regexp.MustCompile(`<group\b`), "<g"},
	{regexp.MustCompile(`</group>`), "</g>"},
}

// VectorToSVG converts Android Vector Drawable content to SVG. Width and
// height keep their dp suffix and the viewBox reuses viewportWidth for both
// dimensions. If anything goes wrong the input is returned unchanged.
func VectorToSVG(content string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("vector conversion failed, returning original content", "panic", r)
			out = content
		}
	}()

	out = content
	for _, r := range rules {
		out = r.re.ReplaceAllString(out, r.repl)
	}

	if !strings.Contains(out, SVGNamespace) {
		out = strings.Replace(out, "<svg", "<svg "+SVGNamespace, 1)
	}
	return out
}
