package server

import "regexp"

// Operator CSS is shipped to arbitrary third-party pages, so anything that
// can load external resources or execute script is stripped before serving.
var cssSanitizers = []struct {
	re          *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`(?i)url\s*\([^)]*\)`), "/* url removed */"},
	{regexp.MustCompile(`(?i)@import\s+[^;]+;?`), "/* import removed */"},
	{regexp.MustCompile(`(?i)expression\s*\([^)]*\)`), "/* expression removed */"},
	{regexp.MustCompile(`(?i)javascript\s*:`), "/* removed */"},
	{regexp.MustCompile(`(?i)behavior\s*:`), "/* removed */"},
	{regexp.MustCompile(`(?i)-moz-binding\s*:`), "/* removed */"},
}

func sanitizeCSS(css string) string {
	for _, s := range cssSanitizers {
		css = s.re.ReplaceAllString(css, s.replacement)
	}
	return css
}
