package slug

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	nonWord     = regexp.MustCompile(`[^\w\s-]`)
	spaces      = regexp.MustCompile(`[\s_]+`)
	multiHyphen = regexp.MustCompile(`--+`)
	edgeHyphens = regexp.MustCompile(`^-+|-+$`)
)

// Make converts text to a URL-friendly slug:
// "Front Bumper Swift" -> "front-bumper-swift".
func Make(text string) string {
	s := strings.TrimSpace(strings.ToLower(text))
	s = nonWord.ReplaceAllString(s, "")
	s = spaces.ReplaceAllString(s, "-")
	s = multiHyphen.ReplaceAllString(s, "-")
	return edgeHyphens.ReplaceAllString(s, "")
}

// Unique appends a base36 timestamp so two entities with the same name get
// distinct slugs.
func Unique(text string) string {
	return Make(text) + "-" + strconv.FormatInt(time.Now().UnixMilli(), 36)
}
