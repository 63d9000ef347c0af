package setup

import "strings"

// Summarize returns the short, user-visible form of err: the last non-empty
// line of its message. Single-line messages carry no useful tail, so they
// fall back to a generic sentence.
func Summarize(err error) string {
	if err == nil {
		return msgGenericFailure
	}

	var lines []string
	for _, line := range strings.Split(err.Error(), "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) < 2 {
		return msgGenericFailure
	}
	return strings.TrimSpace(lines[len(lines)-1])
}
