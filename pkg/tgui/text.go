package tgui

import (
	"strings"
	"unicode/utf8"
)

// TextLimit keeps chunks under Telegram's 4096-character message limit.
const TextLimit = 4000

// TruncRunes shortens s to n runes, marking the cut with "…".
func TruncRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "…"
}

// Split breaks s into chunks of at most limit runes for separate messages.
// Chunks end at a newline where one is reasonably close to the limit, and
// with html set a chunk never ends inside a tag.
func Split(s string, limit int, html bool) []string {
	if limit <= 0 {
		limit = TextLimit
	}
	rs := []rune(s)
	var out []string
	for len(rs) > limit {
		cut := cutPoint(rs, limit, html)
		out = append(out, strings.TrimRight(string(rs[:cut]), "\n"))
		rs = rs[cut:]
		for len(rs) > 0 && rs[0] == '\n' {
			rs = rs[1:]
		}
	}
	if len(rs) > 0 || len(out) == 0 {
		out = append(out, string(rs))
	}
	return out
}

// cutPoint picks where the first chunk of rs ends; len(rs) > limit.
func cutPoint(rs []rune, limit int, html bool) int {
	cut := limit
	// Only take a newline that keeps the chunk at least a third full.
	for i := limit - 1; i >= limit/3 && i > 0; i-- {
		if rs[i] == '\n' {
			cut = i + 1
			break
		}
	}
	if html {
		if open := lastIndex(rs[:cut], '<'); open > 1 && open > lastIndex(rs[:cut], '>') {
			cut = open
		}
	}
	return cut
}

func lastIndex(rs []rune, r rune) int {
	for i := len(rs) - 1; i >= 0; i-- {
		if rs[i] == r {
			return i
		}
	}
	return -1
}
