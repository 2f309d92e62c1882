package tgui

import (
	"html"
	"strings"
)

// H represents HTML that is safe to pass to Telegram when ParseMode="HTML".
// Values of type H should be treated as already-escaped.
type H string

func (h H) String() string { return string(h) }

// Esc escapes text for Telegram HTML parse mode.
func Esc(s string) H { return H(html.EscapeString(s)) }

// Raw marks a string as already-safe HTML.
func Raw(s string) H { return H(s) }

func wrap(tag string, inner H) H { return H("<" + tag + ">" + inner.String() + "</" + tag + ">") }

func B(s string) H { return wrap("b", Esc(s)) }

// Field renders "icon <b>label:</b> value" with value escaped.
func Field(icon, label, value string) H {
	return H(icon + " " + B(label+":").String() + " " + Esc(value).String())
}

// JoinH joins safe HTML parts with sep, skipping blank parts.
func JoinH(sep string, parts ...H) H {
	if len(parts) == 0 {
		return ""
	}
	ss := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p.String()) == "" {
			continue
		}
		ss = append(ss, p.String())
	}
	return H(strings.Join(ss, sep))
}

// Lines accumulates message lines. Blank lines are kept, unlike JoinH.
type Lines []H

func (l *Lines) Add(h H) { *l = append(*l, h) }
func (l *Lines) Blank() { *l = append(*l, "") }

func (l Lines) String() string {
	ss := make([]string, len(l))
	for i, h := range l {
		ss[i] = h.String()
	}
	return strings.Join(ss, "\n")
}
