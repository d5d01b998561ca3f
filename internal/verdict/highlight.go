package verdict

import (
	"encoding/json"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"

	"github.com/sprite-ai/adreview/internal/model"
)

// highlightStyle matches the console's Dracula palette.
const highlightStyle = "dracula"

// Line is one line of a highlighted verdict document.
type Line []Span

// Span is a run of text drawn in one color.
type Span struct {
	Text  string
	Color string // hex, empty for the terminal default
}

// Text joins the spans without color.
func (l Line) Text() string {
	var b strings.Builder
	for _, s := range l {
		b.WriteString(s.Text)
	}
	return b.String()
}

// RawJSON pretty-prints a review result for the detail panel.
func RawJSON(r *model.ReviewResult) string {
	if r == nil {
		return "null"
	}
	out, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "null"
	}
	return string(out)
}

// HighlightJSON colors a JSON document. It always returns one Line per
// input line; if tokenizing fails the lines come back uncolored.
func HighlightJSON(src string) []Line {
	want := strings.Count(src, "\n") + 1

	lexer := lexers.Get("json")
	if lexer == nil {
		return uncolored(src)
	}
	it, err := chroma.Coalesce(lexer).Tokenise(nil, src)
	if err != nil {
		return uncolored(src)
	}
	palette := styles.Get(highlightStyle)

	out := make([]Line, 0, want)
	for _, toks := range chroma.SplitTokensIntoLines(it.Tokens()) {
		var line Line
		for _, tok := range toks {
			text := strings.TrimSuffix(tok.Value, "\n")
			if text == "" {
				continue
			}
			line = append(line, Span{Text: text, Color: colorOf(palette, tok.Type)})
		}
		out = append(out, line)
	}

	// the lexer may add a final newline of its own
	if len(out) > want {
		out = out[:want]
	}
	for len(out) < want {
		out = append(out, nil)
	}
	return out
}

func uncolored(src string) []Line {
	raw := strings.Split(src, "\n")
	out := make([]Line, len(raw))
	for i, s := range raw {
		out[i] = Line{{Text: s}}
	}
	return out
}

func colorOf(palette *chroma.Style, tt chroma.TokenType) string {
	if e := palette.Get(tt); e.Colour.IsSet() {
		return e.Colour.String()
	}
	return ""
}
