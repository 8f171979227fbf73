// Package extract turns raw text pulled out of a PDF (or pasted by a user)
// into question records. It is a line-oriented heuristic, not a grammar:
// malformed source produces fewer questions, never an error. Every line the
// heuristic could not place is reported back so a reviewer can see what was
// skipped instead of guessing from a short result.
package extract

import (
	"regexp"
	"strings"
)

const (
	// MinOptions is the smallest option count a block needs to be accepted
	// as a question. Blocks below it are extraction noise more often than
	// real questions.
	MinOptions = 3

	// MaxQuestions bounds output size against adversarial input.
	MaxQuestions = 100
)

type Question struct {
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

type UnparsedLine struct {
	Line   string `json:"line"`
	Reason string `json:"reason"`
}

type Extraction struct {
	Questions []Question     `json:"questions"`
	Unparsed  []UnparsedLine `json:"unparsed,omitempty"`
	Truncated bool           `json:"truncated,omitempty"`
}

var (
	questionStartRe = regexp.MustCompile(`^(\d{1,4})\s*[.)\-]\s*(.*)$`)
	optionRe        = regexp.MustCompile(`^([A-Da-d])\s*[.)]\s*(.*)$`)
	// Kannada option markers, transliterated to A-D as a best-effort
	// fallback for regional exam papers.
	kannadaOptionRe = regexp.MustCompile(`^(ಎ|ಬಿ|ಸಿ|ಡಿ)\s*[.)]\s*(.*)$`)
)

var kannadaLetters = map[string]string{
	"ಎ":  "A",
	"ಬಿ": "B",
	"ಸಿ": "C",
	"ಡಿ": "D",
}

// Parse extracts questions from raw text. It is pure and deterministic:
// the same input always yields the same Extraction.
func Parse(text string) Extraction {
	var out Extraction

	var current *Question
	flush := func() {
		if current == nil {
			return
		}
		q := *current
		current = nil
		q.Text = strings.TrimSpace(q.Text)
		if len(q.Options) < MinOptions {
			if q.Text != "" {
				out.Unparsed = append(out.Unparsed, UnparsedLine{Line: q.Text, Reason: "too_few_options"})
			}
			return
		}
		if len(out.Questions) >= MaxQuestions {
			out.Truncated = true
			return
		}
		out.Questions = append(out.Questions, q)
	}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if m := questionStartRe.FindStringSubmatch(line); m != nil {
			flush()
			current = &Question{Text: strings.TrimSpace(m[2]), Options: []string{}}
			continue
		}

		if letter, body, ok := matchOption(line); ok {
			if current == nil {
				out.Unparsed = append(out.Unparsed, UnparsedLine{Line: line, Reason: "option_outside_question"})
				continue
			}
			opt := body
			if opt == "" {
				opt = letter
			}
			current.Options = append(current.Options, opt)
			continue
		}

		switch {
		case current == nil:
			out.Unparsed = append(out.Unparsed, UnparsedLine{Line: line, Reason: "orphan_line"})
		case len(current.Options) == 0:
			// multi-line question wrapping
			if current.Text == "" {
				current.Text = line
			} else {
				current.Text += " " + line
			}
		default:
			out.Unparsed = append(out.Unparsed, UnparsedLine{Line: line, Reason: "trailing_line"})
		}
	}
	flush()

	return out
}

func matchOption(line string) (letter, body string, ok bool) {
	if m := optionRe.FindStringSubmatch(line); m != nil {
		return strings.ToUpper(m[1]), strings.TrimSpace(m[2]), true
	}
	if m := kannadaOptionRe.FindStringSubmatch(line); m != nil {
		return kannadaLetters[m[1]], strings.TrimSpace(m[2]), true
	}
	return "", "", false
}
