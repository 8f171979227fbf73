package extract

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
)

const wellFormed = `
1. What is the capital of Karnataka?
A) Mysuru
B) Bengaluru
C) Hubballi
D) Mangaluru
2) Which gas do plants absorb
during photosynthesis?
A. Oxygen
B. Carbon dioxide
C. Nitrogen
`

func TestParseWellFormed(t *testing.T) {
	got := Parse(wellFormed)

	if len(got.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d: %+v", len(got.Questions), got.Questions)
	}
	if got.Questions[0].Text != "What is the capital of Karnataka?" {
		t.Errorf("unexpected question text: %q", got.Questions[0].Text)
	}
	if want := []string{"Mysuru", "Bengaluru", "Hubballi", "Mangaluru"}; !reflect.DeepEqual(got.Questions[0].Options, want) {
		t.Errorf("unexpected options: %v", got.Questions[0].Options)
	}
	// wrapped question line is space-joined
	if got.Questions[1].Text != "Which gas do plants absorb during photosynthesis?" {
		t.Errorf("wrapped text not joined: %q", got.Questions[1].Text)
	}
	if len(got.Questions[1].Options) != 3 {
		t.Errorf("expected 3 options, got %v", got.Questions[1].Options)
	}
	if len(got.Unparsed) != 0 {
		t.Errorf("expected no unparsed lines, got %+v", got.Unparsed)
	}
}

func TestParseDeterministic(t *testing.T) {
	first := Parse(wellFormed)
	second := Parse(wellFormed)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("extraction is not deterministic:\n%+v\n%+v", first, second)
	}
}

func TestParseOptionBoundary(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		questions int
		unparsed  int
	}{
		{
			name:      "two options dropped",
			text:      "1. Too short?\nA) yes\nB) no",
			questions: 0,
			unparsed:  1,
		},
		{
			name:      "three options kept",
			text:      "1. Long enough?\nA) yes\nB) no\nC) maybe",
			questions: 1,
			unparsed:  0,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Parse(tc.text)
			if len(got.Questions) != tc.questions {
				t.Fatalf("expected %d questions, got %d", tc.questions, len(got.Questions))
			}
			if len(got.Unparsed) != tc.unparsed {
				t.Fatalf("expected %d unparsed entries, got %+v", tc.unparsed, got.Unparsed)
			}
			if tc.unparsed > 0 && got.Unparsed[0].Reason != "too_few_options" {
				t.Fatalf("unexpected reason: %q", got.Unparsed[0].Reason)
			}
		})
	}
}

func TestParseKannadaMarkers(t *testing.T) {
	text := "1. ಕರ್ನಾಟಕದ ರಾಜಧಾನಿ ಯಾವುದು?\nಎ) ಮೈಸೂರು\nಬಿ) ಬೆಂಗಳೂರು\nಸಿ) ಹುಬ್ಬಳ್ಳಿ\nಡಿ) ಮಂಗಳೂರು"
	got := Parse(text)
	if len(got.Questions) != 1 {
		t.Fatalf("expected 1 question, got %d (%+v)", len(got.Questions), got.Unparsed)
	}
	if len(got.Questions[0].Options) != 4 {
		t.Fatalf("expected 4 options, got %v", got.Questions[0].Options)
	}
	if got.Questions[0].Options[1] != "ಬೆಂಗಳೂರು" {
		t.Errorf("option body lost: %v", got.Questions[0].Options)
	}
}

func TestParseReportsUnplacedLines(t *testing.T) {
	text := "stray header line\nB) option before any question\n1. Question?\nA) one\nB) two\nC) three\nfootnote after options"
	got := Parse(text)
	if len(got.Questions) != 1 {
		t.Fatalf("expected 1 question, got %d", len(got.Questions))
	}
	reasons := map[string]bool{}
	for _, u := range got.Unparsed {
		reasons[u.Reason] = true
	}
	for _, want := range []string{"orphan_line", "option_outside_question", "trailing_line"} {
		if !reasons[want] {
			t.Errorf("missing unparsed reason %q in %+v", want, got.Unparsed)
		}
	}
}

func TestParseCapsQuestionCount(t *testing.T) {
	var sb strings.Builder
	for i := 1; i <= MaxQuestions+5; i++ {
		fmt.Fprintf(&sb, "%d. Question number %d?\nA) a\nB) b\nC) c\n", i, i)
	}
	got := Parse(sb.String())
	if len(got.Questions) != MaxQuestions {
		t.Fatalf("expected %d questions, got %d", MaxQuestions, len(got.Questions))
	}
	if !got.Truncated {
		t.Fatalf("expected truncation flag")
	}
}

func TestParseEmptyAndGarbage(t *testing.T) {
	for _, text := range []string{"", "   \n\n  ", "no numbering at all\njust prose"} {
		got := Parse(text)
		if len(got.Questions) != 0 {
			t.Fatalf("expected zero questions for %q, got %d", text, len(got.Questions))
		}
	}
}
