package exam

import "strings"

// Question is one item of a live exam or a draft under authoring.
// CorrectAnswer stays null until it is explicitly set; finalize requires
// full coverage before a draft can become an exam.
type Question struct {
	Text          string   `json:"text"`
	ImageURL      string   `json:"image_url,omitempty"`
	Options       []string `json:"options"`
	CorrectAnswer *string  `json:"correct_answer"`
}

type Outcome struct {
	Total   int `json:"total"`
	Correct int `json:"correct"`
	Wrong   int `json:"wrong"`
}

// Score compares submitted answers against the exam's questions index by
// index. Comparison is case-insensitive. A submission shorter than the
// question list counts the missing entries as wrong; extra entries are
// ignored. A question without a stored correct answer never matches.
func Score(questions []Question, answers []string) Outcome {
	out := Outcome{Total: len(questions)}
	for i, q := range questions {
		if q.CorrectAnswer == nil || strings.TrimSpace(*q.CorrectAnswer) == "" {
			out.Wrong++
			continue
		}
		if i < len(answers) && strings.EqualFold(strings.TrimSpace(answers[i]), strings.TrimSpace(*q.CorrectAnswer)) {
			out.Correct++
			continue
		}
		out.Wrong++
	}
	return out
}
