package pipeline

// Source is a reference found during source discovery.
type Source struct {
	Title     string  `json:"title"`
	URL       string  `json:"url"`
	Domain    string  `json:"domain"`
	Type      string  `json:"type"`
	Relevance float64 `json:"relevance"`
}

// LessonDraft is the synthesized lesson.
type LessonDraft struct {
	Title            string   `json:"title"`
	Content          string   `json:"content"`
	Sources          []Source `json:"sources"`
	EstimatedTimeMin int      `json:"estimated_time_min"`
	VideoLinks       []string `json:"video_links"`
}

type Issue struct {
	Type   string `json:"type"`
	Detail string `json:"detail"`
}

// Verdict is the reviewer's judgement of a draft. Valid is nil when the
// reviewer's answer carried no verdict at all.
type Verdict struct {
	Valid           *bool   `json:"valid"`
	ConfidenceScore float64 `json:"confidence_score"`
	Issues          []Issue `json:"issues"`
}

type Question struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
}

type Quiz struct {
	LessonID  string     `json:"lesson_id"`
	Questions []Question `json:"questions"`
	PassScore int        `json:"pass_score"`
}
