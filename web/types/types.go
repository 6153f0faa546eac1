package types

import "time"

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Question string `json:"question"`
}

// ChatResponse always carries a displayable answer, including on failure.
type ChatResponse struct {
	Answer     string `json:"answer"`
	AnswerHTML string `json:"answer_html,omitempty"`
}

// CorpusStatus describes the snapshot currently being served.
type CorpusStatus struct {
	Generation  uint64    `json:"generation"`
	FAQs        int       `json:"faqs"`
	Departments int       `json:"departments"`
	Procedures  int       `json:"procedures"`
	BuiltAt     time.Time `json:"built_at"`
}
