package model

// Answer is the terminal artifact for one question. It is immutable once
// produced and serialized as a single JSONL record.
type Answer struct {
	ID          string   `json:"id"`
	FinalAnswer any      `json:"final_answer"`
	SQL         string   `json:"sql"`
	Confidence  float64  `json:"confidence"`
	Explanation string   `json:"explanation"`
	Citations   []string `json:"citations"`
}
