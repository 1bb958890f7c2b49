package model

import "fmt"

// Chunk is a retrieved segment of a corpus document.
type Chunk struct {
	Source string  `json:"source"`
	Index  int     `json:"index"`
	Text   string  `json:"text"`
	Score  float64 `json:"score"`
}

// Ref returns the citation identifier for the chunk, e.g. "returns.md::chunk_2".
func (c Chunk) Ref() string {
	return fmt.Sprintf("%s::chunk_%d", c.Source, c.Index)
}
