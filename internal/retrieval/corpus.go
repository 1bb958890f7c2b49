// Package retrieval indexes the markdown document corpus with a TF-IDF
// vector space and serves ranked, deterministic chunk search.
package retrieval

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
)

// Document is a corpus file split into addressable chunks.
type Document struct {
	Name   string
	Chunks []string
}

// LoadCorpus reads every *.md file under dir in name order and splits each
// into chunks on blank lines. Chunks shorter than minChunkLen runes are
// dropped. An unreadable directory or an entirely empty corpus is an error:
// the pipeline cannot answer document questions without one.
func LoadCorpus(dir string, minChunkLen int) ([]Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "retrieval: read corpus dir %s", dir)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".md") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var docs []Document
	total := 0
	for _, name := range names {
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, eris.Wrapf(err, "retrieval: read %s", name)
		}
		chunks := SplitChunks(string(raw), minChunkLen)
		if len(chunks) == 0 {
			continue
		}
		docs = append(docs, Document{Name: name, Chunks: chunks})
		total += len(chunks)
	}

	if total == 0 {
		return nil, eris.Errorf("retrieval: no chunks found in %s", dir)
	}
	return docs, nil
}

// SplitChunks splits text into paragraph chunks on blank lines, dropping
// chunks shorter than minLen runes.
func SplitChunks(text string, minLen int) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var chunks []string
	for _, part := range strings.Split(text, "\n\n") {
		part = strings.TrimSpace(part)
		if part == "" || len([]rune(part)) < minLen {
			continue
		}
		chunks = append(chunks, part)
	}
	return chunks
}
