package docs

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// maxContextSentences caps how many sentences a single query may pull
// into the prompt context.
const maxContextSentences = 500

var sentenceSplitter = regexp.MustCompile(`[.!?]+`)

// Processor maintains an in-memory knowledge base built from the files in a
// documents directory. Lookups are keyword based; there is no embedding index.
type Processor struct {
	dir string

	mu   sync.RWMutex
	docs map[string]string
}

// NewProcessor creates a processor rooted at dir. The directory is created
// when missing so a fresh deployment starts with an empty knowledge base
// instead of an error.
func NewProcessor(dir string) (*Processor, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create documents directory: %w", err)
	}

	return &Processor{
		dir:  dir,
		docs: make(map[string]string),
	}, nil
}

// Dir returns the watched documents directory.
func (p *Processor) Dir() string {
	return p.dir
}

// LoadAll rebuilds the knowledge base from every supported file in the
// documents directory. Unreadable files are skipped with a log line so one
// corrupt upload cannot take the whole corpus down.
func (p *Processor) LoadAll() error {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return fmt.Errorf("failed to read documents directory: %w", err)
	}

	loaded := make(map[string]string, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		text, err := loadFile(filepath.Join(p.dir, name))
		if err != nil {
			log.Printf("[docs] skipping %s: %v", name, err)
			continue
		}
		if text == "" {
			continue
		}

		loaded[name] = text
		log.Printf("[docs] loaded %s (%d characters)", name, len(text))
	}

	p.mu.Lock()
	p.docs = loaded
	p.mu.Unlock()

	log.Printf("[docs] knowledge base ready, documents=%d", len(loaded))
	return nil
}

// Count returns the number of documents currently loaded.
func (p *Processor) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.docs)
}

// Search returns the sentences most relevant to the query, scored by the
// fraction of query terms each sentence contains.
func (p *Processor) Search(query string) []string {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return nil
	}

	type match struct {
		score    float64
		sentence string
	}

	p.mu.RLock()
	var matches []match
	for _, text := range p.docs {
		for _, sentence := range sentenceSplitter.Split(text, -1) {
			sentence = strings.TrimSpace(sentence)
			if sentence == "" {
				continue
			}

			lower := strings.ToLower(sentence)
			hits := 0
			for _, term := range terms {
				if strings.Contains(lower, term) {
					hits++
				}
			}
			if hits == 0 {
				continue
			}

			matches = append(matches, match{
				score:    float64(hits) / float64(len(terms)),
				sentence: sentence,
			})
		}
	}
	p.mu.RUnlock()

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})

	if len(matches) > maxContextSentences {
		matches = matches[:maxContextSentences]
	}

	results := make([]string, len(matches))
	for i, m := range matches {
		results[i] = m.sentence
	}
	return results
}

// DocumentContext renders the search results as a context block for the
// model prompt. An empty string means nothing relevant was found.
func (p *Processor) DocumentContext(query string) string {
	relevant := p.Search(query)
	if len(relevant) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Based on our documents:\n")
	for _, sentence := range relevant {
		sb.WriteString("\n")
		sb.WriteString(sentence)
		sb.WriteString("\n")
	}
	return sb.String()
}
