package usecase

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"

	"docrag/internal/domain"
)

//go:embed templates/answer_prompt.txt
var promptTemplates embed.FS

// Composer merges retrieved passages and the query into a prompt. The
// template is fixed: an instruction preamble, the included passages
// each tagged with a numbered source marker, then the literal question.
// Rendering is byte-for-byte reproducible for the same inputs.
type Composer struct {
	budget int
	tmpl   *template.Template
}

// promptData is the template input.
type promptData struct {
	Passages []promptPassage
	Query    string
}

type promptPassage struct {
	N        int
	Location string
	Ordinal  int
	Text     string
}

// NewComposer creates a composer with a context budget measured in
// bytes of included passage text.
func NewComposer(budget int) (*Composer, error) {
	if budget <= 0 {
		return nil, fmt.Errorf("%w: context_budget must be positive, got %d", domain.ErrInvalidInput, budget)
	}

	content, err := promptTemplates.ReadFile("templates/answer_prompt.txt")
	if err != nil {
		return nil, fmt.Errorf("prompt template missing: %w", err)
	}
	tmpl, err := template.New("answer").Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt template: %w", err)
	}

	return &Composer{budget: budget, tmpl: tmpl}, nil
}

// Compose greedily includes passages in the given (descending score)
// order while they fit the remaining budget. A passage that does not
// fit is skipped whole, never truncated; later, smaller passages may
// still be included. Citations record the sources actually included, in
// inclusion order.
func (c *Composer) Compose(query string, results []domain.ScoredChunk) (domain.Prompt, error) {
	data := promptData{Query: query}
	var citations []domain.Citation

	used := 0
	for _, r := range results {
		size := len(r.Chunk.Text)
		if used+size > c.budget {
			continue
		}
		used += size

		data.Passages = append(data.Passages, promptPassage{
			N:        len(data.Passages) + 1,
			Location: r.Location,
			Ordinal:  r.Chunk.Ordinal,
			Text:     r.Chunk.Text,
		})
		citations = append(citations, domain.Citation{
			ChunkID:  r.Chunk.ID,
			DocID:    r.Chunk.DocID,
			Location: r.Location,
			Ordinal:  r.Chunk.Ordinal,
		})
	}

	var buf bytes.Buffer
	if err := c.tmpl.Execute(&buf, data); err != nil {
		return domain.Prompt{}, fmt.Errorf("failed to render prompt: %w", err)
	}

	return domain.Prompt{
		Text:      buf.String(),
		Query:     query,
		Citations: citations,
	}, nil
}
