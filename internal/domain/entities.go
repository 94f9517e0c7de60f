package domain

// Document is a source text loaded from a document store.
// Documents are immutable once ingested; re-ingesting the same location
// supersedes the previous records rather than mutating them.
type Document struct {
	ID       string
	Location string
	Text     string
}

// Chunk is a bounded contiguous passage of a document's text.
// Start and End are byte offsets into the parent document such that
// doc.Text[Start:End] == Text. Ordinals are dense and start at zero.
type Chunk struct {
	ID      string
	DocID   string
	Ordinal int
	Start   int
	End     int
	Text    string
}

// ScoredChunk is a retrieved chunk paired with its similarity score.
// Higher scores mean closer matches regardless of the distance measure.
// Location is the parent document's location, carried from the index
// metadata for citation.
type ScoredChunk struct {
	Chunk    Chunk
	Location string
	Score    float64
}

// Citation identifies the source of a passage included in a prompt.
type Citation struct {
	ChunkID  string
	DocID    string
	Location string
	Ordinal  int
}

// Prompt is the rendered text handed to the generative model together
// with the sources of every passage it contains. Never persisted.
type Prompt struct {
	Text      string
	Query     string
	Citations []Citation
}

// Answer is generated text plus the ordered sources that were actually
// present in the prompt. Grounded is false when the answer was produced
// without any supporting context above the similarity threshold.
type Answer struct {
	Text      string
	Citations []Citation
	Grounded  bool
}
