package models

// Chunk is a bounded-size segment of a document's extracted text. Chunks are
// created once at the ingestion boundary and carry the page number in effect
// at their start, so every later stage works with the same shape.
type Chunk struct {
	Content       string `json:"content"`
	PageNumber    int    `json:"pageNumber"`
	SequenceIndex int    `json:"sequenceIndex"`
}

// MatchedChunk is a chunk returned by a similarity search, with its score.
type MatchedChunk struct {
	Content    string  `json:"content"`
	PageNumber int     `json:"pageNumber"`
	Similarity float32 `json:"similarity"`
}

// SourceReference is the citation projection of a retrieved chunk.
type SourceReference struct {
	Content    string `json:"content"`
	PageNumber int    `json:"pageNumber"`
}

// KeyClause is one clause identified by the structured document analysis.
type KeyClause struct {
	Title       string `json:"title"`
	Explanation string `json:"explanation"`
}

// JargonEntry is one term/definition pair from the jargon buster.
type JargonEntry struct {
	Term       string `json:"term"`
	Definition string `json:"definition"`
}

// Analysis is the structured output of a single analysis batch.
type Analysis struct {
	Notice       string        `json:"notice,omitempty"`
	Summary      string        `json:"summary"`
	KeyClauses   []KeyClause   `json:"keyClauses"`
	JargonBuster []JargonEntry `json:"jargonBuster"`
}

// AnalysisResult is the aggregated analysis for a whole document, merged
// across batches. FailedBatches lists the zero-based indexes of analysis
// batches that failed after retries and were skipped.
type AnalysisResult struct {
	FileName      string        `json:"fileName"`
	Summary       string        `json:"summary"`
	KeyClauses    []KeyClause   `json:"keyClauses"`
	JargonBuster  []JargonEntry `json:"jargonBuster"`
	ChunkCount    int           `json:"chunkCount"`
	FailedBatches []int         `json:"failedBatches,omitempty"`
}

// ChatTurn is one message in a consult conversation.
type ChatTurn struct {
	Role    string            `json:"role"` // "user" or "assistant"
	Text    string            `json:"text"`
	Sources []SourceReference `json:"sources,omitempty"`
}

// ConsultAnswer is the answer to one chat turn, with its citations.
type ConsultAnswer struct {
	Answer      string            `json:"answer"`
	Sources     []SourceReference `json:"sources"`
	UniquePages []int             `json:"uniquePages"`
}

// Correction is one proofreading fix.
type Correction struct {
	Type        string `json:"type"` // spelling, grammar or clarity
	Original    string `json:"original"`
	Suggestion  string `json:"suggestion"`
	Explanation string `json:"explanation"`
}

// ProofreadResult is the structured output of the proofreading operation.
type ProofreadResult struct {
	OriginalText  string       `json:"originalText"`
	CorrectedText string       `json:"correctedText"`
	Corrections   []Correction `json:"corrections"`
	Summary       string       `json:"summary"`
}

// JargonLookup is the structured output of a dictionary lookup.
type JargonLookup struct {
	Term       string   `json:"term"`
	Definition string   `json:"definition"`
	Synonyms   []string `json:"synonyms"`
	Example    string   `json:"example"`
}
