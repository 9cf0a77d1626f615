package model

// Claim represents a factual assertion extracted from the analyzed text
type Claim struct {
	Text      string     `json:"text"`                 // The claim text itself
	StartChar *int       `json:"start_char"`           // Offset into the source text (nil if unlocatable)
	EndChar   *int       `json:"end_char"`             // End offset, exclusive (nil if unlocatable)
	Topic     string     `json:"topic,omitempty"`      // Topic hint from LLM extraction
	Heuristic string     `json:"heuristic,omitempty"`  // Which extraction rule matched (e.g., "keyword:according to")
	Evidence  []Evidence `json:"evidences"`            // Ranked fact-check evidence
}

// Located reports whether the claim carries character offsets into the source text
func (c Claim) Located() bool {
	return c.StartChar != nil && c.EndChar != nil
}

// Offsets builds a pair of offset pointers for a located claim
func Offsets(start, end int) (*int, *int) {
	return &start, &end
}
