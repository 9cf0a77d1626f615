package model

// Input is one analysis request: the text to analyze and, optionally, the
// URL it was published at. ID is a caller-chosen label used in batch output.
type Input struct {
	ID   string `json:"id,omitempty"`
	URL  string `json:"url,omitempty"`
	Text string `json:"text"`
}
