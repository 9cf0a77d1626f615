package model

// EvidenceTypeFactCheck is the only evidence type produced by cross-referencing
const EvidenceTypeFactCheck = "fact_check"

// Evidence represents an external fact-check verdict matched to a claim
type Evidence struct {
	Type            string  `json:"type"`              // Always "fact_check"
	SourceName      string  `json:"source_name"`       // Publisher of the fact-check
	SourceURL       string  `json:"source_url"`        // Link to the fact-check article
	Stance          Stance  `json:"stance"`            // supports, refutes, mixed
	Similarity      float64 `json:"similarity"`        // Claim/statement relatedness, 0-1
	Snippet         string  `json:"snippet,omitempty"` // Short excerpt of the checked statement
	TruthMeter      string  `json:"truth_meter"`       // Raw rating text from the publisher
	TruthMeterScore float64 `json:"truth_meter_score"` // Normalized rating, 0 (false) to 1 (true)
}

// Stance is the relationship between a claim and a fact-check verdict
type Stance string

const (
	StanceSupports Stance = "supports"
	StanceRefutes  Stance = "refutes"
	StanceMixed    Stance = "mixed"
)

// FactCheck is a raw rated statement returned by an external fact-check source.
// Lists of these are what the result cache stores.
type FactCheck struct {
	Statement     string  `json:"statement"`
	Rating        string  `json:"rating"`
	RatingScore   float64 `json:"rating_score"`
	Publisher     string  `json:"publisher"`
	PublisherSite string  `json:"publisher_site,omitempty"`
	SourceURL     string  `json:"source_url"`
	Snippet       string  `json:"snippet,omitempty"`
	PublishDate   string  `json:"publish_date,omitempty"`
	Claimant      string  `json:"claimant,omitempty"`
}
