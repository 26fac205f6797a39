package domain

// Citation points at one consolidated cluster that supports the answer.
type Citation struct {
	Cluster   int      `json:"cluster"`
	Consensus string   `json:"consensus"`
	Sources   []string `json:"sources"`
}

// Answer is the final response to a question. Confidence is always within
// [0,1]; Notes records any calibration applied on the way there, such as
// clamping an out-of-range score or capping it under unresolved conflicts.
type Answer struct {
	Text       string     `json:"text"`
	Confidence float32    `json:"confidence"`
	Citations  []Citation `json:"citations,omitempty"`
	Notes      []string   `json:"notes,omitempty"`
}
