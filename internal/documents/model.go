package documents

import "time"

// Document is an uploaded file, its extracted text and the analysis filled in
// stage by stage.
type Document struct {
	ID           string
	UserID       string
	FileName     string
	MimeType     string
	SizeBytes    int64
	StorageKey   string
	DocumentText string
	Analysis     Analysis
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Analysis holds the three stage results. Each is nil until its stage lands.
type Analysis struct {
	Summary  *Summary          `json:"summary,omitempty"`
	Entities *Entities         `json:"entities,omitempty"`
	Risks    *Risks            `json:"risks,omitempty"`
	Errors   map[string]string `json:"errors,omitempty"`
}

type Summary struct {
	PlainLanguageSummary string `json:"plainLanguageSummary"`
}

type Entity struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type Entities struct {
	Entities []Entity `json:"entities"`
}

type Risks struct {
	RiskyClauses []string `json:"riskyClauses"`
}

// Complete reports whether every stage has a result.
func (a Analysis) Complete() bool {
	return a.Summary != nil && a.Entities != nil && a.Risks != nil
}

// HasText reports whether extraction produced any content worth analyzing.
func (d Document) HasText() bool {
	for _, r := range d.DocumentText {
		if r != ' ' && r != '\n' && r != '\t' && r != '\r' {
			return true
		}
	}
	return false
}
