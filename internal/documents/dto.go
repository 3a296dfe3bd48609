package documents

import "time"

// DocumentResponse is the outward-facing representation of a document.
type DocumentResponse struct {
	DocumentID string    `json:"documentId"`
	FileName   string    `json:"fileName"`
	MimeType   string    `json:"mimeType"`
	SizeBytes  int64     `json:"sizeBytes"`
	HasText    bool      `json:"hasText"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// DocumentDetailResponse adds the extracted text and current analysis.
type DocumentDetailResponse struct {
	DocumentResponse
	DocumentText string           `json:"documentText"`
	Analysis     AnalysisResponse `json:"analysis"`
}

// AnalysisResponse renders pending stages as null and reports per-stage status.
type AnalysisResponse struct {
	Summary  *Summary          `json:"summary"`
	Entities *Entities         `json:"entities"`
	Risks    *Risks            `json:"risks"`
	Stages   map[string]string `json:"stages"`
	Errors   map[string]string `json:"errors,omitempty"`
}

// Stage states reported in AnalysisResponse.Stages.
const (
	StagePending = "pending"
	StageDone    = "done"
	StageFailed  = "failed"
)

func toResponse(doc Document) DocumentResponse {
	return DocumentResponse{
		DocumentID: doc.ID,
		FileName:   doc.FileName,
		MimeType:   doc.MimeType,
		SizeBytes:  doc.SizeBytes,
		HasText:    doc.HasText(),
		UploadedAt: doc.CreatedAt,
	}
}

func toDetailResponse(doc Document) DocumentDetailResponse {
	return DocumentDetailResponse{
		DocumentResponse: toResponse(doc),
		DocumentText:     doc.DocumentText,
		Analysis:         ToAnalysisResponse(doc.Analysis),
	}
}

// ToAnalysisResponse builds the API view of an analysis.
func ToAnalysisResponse(a Analysis) AnalysisResponse {
	stages := map[string]string{
		FieldSummary:  stageState(a.Summary != nil, a.Errors[FieldSummary]),
		FieldEntities: stageState(a.Entities != nil, a.Errors[FieldEntities]),
		FieldRisks:    stageState(a.Risks != nil, a.Errors[FieldRisks]),
	}
	return AnalysisResponse{
		Summary:  a.Summary,
		Entities: a.Entities,
		Risks:    a.Risks,
		Stages:   stages,
		Errors:   a.Errors,
	}
}

func stageState(done bool, errMsg string) string {
	switch {
	case done:
		return StageDone
	case errMsg != "":
		return StageFailed
	default:
		return StagePending
	}
}
