package dto

// ExportRequest selects the export target. Filter fields arrive as query
// parameters and share the explorer's filter semantics.
type ExportRequest struct {
	Target string `json:"target" validate:"required,oneof=csv sheet"`
}

// ExportResponse describes a completed export. Truncated must be surfaced
// to the operator; a capped result is never presented as complete.
type ExportResponse struct {
	Target    string `json:"target"`
	RowCount  int    `json:"row_count"`
	Truncated bool   `json:"truncated"`
	Filename  string `json:"filename,omitempty"`
	SheetURL  string `json:"sheet_url,omitempty"`
}
