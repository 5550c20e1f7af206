package dto

// ActivityPageResponse is one cursor page of the activity explorer.
type ActivityPageResponse struct {
	Items      []LogEntryResponse `json:"items"`
	NextCursor string             `json:"next_cursor,omitempty"`
	HasMore    bool               `json:"has_more"`
}
