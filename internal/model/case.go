package model

// PolicyChunk is one retrieved passage of payer policy.
// Chunks are passed into the prompt unmodified.
type PolicyChunk struct {
	ChunkID string `json:"chunk_id" yaml:"chunk_id"`
	Text    string `json:"text" yaml:"text"`
}

// Case is one prior-authorization request as loaded from disk
type Case struct {
	CaseID             string         `json:"case_id"`
	NoteText           string         `json:"note_text"`
	ExamRequest        map[string]any `json:"exam_request,omitempty"`
	Patient            map[string]any `json:"patient,omitempty"`
	RequestingProvider map[string]any `json:"requesting_provider,omitempty"`

	// Optional pre-retrieved policy; when empty the pipeline retrieves from its library
	RetrievedPolicy []PolicyChunk `json:"retrieved_policy,omitempty"`
}

// Procedure returns the requested procedure, or "" when absent
func (c *Case) Procedure() string {
	if c.ExamRequest == nil {
		return ""
	}
	if p, ok := c.ExamRequest["procedure"].(string); ok {
		return p
	}
	return ""
}
