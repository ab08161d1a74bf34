package remote

// submitResponse is the wire shape of a successful job submission.
type submitResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
	Error   string `json:"error,omitempty"`
}

// statusData carries the generated artifacts of a completed job.
type statusData struct {
	LLMsText     string `json:"llmstxt"`
	LLMsFullText string `json:"llmsfulltxt,omitempty"`
}

// statusResponse is the wire shape of one status poll.
type statusResponse struct {
	Success   bool       `json:"success"`
	Status    string     `json:"status"`
	Data      statusData `json:"data"`
	Error     string     `json:"error,omitempty"`
	ExpiresAt string     `json:"expiresAt,omitempty"`
}

// errorResponse is the wire shape of a server-reported failure body.
type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}
