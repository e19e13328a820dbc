package models

// PostResult is the outcome of posting a comment. Failure is a value, not an
// error: it means every submission strategy came up empty.
type PostResult struct {
	Success bool `json:"success"`

	// Strategy names the submission path that took effect.
	Strategy string `json:"strategy,omitempty"`

	Message string `json:"message"`
}

// NoteFile is one persisted record as served by GET /notes.
type NoteFile struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// NoteAnalysis is the lightweight classification returned by analyze_note.
type NoteAnalysis struct {
	URL      string   `json:"url"`
	Title    string   `json:"title"`
	Author   string   `json:"author"`
	Body     string   `json:"body"`
	Domains  []string `json:"domains"`
	Keywords []string `json:"keywords"`
}

// CommentPlan is handed to the MCP client so its model can draft a comment
// and then call post_comment.
type CommentPlan struct {
	NoteInfo     NoteAnalysis `json:"note_info"`
	CommentType  string       `json:"comment_type"`
	CommentGuide string       `json:"comment_guide"`
	URL          string       `json:"url"`
	Message      string       `json:"message"`
}

// HealthResponse is the response for GET /health.
type HealthResponse struct {
	Status     string     `json:"status"`
	Uptime     string     `json:"uptime"`
	LoginState LoginState `json:"login_state"`
	Version    string     `json:"version"`
}

// ErrorResponse is the body of every non-crawl API error.
type ErrorResponse struct {
	Status string       `json:"status"`
	Msg    string       `json:"msg"`
	Error  *ErrorDetail `json:"error"`
}

// NewErrorResponse wraps a code and message in an ErrorResponse.
func NewErrorResponse(code, msg string) ErrorResponse {
	return ErrorResponse{Status: "error", Msg: msg, Error: &ErrorDetail{Code: code, Message: msg}}
}
