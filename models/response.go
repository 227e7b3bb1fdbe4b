package models

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

type InitializeResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// QueryResponse carries the rendered answer. Response is HTML, ready to be
// injected as-is by the browser frontend.
type QueryResponse struct {
	Status   string          `json:"status"`
	Message  string          `json:"message,omitempty"`
	Response string          `json:"response,omitempty"`
	Files    []FileReference `json:"files,omitempty"`
}

// FileReference points at a note that fed the answer.
type FileReference struct {
	Name string `json:"name"`
	Path string `json:"path"`
}
