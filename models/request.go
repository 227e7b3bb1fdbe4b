package models

// InitializeRequest is the payload of the `initialize` event and of POST /initialize.
type InitializeRequest struct {
	VaultPath string `json:"vault_path"`
	ModelName string `json:"model_name"`
}

// QueryRequest is the payload of the `query` event and of POST /query.
// SessionID is only read on the HTTP surface; sockets carry their own session.
type QueryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id,omitempty"`
}
