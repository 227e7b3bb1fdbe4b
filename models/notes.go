package models

import "time"

// NoteMatch is a vault file selected by a search, with its extracted text.
type NoteMatch struct {
	Path    string `json:"path"`
	Name    string `json:"name"`
	Content string `json:"content"`
}

// Reference converts the match to the reference sent to clients.
func (m NoteMatch) Reference() FileReference {
	return FileReference{Name: m.Name, Path: m.Path}
}

// NoteContentResponse is the structure for the response of the GET /api/v1/notes endpoint.
type NoteContentResponse struct {
	Path    string `json:"path"`
	Name    string `json:"name"`
	Content string `json:"content"`
}

// VaultsResponse lists the vaults discovered on this machine.
type VaultsResponse struct {
	Count  int      `json:"count"`
	Vaults []string `json:"vaults"`
}

// Exchange is one query/answer round persisted in the history store.
type Exchange struct {
	SessionID string          `json:"session_id"`
	VaultPath string          `json:"vault_path"`
	ModelName string          `json:"model_name"`
	Query     string          `json:"query"`
	Status    string          `json:"status"`
	Message   string          `json:"message,omitempty"`
	Files     []FileReference `json:"files,omitempty"`
	TS        time.Time       `json:"ts"`
}

type HistoryResponse struct {
	Count     int        `json:"count"`
	Exchanges []Exchange `json:"exchanges"`
}
