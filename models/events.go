package models

// Event names exchanged over the realtime channel.
const (
	EventInitialize         = "initialize"
	EventInitializeResponse = "initialize_response"
	EventQuery              = "query"
	EventQueryResponse      = "query_response"
)
