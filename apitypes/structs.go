package apitypes

// Shared API request and response structs used by both handlers and clients.

type ApiError struct {
	Error string `json:"error"`
}

type PingResponse struct {
	Server  string `json:"server"`
	Version string `json:"version"`
}

// IssueRequest schedules one command. Durations use Go syntax ("150ms").
type IssueRequest struct {
	Targets  []string `json:"targets"`
	Delay    string   `json:"delay,omitempty"`
	Hold     string   `json:"hold,omitempty"`
	Cooldown string   `json:"cooldown,omitempty"`
	// Try fails with a conflict instead of waiting for busy resources.
	Try bool `json:"try,omitempty"`
}

type PendingResponse struct {
	Pending int `json:"pending"`
}

type DroppedResponse struct {
	Dropped int `json:"dropped"`
}

type StatusResponse struct {
	Topology string `json:"topology"`
	Mode     string `json:"mode"`
	Dispatch string `json:"dispatch"`
	Current  string `json:"current"`
	Pending  int    `json:"pending"`
	Sent     uint64 `json:"sent"`
	// Fault is the transport error that stopped the dispatcher.
	Fault string `json:"fault,omitempty"`
}

type Resource struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

type TopologyResponse struct {
	Name      string     `json:"name"`
	Resources []Resource `json:"resources"`
}

type RequestResponse struct {
	Payload string `json:"payload"`
}
