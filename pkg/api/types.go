package api

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// DiffRequest asks the server to diff the live tree against a previously
// committed root.
type DiffRequest struct {
	OtherRootID string `json:"other_root_id"`
}

// DiffResponse mirrors bptree.DiffCallbacks, flattened into JSON arrays.
type DiffResponse struct {
	OnlyThis  []KeyValue    `json:"only_this"`
	OnlyOther []KeyValue    `json:"only_other"`
	Different []DiffedValue `json:"different"`
}

// KeyValue is a single key/value pair rendered for JSON transport.
type KeyValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// DiffedValue is a key present on both sides of a diff with unequal values.
type DiffedValue struct {
	Key        string `json:"key"`
	ThisValue  string `json:"this_value"`
	OtherValue string `json:"other_value"`
}

// ServerConfig holds configuration for the API server.
type ServerConfig struct {
	Port    int
	APIKey  string
	DataDir string
	Fanout  int
}
