package backend

// QueryRequest is the body of the query call.
type QueryRequest struct {
	UserText string `json:"user_text"`
}

// QueryResult is the decision returned for a query. ParsedInfo is only
// populated by backends that echo their query parse.
type QueryResult struct {
	Decision      string         `json:"decision"`
	Justification string         `json:"justification"`
	PolicyClauses []string       `json:"policy_clauses"`
	ParsedInfo    map[string]any `json:"parsed_info,omitempty"`
}

// Answer pairs a result with the id of the request that produced it.
type Answer struct {
	Result    QueryResult
	RequestID string
}

// UploadReceipt describes a completed upload call.
type UploadReceipt struct {
	RequestID string
	Status    int
	Message   string
}
