package models

// Role values for chat messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage represents a single turn in a conversation
type ChatMessage struct {
	Role    string `json:"role"`    // "system", "user", or "assistant"
	Content string `json:"content"` // The message content
}

// ChatRequest represents the incoming chat request from the frontend
type ChatRequest struct {
	Message string        `json:"message"`           // The current user question
	History []ChatMessage `json:"history,omitempty"` // Previous conversation turns
}

// ChatResponse represents the response sent back to the frontend
type ChatResponse struct {
	Response      string `json:"response"`        // The assistant's answer
	KnowledgeUsed bool   `json:"knowledgeUsed"`   // Whether retrieved knowledge informed the answer
	SourceCount   int    `json:"sourceCount"`     // Number of matches returned by the vector store
	Error         string `json:"error,omitempty"` // Machine-readable error, set on failure
}

// ChatResult is the orchestrator's answer to a single question
type ChatResult struct {
	Response      string `json:"response"`
	KnowledgeUsed bool   `json:"knowledgeUsed"`
	SourceCount   int    `json:"sourceCount"`
}

// BasicResponse is a minimal status message envelope
type BasicResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"` // "success" or "error"
}

// ErrorResponse carries a machine-readable error to programmatic callers
type ErrorResponse struct {
	Error string `json:"error"`
}
