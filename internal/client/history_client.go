package client

import (
	"context"
	"fmt"
)

// History operation kinds recorded by the audit service.
const (
	HistoryOpCreated  = "CREATED"
	HistoryOpModified = "MODIFIED"
	HistoryOpDeleted  = "DELETED"
)

// HistoryEvent is one audit record of a document change.
type HistoryEvent struct {
	EntityObj any    `json:"entityObj"`
	Type      string `json:"type"`
	Operation string `json:"operation"`
	UserID    string `json:"userId"`
}

// HistoryClient appends audit records to the history service.
type HistoryClient struct {
	client *HTTPClient
}

// NewHistoryClient creates a history client rooted at the history service URL.
func NewHistoryClient(client *HTTPClient) *HistoryClient {
	return &HistoryClient{client: client}
}

// Record appends one audit event.
func (c *HistoryClient) Record(ctx context.Context, event *HistoryEvent) error {
	if err := c.client.Post(ctx, "/", event, nil); err != nil {
		return fmt.Errorf("failed to record history event: %w", err)
	}
	return nil
}
