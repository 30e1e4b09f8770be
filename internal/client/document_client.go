package client

import (
	"context"
	"encoding/json"
	"fmt"
)

// DocumentClient talks to one document system of record (the account, deposit
// or remote onboarding service). The service layer supplies the entity-specific
// paths; this client only moves JSON.
type DocumentClient struct {
	client *HTTPClient
	name   string
}

// NewDocumentClient creates a document client. name identifies the backing
// service in error messages.
func NewDocumentClient(client *HTTPClient, name string) *DocumentClient {
	return &DocumentClient{client: client, name: name}
}

// Fetch retrieves a document snapshot as raw JSON. Envelope unwrapping is the
// caller's concern because each entity type nests its payload differently.
func (c *DocumentClient) Fetch(ctx context.Context, path string) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.client.Get(ctx, path, &raw); err != nil {
		return nil, fmt.Errorf("failed to fetch document from %s: %w", c.name, err)
	}
	return raw, nil
}

// UpdateStatus pushes the full updated snapshot back to the system of record.
func (c *DocumentClient) UpdateStatus(ctx context.Context, path string, doc any) error {
	if err := c.client.Put(ctx, path, doc, nil); err != nil {
		return fmt.Errorf("failed to update document status on %s: %w", c.name, err)
	}
	return nil
}

// ClearPickedBy releases the document's picked-by assignment. Only the
// deposit-account flows use a dedicated endpoint for this.
func (c *DocumentClient) ClearPickedBy(ctx context.Context, path string) error {
	if err := c.client.Put(ctx, path, nil, nil); err != nil {
		return fmt.Errorf("failed to clear picked-by on %s: %w", c.name, err)
	}
	return nil
}
