package client

import (
	"context"
	"fmt"
)

// Group is an approver group resolved from the directory service.
type Group struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

type groupEnvelope struct {
	Data Group `json:"data"`
}

// DirectoryClient resolves approver groups from the user-management
// directory service.
type DirectoryClient struct {
	client *HTTPClient
}

// NewDirectoryClient creates a directory client rooted at the user-management
// service URL.
func NewDirectoryClient(client *HTTPClient) *DirectoryClient {
	return &DirectoryClient{client: client}
}

// GetGroup resolves a group id to its identity and display name.
func (c *DirectoryClient) GetGroup(ctx context.Context, groupID string) (*Group, error) {
	var resp groupEnvelope
	if err := c.client.Get(ctx, fmt.Sprintf("/group/%s", groupID), &resp); err != nil {
		return nil, fmt.Errorf("failed to resolve group %s: %w", groupID, err)
	}
	return &resp.Data, nil
}
