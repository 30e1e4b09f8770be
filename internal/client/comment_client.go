package client

import (
	"context"
	"fmt"
)

// CommentRequest carries reviewer comments and discrepancy notes captured
// alongside an approval action.
type CommentRequest struct {
	WorkflowType string   `json:"workflowType"`
	FlowType     string   `json:"flowType"`
	RiskRating   string   `json:"riskRating"`
	ChannelID    string   `json:"channelId"`
	Status       string   `json:"status"`
	Purpose      string   `json:"purpose"`
	Comments     []string `json:"comments,omitempty"`
	Discrepancy  []string `json:"discrepancy,omitempty"`
	UpdatedBy    string   `json:"updatedBy,omitempty"`
}

// CommentClient forwards comments and discrepancies to the document service's
// comment log.
type CommentClient struct {
	client *HTTPClient
}

// NewCommentClient creates a comment client rooted at the account service URL.
func NewCommentClient(client *HTTPClient) *CommentClient {
	return &CommentClient{client: client}
}

// Append attaches the notes to a document.
func (c *CommentClient) Append(ctx context.Context, documentID string, req *CommentRequest) error {
	if err := c.client.Post(ctx, fmt.Sprintf("/wf-comment-discrepancy/%s", documentID), req, nil); err != nil {
		return fmt.Errorf("failed to append comments: %w", err)
	}
	return nil
}
