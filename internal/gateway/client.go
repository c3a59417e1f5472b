package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/yvoloshin/paylink-backend/pkg/config"
	pkgerrors "github.com/yvoloshin/paylink-backend/pkg/errors"
)

// Messenger is the only surface of the messaging channel this engine depends
// on. Retry and backoff are the gateway's responsibility.
type Messenger interface {
	SendText(ctx context.Context, conversationID, text string) error
	SendFile(ctx context.Context, conversationID, fileRef, caption string) error
}

// Client talks to the messaging gateway over HTTP.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(cfg config.ChannelConfig) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "channel base url required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		http:    &http.Client{Timeout: timeout},
	}, nil
}

type sendTextRequest struct {
	ConversationID string `json:"conversation_id"`
	Text           string `json:"text"`
}

type sendFileRequest struct {
	ConversationID string `json:"conversation_id"`
	FileRef        string `json:"file_ref"`
	Caption        string `json:"caption,omitempty"`
}

// SendText delivers a plain text message to the conversation.
func (c *Client) SendText(ctx context.Context, conversationID, text string) error {
	return c.post(ctx, "/messages/text", sendTextRequest{
		ConversationID: conversationID,
		Text:           text,
	})
}

// SendFile delivers a file with an optional caption to the conversation.
func (c *Client) SendFile(ctx context.Context, conversationID, fileRef, caption string) error {
	return c.post(ctx, "/messages/file", sendFileRequest{
		ConversationID: conversationID,
		FileRef:        fileRef,
		Caption:        caption,
	})
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode gateway payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build gateway request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "gateway request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("gateway returned %d", resp.StatusCode))
	}
	return nil
}
