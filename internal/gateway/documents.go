package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/yvoloshin/paylink-backend/internal/classifier"
	pkgerrors "github.com/yvoloshin/paylink-backend/pkg/errors"
)

// Receipt text rarely exceeds a page; this cap just bounds a misbehaving
// gateway response.
const maxDocumentTextBytes = 1 << 20

// ReadText fetches the extracted text of an uploaded document. The gateway
// runs the actual PDF/image extraction; this client only retrieves the result.
func (c *Client) ReadText(ctx context.Context, att *classifier.Attachment) (string, error) {
	if att == nil || att.FileRef == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "attachment has no file reference")
	}

	endpoint := c.baseURL + "/files/" + url.PathEscape(att.FileRef) + "/text"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build document request")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "document request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("gateway returned %d", resp.StatusCode))
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentTextBytes))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read document text")
	}
	return string(body), nil
}
