// Package firestore is a minimal REST client for the hosted document store.
// It covers the handful of operations the sync engine replays: create,
// merge-patch, and read of single documents. Query semantics stay on the
// server side.
package firestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fieldsafe/fieldsync/pkg/config"
	pkgerrors "github.com/fieldsafe/fieldsync/pkg/errors"
	"github.com/fieldsafe/fieldsync/pkg/logger"
)

const defaultBaseURL = "https://firestore.googleapis.com/v1"

type Client struct {
	httpClient *http.Client
	baseURL    string
	projectID  string
	databaseID string
	token      string
	logg       *logger.Logger
}

// NewClient builds a document-store client bound to one project/database.
func NewClient(cfg config.FirestoreConfig, callTimeout time.Duration, logg *logger.Logger) (*Client, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("firestore project id is required")
	}
	databaseID := cfg.DatabaseID
	if databaseID == "" {
		databaseID = "(default)"
	}
	if callTimeout <= 0 {
		callTimeout = 20 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: callTimeout},
		baseURL:    defaultBaseURL,
		projectID:  cfg.ProjectID,
		databaseID: databaseID,
		token:      cfg.AccessToken,
		logg:       logg,
	}, nil
}

// WithBaseURL overrides the API endpoint. Used by tests.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = baseURL
	return c
}

// SetToken swaps the bearer token. The host app calls this on auth refresh.
func (c *Client) SetToken(token string) {
	c.token = token
}

type document struct {
	Name   string           `json:"name,omitempty"`
	Fields map[string]Value `json:"fields,omitempty"`
}

func (c *Client) documentsRoot() string {
	return fmt.Sprintf("%s/projects/%s/databases/%s/documents",
		c.baseURL, c.projectID, url.PathEscape(c.databaseID))
}

// CreateDocument adds a document with a server-assigned ID and returns that ID.
func (c *Client) CreateDocument(ctx context.Context, collection string, fields map[string]any) (string, error) {
	encoded, err := EncodeFields(fields)
	if err != nil {
		return "", pkgerrors.NewNonRetryable(fmt.Errorf("encoding document: %w", err))
	}

	endpoint := fmt.Sprintf("%s/%s", c.documentsRoot(), url.PathEscape(collection))
	var created document
	if err := c.do(ctx, http.MethodPost, endpoint, document{Fields: encoded}, &created); err != nil {
		return "", err
	}

	segments := strings.Split(created.Name, "/")
	if len(segments) == 0 {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "create response missing document name")
	}
	return segments[len(segments)-1], nil
}

// PatchDocument merges the given fields into the document, creating it when
// absent. Only the paths named in fieldPaths are touched; a path named in the
// mask but absent from fields is deleted.
func (c *Client) PatchDocument(ctx context.Context, collection, docID string, fields map[string]any, fieldPaths []string) error {
	encoded, err := EncodeFields(fields)
	if err != nil {
		return pkgerrors.NewNonRetryable(fmt.Errorf("encoding document: %w", err))
	}

	endpoint := fmt.Sprintf("%s/%s/%s", c.documentsRoot(), url.PathEscape(collection), url.PathEscape(docID))
	if len(fieldPaths) > 0 {
		query := url.Values{}
		for _, path := range fieldPaths {
			query.Add("updateMask.fieldPaths", path)
		}
		endpoint += "?" + query.Encode()
	}

	return c.do(ctx, http.MethodPatch, endpoint, document{Fields: encoded}, nil)
}

// SetDocument fully overwrites the document with the given fields.
func (c *Client) SetDocument(ctx context.Context, collection, docID string, fields map[string]any) error {
	return c.PatchDocument(ctx, collection, docID, fields, nil)
}

// GetDocument reads one document. The second return value is false when the
// document does not exist.
func (c *Client) GetDocument(ctx context.Context, collection, docID string) (map[string]any, bool, error) {
	endpoint := fmt.Sprintf("%s/%s/%s", c.documentsRoot(), url.PathEscape(collection), url.PathEscape(docID))
	var doc document
	err := c.do(ctx, http.MethodGet, endpoint, nil, &doc)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
			return nil, false, nil
		}
		return nil, false, err
	}
	return DecodeFields(doc.Fields), true, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.NewNonRetryable(fmt.Errorf("encoding request: %w", err))
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return pkgerrors.Wrap(pkgerrors.CodeTimeout, err, "document store call timed out")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "document store unreachable")
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil && c.logg != nil {
			c.logg.Warn(ctx, "failed to close response body")
		}
	}()

	if resp.StatusCode >= 400 {
		return c.statusError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding response")
	}
	return nil
}

type statusBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (c *Client) statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var decoded statusBody
	_ = json.Unmarshal(raw, &decoded)

	message := decoded.Error.Message
	if message == "" {
		message = strings.TrimSpace(string(raw))
	}
	err := fmt.Errorf("document store %d %s: %s", resp.StatusCode, decoded.Error.Status, message)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "document not found")
	case resp.StatusCode == http.StatusBadRequest:
		// INVALID_ARGUMENT means the payload can never be accepted as-is.
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "document rejected")
	case resp.StatusCode == http.StatusConflict:
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "document conflict")
	case resp.StatusCode >= 500, resp.StatusCode == http.StatusTooManyRequests:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "document store unavailable")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "document store call failed")
	}
}

// QuoteFieldPath backtick-quotes a field path segment so checklist item IDs
// with dashes survive the update mask.
func QuoteFieldPath(segments ...string) string {
	quoted := make([]string, 0, len(segments))
	for _, segment := range segments {
		if isSimpleSegment(segment) {
			quoted = append(quoted, segment)
			continue
		}
		escaped := strings.ReplaceAll(segment, "\\", "\\\\")
		escaped = strings.ReplaceAll(escaped, "`", "\\`")
		quoted = append(quoted, "`"+escaped+"`")
	}
	return strings.Join(quoted, ".")
}

func isSimpleSegment(segment string) bool {
	if segment == "" {
		return false
	}
	for i, r := range segment {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
