// Package sheets provides the Google Sheets implementation of the remote
// sign-in ledger. It is a thin REST client: auth flows live outside the
// backend, which only consumes a ready bearer token.
package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	apperrors "github.com/kimhsiao/signindesk/backend/internal/errors"
	"github.com/kimhsiao/signindesk/backend/internal/logging"
	"github.com/kimhsiao/signindesk/backend/internal/models"
)

const defaultBaseURL = "https://sheets.googleapis.com"

// baseHeaders are the fixed ledger columns; extra record fields widen the
// header row beyond these as they first appear.
var baseHeaders = []string{"timestamp", "event", "id", "name", "raw"}

// Options configures a Client.
type Options struct {
	Token         string
	SpreadsheetID string
	Worksheet     string
	BaseURL       string       // override for tests
	HTTPClient    *http.Client // override for tests
}

// Client appends sign-in rows to one worksheet of one spreadsheet.
// All methods are safe for concurrent use; the mutex also keeps the cached
// header row consistent with what was last written.
type Client struct {
	mu            sync.Mutex
	httpClient    *http.Client
	baseURL       string
	token         string
	spreadsheetID string
	worksheet     string
	connected     bool
	headers       []string
}

// NewClient creates a Client from options, applying defaults.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	worksheet := opts.Worksheet
	if worksheet == "" {
		worksheet = "Signin"
	}
	return &Client{
		httpClient:    httpClient,
		baseURL:       baseURL,
		token:         opts.Token,
		spreadsheetID: opts.SpreadsheetID,
		worksheet:     worksheet,
	}
}

// Reconfigure swaps the ledger target and drops the cached session, so the
// next call reconnects against the new spreadsheet.
func (c *Client) Reconfigure(token, spreadsheetID, worksheet string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	c.spreadsheetID = spreadsheetID
	if worksheet != "" {
		c.worksheet = worksheet
	}
	c.connected = false
	c.headers = nil
}

// Connect resolves the spreadsheet, creates the worksheet when missing and
// ensures the base header row. Idempotent: every call re-runs the full
// sequence, so it doubles as a connection test.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked(ctx)
}

func (c *Client) connectLocked(ctx context.Context) error {
	if c.spreadsheetID == "" {
		return apperrors.New(apperrors.ErrSheetConnectFailed, "no spreadsheet configured")
	}
	if c.token == "" {
		return apperrors.New(apperrors.ErrSheetAuthFailed, "no API token configured")
	}

	exists, err := c.worksheetExists(ctx)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrSheetConnectFailed, "cannot resolve spreadsheet", err)
	}
	if !exists {
		if err := c.addWorksheet(ctx); err != nil {
			return apperrors.Wrap(apperrors.ErrSheetConnectFailed, "cannot create worksheet", err)
		}
		logging.Info("Created ledger worksheet",
			map[string]interface{}{"worksheet": c.worksheet})
	}

	headers, err := c.readHeaders(ctx)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrSheetConnectFailed, "cannot read header row", err)
	}

	// Make sure every base column exists; an operator-edited sheet keeps
	// its own columns, new ones are appended after them.
	merged := append([]string(nil), headers...)
	for _, h := range baseHeaders {
		if !contains(merged, h) {
			merged = append(merged, h)
		}
	}
	if len(merged) != len(headers) {
		if err := c.writeHeaders(ctx, merged); err != nil {
			return apperrors.Wrap(apperrors.ErrSheetConnectFailed, "cannot write header row", err)
		}
	}

	c.headers = merged
	c.connected = true
	return nil
}

// AppendRecord appends one row for the record, assigning the row timestamp
// here, at append time, so a replayed record gets a fresh timestamp.
// Unseen extra keys widen the header row first.
func (c *Client) AppendRecord(ctx context.Context, rec models.SigninRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		if err := c.connectLocked(ctx); err != nil {
			return err
		}
	}

	timestamp := time.Now().Format(time.RFC3339)
	needed, values := rec.Row(timestamp)

	var missing []string
	for _, h := range needed {
		if !contains(c.headers, h) {
			missing = append(missing, h)
		}
	}
	if len(missing) > 0 {
		widened := append(append([]string(nil), c.headers...), missing...)
		if err := c.writeHeaders(ctx, widened); err != nil {
			c.connected = false
			return apperrors.Wrap(apperrors.ErrSheetAppendFailed, "cannot widen header row", err)
		}
		c.headers = widened
	}

	row := make([]interface{}, len(c.headers))
	for i, h := range c.headers {
		row[i] = values[h] // absent keys yield ""
	}

	if err := c.appendRow(ctx, row); err != nil {
		// Drop the session so the next attempt re-auths from scratch.
		c.connected = false
		return apperrors.Wrap(apperrors.ErrSheetAppendFailed, "append failed", err)
	}
	return nil
}

// FetchRecords reads the whole worksheet back as header-keyed rows, for
// audits and spot checks from the shell.
func (c *Client) FetchRecords(ctx context.Context) ([]map[string]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		if err := c.connectLocked(ctx); err != nil {
			return nil, err
		}
	}

	var resp valuesResponse
	rng := fmt.Sprintf("'%s'", c.worksheet)
	if err := c.do(ctx, http.MethodGet, c.valuesPath(rng), nil, nil, &resp); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrSheetConnectFailed, "cannot read worksheet", err)
	}
	if len(resp.Values) == 0 {
		return nil, nil
	}

	headers := make([]string, len(resp.Values[0]))
	for i, v := range resp.Values[0] {
		headers[i] = fmt.Sprintf("%v", v)
	}

	var out []map[string]string
	for _, row := range resp.Values[1:] {
		m := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(row) {
				m[h] = fmt.Sprintf("%v", row[i])
			} else {
				m[h] = ""
			}
		}
		out = append(out, m)
	}
	return out, nil
}

// ===== REST plumbing =====

type valuesResponse struct {
	Values [][]interface{} `json:"values"`
}

type spreadsheetResponse struct {
	Sheets []struct {
		Properties struct {
			Title string `json:"title"`
		} `json:"properties"`
	} `json:"sheets"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (c *Client) worksheetExists(ctx context.Context) (bool, error) {
	var resp spreadsheetResponse
	path := fmt.Sprintf("/v4/spreadsheets/%s", url.PathEscape(c.spreadsheetID))
	query := url.Values{"fields": {"sheets.properties"}}
	if err := c.do(ctx, http.MethodGet, path, query, nil, &resp); err != nil {
		return false, err
	}
	for _, s := range resp.Sheets {
		if s.Properties.Title == c.worksheet {
			return true, nil
		}
	}
	return false, nil
}

func (c *Client) addWorksheet(ctx context.Context) error {
	path := fmt.Sprintf("/v4/spreadsheets/%s:batchUpdate", url.PathEscape(c.spreadsheetID))
	body := map[string]interface{}{
		"requests": []map[string]interface{}{{
			"addSheet": map[string]interface{}{
				"properties": map[string]interface{}{
					"title": c.worksheet,
					"gridProperties": map[string]int{
						"rowCount":    1000,
						"columnCount": 26,
					},
				},
			},
		}},
	}
	return c.do(ctx, http.MethodPost, path, nil, body, nil)
}

func (c *Client) readHeaders(ctx context.Context) ([]string, error) {
	var resp valuesResponse
	rng := fmt.Sprintf("'%s'!1:1", c.worksheet)
	if err := c.do(ctx, http.MethodGet, c.valuesPath(rng), nil, nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Values) == 0 {
		return nil, nil
	}
	headers := make([]string, 0, len(resp.Values[0]))
	for _, v := range resp.Values[0] {
		headers = append(headers, fmt.Sprintf("%v", v))
	}
	return headers, nil
}

func (c *Client) writeHeaders(ctx context.Context, headers []string) error {
	row := make([]interface{}, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	rng := fmt.Sprintf("'%s'!1:1", c.worksheet)
	query := url.Values{"valueInputOption": {"RAW"}}
	body := map[string]interface{}{"values": []interface{}{row}}
	return c.do(ctx, http.MethodPut, c.valuesPath(rng), query, body, nil)
}

func (c *Client) appendRow(ctx context.Context, row []interface{}) error {
	rng := fmt.Sprintf("'%s'!A1", c.worksheet)
	path := c.valuesPath(rng) + ":append"
	query := url.Values{
		"valueInputOption": {"USER_ENTERED"},
		"insertDataOption": {"INSERT_ROWS"},
	}
	body := map[string]interface{}{"values": []interface{}{row}}
	return c.do(ctx, http.MethodPost, path, query, body, nil)
}

func (c *Client) valuesPath(rng string) string {
	return fmt.Sprintf("/v4/spreadsheets/%s/values/%s",
		url.PathEscape(c.spreadsheetID), url.PathEscape(rng))
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 8*1024))
		var apiErr apiError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
