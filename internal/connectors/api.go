package connectors

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"mdm-platform/feedhub/internal/constants"
	"mdm-platform/feedhub/internal/credentials"
	"mdm-platform/feedhub/internal/parser"
)

const (
	defaultPageSize = 100
	maxResponseBody = 64 << 20
)

// APIConnector reads JSON product feeds over HTTP
type APIConnector struct {
	creds      *credentials.APICredentials
	client     *http.Client
	token      string
	maxRecords int
}

func NewAPIConnector(creds *credentials.APICredentials, opts Options) *APIConnector {
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultOptions().RequestTimeout
	}
	return &APIConnector{
		creds:      creds,
		client:     &http.Client{Timeout: timeout},
		maxRecords: opts.MaxRecords,
	}
}

func (c *APIConnector) Kind() credentials.Kind { return credentials.KindAPI }

// Connect fetches an OAuth client-credentials token when configured; the other
// auth types need no session
func (c *APIConnector) Connect(ctx context.Context) error {
	if c.creds.AuthType != credentials.AuthOAuth {
		return nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.creds.ClientID)
	form.Set("client_secret", c.creds.SecretKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.creds.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return newError(constants.ErrCodeCredentialsInvalid, "invalid token url", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return newError(constants.ErrCodeTransportError, "token request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return newError(constants.ErrCodeTransportError, "failed to read token response", err)
	}
	if resp.StatusCode >= 300 {
		return newError(constants.ErrCodeAuthenticationFailed, fmt.Sprintf("token endpoint returned %d", resp.StatusCode), nil)
	}

	token := gjson.GetBytes(body, "access_token").String()
	if token == "" {
		return newError(constants.ErrCodeAuthenticationFailed, "token response has no access_token", nil)
	}
	c.token = token
	return nil
}

func (c *APIConnector) authorize(req *http.Request) {
	for k, v := range c.creds.Headers {
		req.Header.Set(k, v)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	switch c.creds.AuthType {
	case credentials.AuthBasic:
		req.SetBasicAuth(c.creds.Username, c.creds.Password)
	case credentials.AuthToken:
		req.Header.Set("Authorization", "Bearer "+c.creds.AccessToken)
	case credentials.AuthAPIKey:
		req.Header.Set(c.creds.APIKeyHeader, c.creds.APIKey)
	case credentials.AuthOAuth:
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// resolveURL joins the base URL with p, or with the configured endpoint when p is empty
func (c *APIConnector) resolveURL(p string) string {
	if p == "" {
		p = c.creds.Endpoint
	}
	if strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://") {
		return p
	}
	base := strings.TrimRight(c.creds.BaseURL, "/")
	if p == "" || p == "/" {
		return base
	}
	return base + "/" + strings.TrimLeft(p, "/")
}

func (c *APIConnector) do(ctx context.Context, method, rawURL string, query url.Values) (*http.Response, error) {
	if len(query) > 0 {
		u, err := url.Parse(rawURL)
		if err != nil {
			return nil, newError(constants.ErrCodeConfigMalformed, "invalid url "+rawURL, err)
		}
		q := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Set(k, v)
			}
		}
		u.RawQuery = q.Encode()
		rawURL = u.String()
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, newError(constants.ErrCodeConfigMalformed, "invalid url "+rawURL, err)
	}
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, newError(constants.ErrCodeTransportError, "request failed", err)
	}
	return resp, nil
}

func statusError(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return newError(constants.ErrCodeAuthenticationFailed, fmt.Sprintf("remote returned %d", resp.StatusCode), nil)
	case resp.StatusCode == http.StatusNotFound:
		return newError(constants.ErrCodePathNotFound, "remote returned 404", ErrNotFound)
	case resp.StatusCode >= 400:
		return newError(constants.ErrCodeTransportError, fmt.Sprintf("remote returned %d", resp.StatusCode), nil)
	}
	return nil
}

// Probe sends HEAD, falling back to GET for servers that reject HEAD
func (c *APIConnector) Probe(ctx context.Context) (map[string]any, error) {
	target := c.resolveURL("")

	resp, err := c.do(ctx, http.MethodHead, target, nil)
	if err != nil {
		return nil, err
	}
	resp.Body.Close()

	if resp.StatusCode == http.StatusMethodNotAllowed || resp.StatusCode == http.StatusNotImplemented {
		resp, err = c.do(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, err
		}
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
		resp.Body.Close()
	}

	if err := statusError(resp); err != nil {
		return nil, err
	}
	return map[string]any{
		"url":         target,
		"statusCode":  resp.StatusCode,
		"contentType": resp.Header.Get("Content-Type"),
	}, nil
}

// List reports the single endpoint as a file; HTTP feeds have no directory tree
func (c *APIConnector) List(ctx context.Context, p string) ([]Entry, error) {
	e, err := c.Stat(ctx, p)
	if err != nil {
		return nil, err
	}
	return []Entry{*e}, nil
}

func (c *APIConnector) Stat(ctx context.Context, p string) (*Entry, error) {
	if p == "" {
		p = c.creds.Endpoint
	}
	name := path.Base(strings.TrimRight(p, "/"))
	if name == "." || name == "/" || name == "" {
		name = "response"
	}
	if !strings.HasSuffix(name, ".json") {
		name += ".json"
	}
	return &Entry{Name: name, Path: p, IsFile: true}, nil
}

// Fetch follows the configured pagination and returns the collected records as
// a single JSON array. Paging runs until the source is exhausted unless
// MaxPages is set; hitting that cap marks the payload truncated.
func (c *APIConnector) Fetch(ctx context.Context, p string) (*Payload, error) {
	target := c.resolveURL(p)
	pg := c.creds.Pagination

	pageSize := pg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	var (
		records   []json.RawMessage
		firstRaw  string
		truncated bool
	)
	for page := 0; ; page++ {
		if pg.MaxPages > 0 && page >= pg.MaxPages {
			truncated = true
			break
		}

		query := url.Values{}
		switch pg.Type {
		case credentials.PaginationOffset:
			query.Set(orDefault(pg.LimitParam, "limit"), strconv.Itoa(pageSize))
			query.Set(orDefault(pg.OffsetParam, "offset"), strconv.Itoa(page*pageSize))
		case credentials.PaginationPage:
			query.Set(orDefault(pg.LimitParam, "per_page"), strconv.Itoa(pageSize))
			query.Set(orDefault(pg.PageParam, "page"), strconv.Itoa(page+1))
		}

		batch, err := c.fetchPage(ctx, target, query)
		if err != nil {
			return nil, err
		}
		// a server that ignores the paging parameters repeats its first page
		if page > 0 && len(batch) > 0 && string(batch[0]) == firstRaw {
			break
		}
		if page == 0 && len(batch) > 0 {
			firstRaw = string(batch[0])
		}
		records = append(records, batch...)

		if c.maxRecords > 0 && len(records) >= c.maxRecords {
			records = records[:c.maxRecords]
			break
		}
		if pg.Type == credentials.PaginationNone || len(batch) < pageSize {
			break
		}
	}

	if records == nil {
		records = []json.RawMessage{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return nil, newError(constants.ErrCodeParseError, "failed to encode api records", err)
	}

	entry, _ := c.Stat(ctx, p)
	return &Payload{
		Name:      entry.Name,
		Format:    "json",
		Size:      int64(len(data)),
		Body:      io.NopCloser(bytes.NewReader(data)),
		Truncated: truncated,
	}, nil
}

func (c *APIConnector) fetchPage(ctx context.Context, target string, query url.Values) ([]json.RawMessage, error) {
	resp, err := c.do(ctx, http.MethodGet, target, query)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := statusError(resp); err != nil {
		return nil, err
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, newError(constants.ErrCodeTransportError, "failed to read response", err)
	}
	if !gjson.ValidBytes(body) {
		return nil, newError(constants.ErrCodeParseError, "response is not valid JSON", nil)
	}

	results := parser.ExtractRecords(body, c.creds.RecordsPath)
	out := make([]json.RawMessage, 0, len(results))
	for _, r := range results {
		out = append(out, json.RawMessage(r.Raw))
	}
	return out, nil
}

func (c *APIConnector) Delete(ctx context.Context, p string) error {
	return ErrUnsupported
}

func (c *APIConnector) Close() error {
	c.client.CloseIdleConnections()
	c.token = ""
	return nil
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
