package servicenow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"snow-mirror/internal/config"
	"snow-mirror/internal/models"
	"snow-mirror/pkg/log"
)

// Client talks to the instance's Table API. Credentials are read from the
// store at request time so a runtime rotation applies to the next page.
type Client struct {
	httpClient  *http.Client
	credentials *config.CredentialStore
	pageSize    int
	logger      zerolog.Logger
}

func NewClient(credentials *config.CredentialStore, cfg *config.ServiceNow) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.RequestTimeout) * time.Second,
		},
		credentials: credentials,
		pageSize:    cfg.PageSize,
		logger:      log.Logger.With().Str("component", "servicenow_client").Logger(),
	}
}

type tableAPIResponse struct {
	Result []models.Record `json:"result"`
}

// Fetch pulls the complete record set of one table, watermark-bounded when
// since is non-empty, using compound-cursor pagination. There is no per-page
// retry: a failed page ends this table's fetch for the cycle and the result
// carries whatever was gathered plus the failure.
func (c *Client) Fetch(ctx context.Context, table, since string) *FetchResult {
	logger := c.logger.With().Str("table", table).Str("since", since).Logger()
	result := &FetchResult{MaxTimestamp: since}
	lastSysID := ""

	for {
		query := buildCursorQuery(since, lastSysID)
		page, unreachable, err := c.fetchPage(ctx, table, query)
		if unreachable {
			logger.Warn().Msg("Table unreachable, stopping pagination")
			result.Unreachable = true
			return result
		}
		if err != nil {
			logger.Error().Err(err).Int("pages", result.Pages).Msg("Page request failed, aborting fetch")
			result.Err = err
			return result
		}

		if len(page) == 0 {
			return result
		}

		lastSysID = page[len(page)-1].SysID()
		for _, record := range page {
			if ts := record.UpdatedOn(); ts != "" && ts > result.MaxTimestamp {
				result.MaxTimestamp = ts
			}
		}

		result.Records = append(result.Records, page...)
		result.Pages++
		logger.Debug().Int("page_records", len(page)).Int("total", len(result.Records)).Msg("Page fetched")

		if len(page) < c.pageSize {
			return result
		}
	}
}

func (c *Client) fetchPage(ctx context.Context, table, query string) ([]models.Record, bool, error) {
	params := url.Values{}
	params.Set("sysparm_limit", strconv.Itoa(c.pageSize))
	params.Set("sysparm_query", query)
	params.Set("sysparm_display_value", "false")
	params.Set("sysparm_exclude_reference_link", "true")

	body, unreachable, err := c.doRequest(ctx, http.MethodGet, c.tableURL(table), params, nil)
	if unreachable || err != nil {
		return nil, unreachable, err
	}

	var decoded tableAPIResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, false, fmt.Errorf("failed to decode page for table %s: %w", table, err)
	}
	return decoded.Result, false, nil
}

// QueryTable runs a bounded ad-hoc query with optional field selection.
func (c *Client) QueryTable(ctx context.Context, table, query, fields string, limit int) ([]models.Record, error) {
	params := url.Values{}
	if query != "" {
		params.Set("sysparm_query", query)
	}
	if fields != "" {
		params.Set("sysparm_fields", fields)
	}
	if limit > 0 {
		params.Set("sysparm_limit", strconv.Itoa(limit))
	}

	body, unreachable, err := c.doRequest(ctx, http.MethodGet, c.tableURL(table), params, nil)
	if unreachable {
		return nil, fmt.Errorf("table %s is unreachable", table)
	}
	if err != nil {
		return nil, err
	}

	var decoded tableAPIResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode query result for table %s: %w", table, err)
	}
	return decoded.Result, nil
}

// PatchRecord pushes one corrected field to the remote record and returns the
// remote's view of the write, including its new modification timestamp.
func (c *Client) PatchRecord(ctx context.Context, table, sysID, field string, value interface{}) (*PatchResult, error) {
	payload, err := json.Marshal(map[string]interface{}{field: value})
	if err != nil {
		return nil, fmt.Errorf("failed to encode patch payload: %w", err)
	}

	endpoint := c.tableURL(table) + "/" + url.PathEscape(sysID)
	body, unreachable, err := c.doRequest(ctx, http.MethodPatch, endpoint, nil, payload)
	if unreachable {
		return nil, fmt.Errorf("record %s/%s is unreachable", table, sysID)
	}
	if err != nil {
		return nil, err
	}

	var decoded struct {
		Result models.Record `json:"result"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode patch response: %w", err)
	}

	result := &PatchResult{
		SysID:     decoded.Result.SysID(),
		UpdatedOn: decoded.Result.UpdatedOn(),
	}
	if name := models.ClassifyField(decoded.Result["name"]); name.Kind != models.FieldKindNull {
		result.Name = name.Scalar
	}

	c.logger.Info().Str("table", table).Str(models.FieldSysID, result.SysID).
		Str("field", field).Msg("Patched remote record")
	return result, nil
}

// doRequest performs one authenticated request. The bool return marks the
// authorization/not-found class (401/403/404) that ends paging for a table.
func (c *Client) doRequest(ctx context.Context, method, endpoint string, params url.Values, payload []byte) ([]byte, bool, error) {
	creds := c.credentials.Snapshot()

	requestURL := endpoint
	if len(params) > 0 {
		requestURL += "?" + params.Encode()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, body)
	if err != nil {
		return nil, false, fmt.Errorf("failed to build request: %w", err)
	}
	req.SetBasicAuth(creds.Username, creds.Password)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return nil, true, nil
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, false, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, endpoint)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read response body: %w", err)
	}
	return data, false, nil
}

func (c *Client) tableURL(table string) string {
	creds := c.credentials.Snapshot()
	return fmt.Sprintf("%s/api/now/table/%s", creds.Instance, url.PathEscape(table))
}
