// Package postgrest serves the table client contract from a PostgREST compatible HTTP API,
// the interface of the managed backends the application was first deployed on.
package postgrest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"procurement/tables"
	"sort"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	preferMinimal = "return=minimal"
	preferUpsert  = "resolution=merge-duplicates,return=minimal"
)

type Config struct {
	// URL is the REST root, e.g. https://project.example.co/rest/v1
	URL     string
	APIKey  string
	Timeout time.Duration
}

// Client does not consume the backend's own realtime channel: changes are published to
// feed after each successful write, a shared feed carries them to other processes.
type Client struct {
	base   string
	apiKey string
	http   *http.Client
	feed   tables.Feed
}

func New(config Config, feed tables.Feed) *Client {
	if feed == nil {
		feed = tables.NewLocalFeed()
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		base:   strings.TrimRight(config.URL, "/"),
		apiKey: config.APIKey,
		http:   &http.Client{Transport: &TracingTransport{Transport: http.DefaultTransport}, Timeout: timeout},
		feed:   feed,
	}
}

func (c *Client) Select(ctx context.Context, table string, dest interface{}, q tables.Query) error {
	params := filterParams(q.Filter)
	params.Set("select", "*")
	if q.Order != nil {
		dir := "asc"
		if q.Order.Descending {
			dir = "desc"
		}
		params.Set("order", q.Order.Column+"."+dir)
	}
	body, err := c.invoke(ctx, http.MethodGet, table, params, nil, "")
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return &tables.Error{Code: tables.CodeBackend, Message: "unexpected response body: " + err.Error(), Cause: err}
	}
	return nil
}

func (c *Client) Insert(ctx context.Context, table string, row interface{}) error {
	if _, err := c.invoke(ctx, http.MethodPost, table, nil, row, preferMinimal); err != nil {
		return err
	}
	tables.Notify(ctx, c.feed, tables.NewChange(table, tables.ChangeInsert))
	return nil
}

func (c *Client) Update(ctx context.Context, table string, fields tables.Fields, filter tables.Filter) error {
	if _, err := c.invoke(ctx, http.MethodPatch, table, filterParams(filter), fields, preferMinimal); err != nil {
		return err
	}
	tables.Notify(ctx, c.feed, tables.NewChange(table, tables.ChangeUpdate))
	return nil
}

func (c *Client) Delete(ctx context.Context, table string, filter tables.Filter) error {
	if _, err := c.invoke(ctx, http.MethodDelete, table, filterParams(filter), nil, preferMinimal); err != nil {
		return err
	}
	tables.Notify(ctx, c.feed, tables.NewChange(table, tables.ChangeDelete))
	return nil
}

func (c *Client) Upsert(ctx context.Context, table string, row interface{}) error {
	if _, err := c.invoke(ctx, http.MethodPost, table, nil, row, preferUpsert); err != nil {
		return err
	}
	tables.Notify(ctx, c.feed, tables.NewChange(table, tables.ChangeUpdate))
	return nil
}

func (c *Client) Subscribe(ctx context.Context, table string) (*tables.Subscription, error) {
	return c.feed.Subscribe(ctx, table)
}

// filterParams renders equality conditions as col=eq.value.
func filterParams(filter tables.Filter) url.Values {
	params := url.Values{}
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := filter[k]
		if v == nil {
			params.Add(k, "is.null")
			continue
		}
		params.Add(k, "eq."+fmt.Sprint(v))
	}
	return params
}

func (c *Client) invoke(ctx context.Context, method, table string, params url.Values, payload interface{}, prefer string) ([]byte, error) {
	endpoint := c.base + "/" + url.PathEscape(table)
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, &tables.Error{Code: tables.CodeBackend, Message: err.Error(), Cause: err}
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, &tables.Error{Code: tables.CodeBackend, Message: err.Error(), Cause: err}
	}
	req.Header.Set("Content-Type", "application/json;charset=UTF-8")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &tables.Error{Code: tables.CodeBackend, Message: err.Error(), Cause: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &tables.Error{Code: tables.CodeBackend, Message: err.Error(), Cause: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, parseError(resp.StatusCode, respBody)
	}
	return respBody, nil
}

// parseError reads the {code, message, details, hint} body the backend answers failures with.
func parseError(status int, body []byte) *tables.Error {
	e := &tables.Error{Code: tables.CodeBackend, Message: fmt.Sprintf("unexpected status %d", status)}
	if !gjson.ValidBytes(body) {
		if len(body) > 0 {
			e.Details = string(body)
		}
		return e
	}
	parsed := gjson.ParseBytes(body)
	if code := parsed.Get("code").String(); code != "" {
		e.Code = code
	}
	if msg := parsed.Get("message").String(); msg != "" {
		e.Message = msg
	}
	details := parsed.Get("details").String()
	if hint := parsed.Get("hint").String(); hint != "" {
		details = strings.TrimSpace(details + " " + hint)
	}
	e.Details = details
	return e
}
