package kassalapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Defaults applied by New.
const (
	DefaultBaseURL           = "https://kassal.app/api/v1"
	DefaultTimeout           = 10 * time.Second
	DefaultRequestsPerMinute = 60

	// maxErrorBody caps how much of an error response is read for the message.
	maxErrorBody = 4096
)

// Options configures a Client. Zero values take the defaults above; a
// negative RequestsPerMinute disables pacing.
type Options struct {
	Token             string
	BaseURL           string
	Timeout           time.Duration
	RequestsPerMinute int
	HTTPClient        *http.Client
}

// Client talks to the Kassal.app REST API.
//
// Thread Safety: All methods are safe for concurrent use.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// New creates a client. It does not contact the API; use Validate for that.
func New(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	perMinute := opts.RequestsPerMinute
	if perMinute == 0 {
		perMinute = DefaultRequestsPerMinute
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if perMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
	}

	return &Client{
		baseURL:    baseURL,
		token:      opts.Token,
		httpClient: httpClient,
		limiter:    limiter,
	}
}

// Validate checks the token by listing shopping lists.
//
// Returns ErrInvalidAPIKey when the token is rejected and an error wrapping
// ErrRequestFailed when the API cannot be reached.
func (c *Client) Validate(ctx context.Context) error {
	_, err := c.ShoppingLists(ctx)
	return err
}

// ShoppingLists returns every shopping list of the account.
func (c *Client) ShoppingLists(ctx context.Context) ([]ShoppingList, error) {
	var out envelope[[]ShoppingList]
	if err := c.do(ctx, http.MethodGet, "/shopping-lists", nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// ShoppingListItems returns the items of one list in API order.
func (c *Client) ShoppingListItems(ctx context.Context, listID int64) ([]ShoppingListItem, error) {
	var out envelope[[]ShoppingListItem]
	if err := c.do(ctx, http.MethodGet, itemsPath(listID), nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// AddShoppingListItem appends an item. productID 0 adds a free-text item.
func (c *Client) AddShoppingListItem(ctx context.Context, listID int64, text string, productID int64) (*ShoppingListItem, error) {
	body := newItem{Text: text}
	if productID != 0 {
		body.ProductID = &productID
	}

	var out envelope[ShoppingListItem]
	if err := c.do(ctx, http.MethodPost, itemsPath(listID), body, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// UpdateShoppingListItem applies a partial update to one item.
func (c *Client) UpdateShoppingListItem(ctx context.Context, listID, itemID int64, update ItemUpdate) (*ShoppingListItem, error) {
	var out envelope[ShoppingListItem]
	if err := c.do(ctx, http.MethodPatch, itemPath(listID, itemID), update, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// DeleteShoppingListItem removes one item.
func (c *Client) DeleteShoppingListItem(ctx context.Context, listID, itemID int64) error {
	return c.do(ctx, http.MethodDelete, itemPath(listID, itemID), nil, nil)
}

func itemsPath(listID int64) string {
	return "/shopping-lists/" + strconv.FormatInt(listID, 10) + "/items"
}

func itemPath(listID, itemID int64) string {
	return itemsPath(listID) + "/" + strconv.FormatInt(itemID, 10)
}

// do performs one request. in is JSON-encoded when non-nil; out is decoded
// from a 2xx body when non-nil.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %s %s: waiting for rate limiter: %w", ErrRequestFailed, method, path, err)
	}

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding %s %s body: %w", method, path, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%w: creating request: %w", ErrRequestFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrRequestFailed, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrInvalidAPIKey
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(method, path, resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: decoding %s %s response: %w", ErrRequestFailed, method, path, err)
	}
	return nil
}

func newAPIError(method, path string, resp *http.Response) *APIError {
	apiErr := &APIError{Method: method, Path: path, StatusCode: resp.StatusCode}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody)) //nolint:errcheck // message is best effort
	var eb errorBody
	if json.Unmarshal(raw, &eb) == nil && eb.Message != "" {
		apiErr.Message = eb.Message
	} else {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	return apiErr
}
