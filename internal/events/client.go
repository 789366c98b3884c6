package events

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/luff543/EventChatBotBackend/internal/model"
	"github.com/luff543/EventChatBotBackend/pkg/logger"
	"github.com/luff543/EventChatBotBackend/pkg/metrics"
)

// Client calls the EventGo search backend.
type Client struct {
	baseURL string
	http    *http.Client
	log     *logger.Logger
}

// NewClient creates an EventGo client.
func NewClient(baseURL string, timeout time.Duration, log *logger.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

// Search runs an event search with the given parameters.
func (c *Client) Search(ctx context.Context, params *model.SearchParams) (*model.SearchResult, error) {
	q := url.Values{}
	if params.Query != "" {
		q.Set("query", params.Query)
	}
	if params.City != "" {
		q.Set("city", params.City)
	}
	if params.From > 0 {
		q.Set("from", strconv.FormatInt(params.From, 10))
	}
	if params.To > 0 {
		q.Set("to", strconv.FormatInt(params.To, 10))
	}
	if params.Type != "" {
		q.Set("type", params.Type)
	}
	if params.TimeKey != "" {
		q.Set("timeKey", params.TimeKey)
	}
	if params.Sort != "" {
		q.Set("sort", params.Sort)
	}
	q.Set("asc", strconv.FormatBool(params.Asc))
	if params.Num > 0 {
		q.Set("num", strconv.Itoa(params.Num))
	}
	if params.Page > 0 {
		q.Set("p", strconv.Itoa(params.Page))
	}

	reqURL := c.baseURL + "/event?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building search request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RecordEventSearch("error")
		return nil, fmt.Errorf("searching events: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.RecordEventSearch(strconv.Itoa(resp.StatusCode))
		return nil, fmt.Errorf("search backend returned status %d", resp.StatusCode)
	}

	var result model.SearchResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		metrics.RecordEventSearch("decode_error")
		return nil, fmt.Errorf("decoding search response: %w", err)
	}

	metrics.RecordEventSearch("ok")
	c.log.Debug("event search completed",
		zap.String("city", params.City),
		zap.String("query", params.Query),
		zap.Int("results", len(result.Events)),
	)
	return &result, nil
}
