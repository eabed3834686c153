package feedsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/pkg/errors"

	"github.com/kahero/ratiba/core"
)

// httpService pushes dashboard records to the feed backend over its REST API.
// Per-recipient feeds live at PUT {base}/feeds/{recipient}/records/{record}.
type httpService struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

var _ core.FeedService = (*httpService)(nil)

func NewHTTPService(conf *core.Config) *httpService {
	return &httpService{
		baseURL: conf.Feed.BaseURL,
		apiKey:  conf.Feed.APIKey,
		client:  &http.Client{},
	}
}

func (svc *httpService) Upsert(ctx context.Context, recipientID string, rec core.DashboardRecord) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "encoding record")
	}

	u := fmt.Sprintf("%s/feeds/%s/records/%s",
		svc.baseURL, url.PathEscape(recipientID), url.PathEscape(rec.ID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	req.Header.Set("Content-Type", "application/json")
	if svc.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+svc.apiKey)
	}

	res, err := svc.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "pushing record")
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode >= http.StatusBadRequest {
		return errors.Errorf("pushing record: status %d", res.StatusCode)
	}
	return nil
}
