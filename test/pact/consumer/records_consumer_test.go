//go:build pact
// +build pact

package consumer_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	pacttest "github.com/Apurer/go-gin-records-api/test/pact"

	pactconsumer "github.com/pact-foundation/pact-go/v2/consumer"
	pactlog "github.com/pact-foundation/pact-go/v2/log"
	"github.com/pact-foundation/pact-go/v2/matchers"
	"github.com/stretchr/testify/require"
)

type recordPayload struct {
	ID         int64  `json:"id"`
	SortOrder  int64  `json:"sort_order"`
	RecordName string `json:"record_name"`
}

type moveRequest struct {
	RecordID int64  `json:"record_id"`
	BeforeID *int64 `json:"before_id,omitempty"`
	AfterID  *int64 `json:"after_id,omitempty"`
}

type problemDetail struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

type apiError struct {
	status int
	title  string
	detail string
}

func (e apiError) Error() string {
	msg := e.title
	if msg == "" {
		msg = "api error"
	}
	if e.detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.detail)
	}
	return fmt.Sprintf("%s (status %d)", msg, e.status)
}

func (e apiError) Status() int {
	return e.status
}

func TestRecordsBoardContract(t *testing.T) {
	t.Helper()
	pactlog.SetLogLevel("INFO")

	pact, err := pactconsumer.NewV2Pact(pactconsumer.MockHTTPProviderConfig{
		Consumer: pacttest.ConsumerName,
		Provider: pacttest.ProviderName,
		PactDir:  pacttest.PactDir(t),
		LogDir:   pacttest.LogDir(t),
	})
	require.NoError(t, err)

	jsonContentType := matchers.Regex("application/json; charset=utf-8", "application\\/json(?:;\\s?charset=utf-8)?")
	recordMatcher := func(id, sortOrder int64, name string) matchers.Map {
		return matchers.Map{
			"id":          matchers.Like(id),
			"sort_order":  matchers.Like(sortOrder),
			"record_name": matchers.Like(name),
		}
	}
	first := pacttest.FirstRecordID
	second := pacttest.SecondRecordID

	pact.AddInteraction().
		Given(pacttest.StateRecordsBaseline).
		UponReceiving("a request for the first page of records").
		WithRequest("GET", "/records", func(b *pactconsumer.V2RequestBuilder) {
			b.Query("limit", matchers.S("2"))
			b.Query("offset", matchers.S("0"))
		}).
		WillRespondWith(http.StatusOK, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", jsonContentType)
			b.JSONBody(matchers.EachLike(recordMatcher(1, 1000, "Record 1"), 1))
		})

	pact.AddInteraction().
		Given(pacttest.StateRecordsBaseline).
		UponReceiving("a request to move a record between two neighbors").
		WithRequest("POST", "/records/move", func(b *pactconsumer.V2RequestBuilder) {
			b.Header("Content-Type", matchers.S("application/json"))
			b.JSONBody(matchers.Map{
				"record_id": matchers.Like(pacttest.ThirdRecordID),
				"before_id": matchers.Like(first),
				"after_id":  matchers.Like(second),
			})
		}).
		WillRespondWith(http.StatusOK, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", jsonContentType)
			b.JSONBody(matchers.Map{
				"id":          matchers.Like(pacttest.ThirdRecordID),
				"sort_order":  matchers.Like(1500),
				"record_name": matchers.Like("Record 3"),
			})
		})

	pact.AddInteraction().
		Given(pacttest.StateRecordsEmpty).
		UponReceiving("a request to move a missing record").
		WithRequest("POST", "/records/move", func(b *pactconsumer.V2RequestBuilder) {
			b.Header("Content-Type", matchers.S("application/json"))
			b.JSONBody(matchers.Map{
				"record_id": matchers.Like(pacttest.MissingID),
			})
		}).
		WillRespondWith(http.StatusNotFound, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", matchers.S("application/problem+json"))
			b.JSONBody(matchers.Map{
				"type":   matchers.S("/problems/not-found"),
				"title":  matchers.S("Resource Not Found"),
				"status": matchers.Like(http.StatusNotFound),
			})
		})

	err = pact.ExecuteTest(t, func(config pactconsumer.MockServerConfig) error {
		client := newRecordsClient(config)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		page, err := client.ListRecords(ctx, 2, 0)
		if err != nil {
			return fmt.Errorf("list records: %w", err)
		}
		if len(page) == 0 {
			return fmt.Errorf("expected at least one record")
		}

		moved, err := client.MoveRecord(ctx, moveRequest{RecordID: pacttest.ThirdRecordID, BeforeID: &first, AfterID: &second})
		if err != nil {
			return fmt.Errorf("move record: %w", err)
		}
		if moved.ID != pacttest.ThirdRecordID {
			return fmt.Errorf("expected record %d, got %+v", pacttest.ThirdRecordID, moved)
		}

		if _, err := client.MoveRecord(ctx, moveRequest{RecordID: pacttest.MissingID}); err == nil {
			return fmt.Errorf("expected 404 for record %d", pacttest.MissingID)
		} else if apiErr, ok := err.(apiError); ok && apiErr.Status() != http.StatusNotFound {
			return fmt.Errorf("expected 404, got %d", apiErr.Status())
		}
		return nil
	})
	require.NoError(t, err)
}

type recordsClient struct {
	baseURL    string
	httpClient *http.Client
}

func newRecordsClient(config pactconsumer.MockServerConfig) *recordsClient {
	host := config.Host
	if host == "" {
		host = "localhost"
	}
	transport := &http.Transport{TLSClientConfig: config.TLSConfig}
	client := &http.Client{Transport: transport, Timeout: 10 * time.Second}
	return &recordsClient{
		baseURL:    fmt.Sprintf("http://%s:%d", host, config.Port),
		httpClient: client,
	}
}

func (c *recordsClient) ListRecords(ctx context.Context, limit, offset int) ([]recordPayload, error) {
	url := fmt.Sprintf("%s/records?limit=%d&offset=%d", c.baseURL, limit, offset)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusBadRequest {
		return nil, decodeAPIError(res)
	}
	var payload []recordPayload
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func (c *recordsClient) MoveRecord(ctx context.Context, move moveRequest) (*recordPayload, error) {
	body, err := json.Marshal(move)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/records/move", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusBadRequest {
		return nil, decodeAPIError(res)
	}
	var payload recordPayload
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func decodeAPIError(res *http.Response) error {
	var problem problemDetail
	_ = json.NewDecoder(res.Body).Decode(&problem)
	status := problem.Status
	if status == 0 {
		status = res.StatusCode
	}
	return apiError{
		status: status,
		title:  problem.Title,
		detail: problem.Detail,
	}
}
