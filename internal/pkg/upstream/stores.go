package upstream

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pkg/errors"

	wire "droneapi/internal/pkg/drone"
)

// upstream names used in logs and metrics
const (
	ConfigStoreName = "config_store"
	LogStoreName    = "log_store"
)

// ConfigStore reads the drone config collection.
type ConfigStore struct {
	client
	url *url.URL
}

func NewConfigStore(rawURL string, httpClient *http.Client, recorder Recorder) (*ConfigStore, error) {
	u, err := parseURL(rawURL)
	if err != nil {
		return nil, err
	}
	return &ConfigStore{client: newClient(ConfigStoreName, httpClient, "", recorder), url: u}, nil
}

// ListConfigs fetches the full collection, whatever envelope it comes in.
func (s *ConfigStore) ListConfigs(ctx context.Context) ([]wire.Config, error) {
	var env wire.ConfigEnvelope
	if err := s.do(ctx, http.MethodGet, s.url, nil, &env); err != nil {
		return nil, err
	}
	return env.Records, nil
}

// LogQuery selects a page of a drone's logs.
type LogQuery struct {
	Filter  string
	Sort    string
	PerPage int
	Page    string
}

// LogStore lists and creates log records, authenticating with a bearer token.
type LogStore struct {
	client
	url *url.URL
}

func NewLogStore(rawURL, token string, httpClient *http.Client, recorder Recorder) (*LogStore, error) {
	u, err := parseURL(rawURL)
	if err != nil {
		return nil, err
	}
	return &LogStore{client: newClient(LogStoreName, httpClient, token, recorder), url: u}, nil
}

// ListLogs fetches one page of log records. Query parameters already on the
// store url are kept.
func (s *LogStore) ListLogs(ctx context.Context, q LogQuery) (*wire.LogPage, error) {

	target := *s.url
	params := target.Query()
	params.Set("filter", q.Filter)
	params.Set("sort", q.Sort)
	params.Set("perPage", strconv.Itoa(q.PerPage))
	params.Set("page", q.Page)
	target.RawQuery = params.Encode()

	page := &wire.LogPage{}
	if err := s.do(ctx, http.MethodGet, &target, nil, page); err != nil {
		return nil, err
	}

	return page, nil
}

// CreateLog posts a new record and returns it as stored.
func (s *LogStore) CreateLog(ctx context.Context, entry wire.NewLog) (*wire.Log, error) {

	stored := &wire.Log{}
	if err := s.do(ctx, http.MethodPost, s.url, entry, stored); err != nil {
		return nil, err
	}

	return stored, nil
}

// StatusCode returns the upstream status carried by err, if any.
func StatusCode(err error) (int, bool) {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code, true
	}
	return 0, false
}
