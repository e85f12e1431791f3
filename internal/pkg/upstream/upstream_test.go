package upstream

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wire "droneapi/internal/pkg/drone"
)

type observation struct {
	upstream, method, outcome string
}

type recorderStub struct {
	sync.Mutex
	seen []observation
}

func (r *recorderStub) ObserveUpstream(upstream, method, outcome string, _ time.Duration) {
	r.Lock()
	defer r.Unlock()
	r.seen = append(r.seen, observation{upstream, method, outcome})
}

func TestConfigStore_ListConfigs(t *testing.T) {

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"data": [{"drone_id": 7, "drone_name": "Owl", "light": true, "country": "Chile", "weight": 300}]}`)
	}))
	defer srv.Close()

	rec := &recorderStub{}
	store, err := NewConfigStore(srv.URL, srv.Client(), rec)
	require.NoError(t, err)

	configs, err := store.ListConfigs(context.Background())
	require.NoError(t, err)
	require.Len(t, configs, 1)
	assert.Equal(t, `7`, string(configs[0].DroneID.Raw()))
	assert.Equal(t, `"Owl"`, string(configs[0].DroneName))
	assert.Equal(t, []observation{{ConfigStoreName, http.MethodGet, "200"}}, rec.seen)
}

func TestConfigStore_MixedRecords(t *testing.T) {

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"items": [
			{"drone_id": "65010001", "light": true, "weight": 120},
			{"drone_id": "65010002", "light": "sometimes", "weight": "heavy"}
		]}`)
	}))
	defer srv.Close()

	store, err := NewConfigStore(srv.URL, srv.Client(), nil)
	require.NoError(t, err)

	configs, err := store.ListConfigs(context.Background())
	require.NoError(t, err)
	require.Len(t, configs, 2)
	assert.Equal(t, `true`, string(configs[0].Light))
	assert.Equal(t, `"heavy"`, string(configs[1].Weight))
}

func TestConfigStore_EmptyBody(t *testing.T) {

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	store, err := NewConfigStore(srv.URL, srv.Client(), nil)
	require.NoError(t, err)

	configs, err := store.ListConfigs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, configs)
}

func TestConfigStore_StatusError(t *testing.T) {

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, `maintenance`)
	}))
	defer srv.Close()

	store, err := NewConfigStore(srv.URL, srv.Client(), nil)
	require.NoError(t, err)

	_, err = store.ListConfigs(context.Background())
	require.Error(t, err)

	code, ok := StatusCode(err)
	assert.True(t, ok)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, err.Error(), "maintenance")
}

func TestConfigStore_NetworkError(t *testing.T) {

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	rec := &recorderStub{}
	store, err := NewConfigStore(url, nil, rec)
	require.NoError(t, err)

	_, err = store.ListConfigs(context.Background())
	require.Error(t, err)

	_, ok := StatusCode(err)
	assert.False(t, ok)
	assert.Equal(t, []observation{{ConfigStoreName, http.MethodGet, "error"}}, rec.seen)
}

func TestLogStore_ListLogs(t *testing.T) {

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		q := r.URL.Query()
		assert.Equal(t, "(drone_id=65010001)", q.Get("filter"))
		assert.Equal(t, "-created", q.Get("sort"))
		assert.Equal(t, "12", q.Get("perPage"))
		assert.Equal(t, "2", q.Get("page"))
		assert.Equal(t, "kept", q.Get("extra"))
		_, _ = io.WriteString(w, `{"page": 2, "items": [{"id": "a", "drone_id": "65010001", "celsius": 20, "created": "2025-01-01 00:00:00.000Z"}]}`)
	}))
	defer srv.Close()

	store, err := NewLogStore(srv.URL+"/api/collections/logs/records?extra=kept", "secret", srv.Client(), nil)
	require.NoError(t, err)

	page, err := store.ListLogs(context.Background(), LogQuery{
		Filter:  "(drone_id=65010001)",
		Sort:    "-created",
		PerPage: 12,
		Page:    "2",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Page)
	require.Len(t, page.Items, 1)
	assert.Equal(t, `20`, string(page.Items[0].Celsius))
}

func TestLogStore_CreateLog(t *testing.T) {

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var got map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, "65010001", got["drone_id"])
		assert.Equal(t, 18.5, got["celsius"])

		_, _ = io.WriteString(w, `{"id": "new1", "created": "2025-02-02 12:00:00.000Z", "drone_id": "65010001"}`)
	}))
	defer srv.Close()

	store, err := NewLogStore(srv.URL, "secret", srv.Client(), nil)
	require.NoError(t, err)

	stored, err := store.CreateLog(context.Background(), wire.NewLog{
		DroneID:   wire.NewID("65010001"),
		DroneName: json.RawMessage(`"Falcon"`),
		Country:   json.RawMessage(`"Thailand"`),
		Celsius:   18.5,
	})
	require.NoError(t, err)
	assert.Equal(t, `"new1"`, string(stored.ID))
	assert.Equal(t, `"2025-02-02 12:00:00.000Z"`, string(stored.Created))
}

func TestLogStore_CreateLogRejected(t *testing.T) {

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"message": "forbidden"}`)
	}))
	defer srv.Close()

	store, err := NewLogStore(srv.URL, "wrong", srv.Client(), nil)
	require.NoError(t, err)

	_, err = store.CreateLog(context.Background(), wire.NewLog{DroneID: wire.NewID("1")})
	code, ok := StatusCode(err)
	assert.True(t, ok)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestNewStoreInvalidURL(t *testing.T) {

	_, err := NewConfigStore("http://[::1", nil, nil)
	assert.Error(t, err)

	_, err = NewLogStore("http://[::1", "t", nil, nil)
	assert.Error(t, err)
}
