package backend

import (
	"context"
	"errors"
	"io"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"go-process-table-ui/internal/connectors/processapi"
	"go-process-table-ui/internal/connectors/processstore"
	"go-process-table-ui/internal/generator"
	"go-process-table-ui/internal/process"
)

func newTestApp(t *testing.T) (*Handler, func(*http.Request) (int, string)) {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	store, err := processstore.Open("sqlite", "file:"+name+"?mode=memory&cache=shared", time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	h := NewHandler(store, generator.New(rand.New(rand.NewPCG(3, 4)), generator.DefaultLimits), nil)
	app := NewApp(h)
	return h, func(req *http.Request) (int, string) {
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp.StatusCode, string(body)
	}
}

func TestProcesses_NotGenerated(t *testing.T) {
	_, do := newTestApp(t)

	code, body := do(httptest.NewRequest(http.MethodGet, processapi.ProcessesPath, nil))
	assert.Equal(t, http.StatusNotFound, code)
	assert.Contains(t, body, "no processes generated")
}

func TestGenerateThenFetch(t *testing.T) {
	_, do := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, processapi.GeneratePath, strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	code, body := do(req)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "success", gjson.Get(body, "status").String())

	code, table := do(httptest.NewRequest(http.MethodGet, processapi.ProcessesPath, nil))
	require.Equal(t, http.StatusOK, code)
	records, err := process.Parse(table)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(records), generator.DefaultLimits.MinProcesses)
	assert.Equal(t, "P1", records[0].ID)

	code, params := do(httptest.NewRequest(http.MethodGet, processapi.InputDataPath, nil))
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, params, "Processes Number: ")
}

func TestHealth(t *testing.T) {
	_, do := newTestApp(t)

	code, body := do(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", gjson.Get(body, "status").String())
	assert.Equal(t, "sqlite", gjson.Get(body, "store.driver").String())
}

type failingStore struct{}

func (failingStore) Replace(context.Context, []process.Record, generator.InputParams, time.Time) error {
	return errors.New("disk full")
}

func (failingStore) Latest(context.Context) (*processstore.Snapshot, error) {
	return nil, errors.New("db down")
}

func (failingStore) ServiceStats(context.Context) (*processstore.ServiceStats, error) {
	return nil, errors.New("db down")
}

func TestGenerate_StoreFailure(t *testing.T) {
	app := NewApp(NewHandler(failingStore{}, generator.New(nil, generator.DefaultLimits), nil))

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, processapi.GeneratePath, strings.NewReader("{}")), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "error", gjson.GetBytes(body, "status").String())
	assert.Equal(t, "disk full", gjson.GetBytes(body, "message").String())
}

func TestProcesses_StoreFailure(t *testing.T) {
	app := NewApp(NewHandler(failingStore{}, generator.New(nil, generator.DefaultLimits), nil))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, processapi.ProcessesPath, nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestUnknownRoute(t *testing.T) {
	_, do := newTestApp(t)
	code, _ := do(httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, code)
}
