package backend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kittclouds/usergrid/internal/store"
	"github.com/kittclouds/usergrid/pkg/coordinator"
	"github.com/kittclouds/usergrid/pkg/editsession"
	"github.com/kittclouds/usergrid/pkg/records"
	"github.com/kittclouds/usergrid/pkg/recordstore"
	"github.com/kittclouds/usergrid/pkg/userapi"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var twoUsers = []records.Record{
	{ID: 0, Name: "api-name1", Username: "api-username1", Email: "api-email1@test.com"},
	{ID: 1, Name: "api-name2", Username: "api-username2", Email: "api-email2@test.com"},
}

func newBackend(t *testing.T, bulk bool) (*store.SQLStore, *httptest.Server) {
	t.Helper()
	s, err := store.NewSQLStore()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	_, err = s.Seed(context.Background(), twoUsers)
	require.NoError(t, err)
	s.SetBulkEnabled(bulk)

	srv := httptest.NewServer(NewRouter(s, nil))
	t.Cleanup(srv.Close)
	return s, srv
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestListUsers(t *testing.T) {
	_, srv := newBackend(t, false)

	list, err := userapi.NewClient(srv.URL).FetchAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, twoUsers, list)
}

func TestUpdateUsesPathID(t *testing.T) {
	s, srv := newBackend(t, false)

	resp := do(t, http.MethodPut, srv.URL+"/users/1", `{"id": 0, "name": "b2", "username": "u", "email": "e"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	u, err := s.GetUser(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "b2", u.Name)

	u0, err := s.GetUser(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, "api-name1", u0.Name)
}

func TestUpdateErrors(t *testing.T) {
	_, srv := newBackend(t, false)

	assert.Equal(t, http.StatusNotFound, do(t, http.MethodPut, srv.URL+"/users/9", `{"name":"x"}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, do(t, http.MethodPut, srv.URL+"/users/1", `{bad`).StatusCode)
	assert.Equal(t, http.StatusNotFound, do(t, http.MethodGet, srv.URL+"/nothing", ``).StatusCode)
}

func TestBulkRouteMissingByDefault(t *testing.T) {
	_, srv := newBackend(t, false)

	resp := do(t, http.MethodPut, srv.URL+"/users/bulk", `{"0": {"id": 0, "name": "x"}}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBulkRouteWhenEnabled(t *testing.T) {
	s, srv := newBackend(t, true)

	out, err := userapi.NewClient(srv.URL).UpdateBulk(context.Background(), map[int]records.Record{
		0: {ID: 0, Name: "a2", Username: "ua", Email: "a@test.com"},
	})
	require.NoError(t, err)
	assert.Equal(t, "a2", out[0].Name)

	u, err := s.GetUser(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, store.ReasonBulk, u.ChangeReason)
}

// The whole engine over HTTP: row save reaches the backend, bulk save
// falls back to the simulated response because /users/bulk is missing.
func TestEngineOverHTTP(t *testing.T) {
	ctx := context.Background()
	s, srv := newBackend(t, false)

	c := coordinator.New(userapi.NewClient(srv.URL), recordstore.New(), editsession.New())
	require.NoError(t, c.Load(ctx))
	require.Equal(t, 2, c.Records().Len())

	require.True(t, c.StartEdit(0))
	c.Edits().PatchDraft(0, records.Patch{Name: records.String("a2")})
	outcome, err := c.SaveOne(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, coordinator.OutcomeSaved, outcome)

	u, err := s.GetUser(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "a2", u.Name)

	c.EditAll()
	c.Edits().PatchDraft(1, records.Patch{Email: records.String("b2@test.com")})
	outcome, err = c.SaveAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, coordinator.OutcomeSimulated, outcome)

	r1, _ := c.Records().Lookup(1)
	assert.Equal(t, "b2@test.com", r1.Email)
	assert.False(t, c.Edits().IsBulkInProgress())

	// The simulated save never reached the backend.
	u1, err := s.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "api-email2@test.com", u1.Email)
}
