package userapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kittclouds/usergrid/pkg/records"
)

type recorded struct {
	method    string
	path      string
	body      string
	requestID string
}

func newServer(t *testing.T, status int, response string) (*httptest.Server, *[]recorded) {
	t.Helper()
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		calls = append(calls, recorded{
			method:    r.Method,
			path:      r.URL.Path,
			body:      string(body),
			requestID: r.Header.Get(RequestIDHeader),
		})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestFetchAll(t *testing.T) {
	srv, calls := newServer(t, http.StatusOK,
		`[{"id":0,"name":"api-name1","username":"api-username1","email":"api-email1@test.com"}]`)
	c := NewClient(srv.URL + "/")

	list, err := c.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "api-username1", list[0].Username)

	require.Len(t, *calls, 1)
	assert.Equal(t, http.MethodGet, (*calls)[0].method)
	assert.Equal(t, "/users", (*calls)[0].path)
	assert.NotEmpty(t, (*calls)[0].requestID)
}

func TestUpdate(t *testing.T) {
	srv, calls := newServer(t, http.StatusOK, `{"id":3,"name":"saved","username":"u","email":"e"}`)
	c := NewClient(srv.URL)

	saved, err := c.Update(context.Background(), records.Record{ID: 3, Name: "draft"})
	require.NoError(t, err)
	assert.Equal(t, "saved", saved.Name)

	call := (*calls)[0]
	assert.Equal(t, http.MethodPut, call.method)
	assert.Equal(t, "/users/3", call.path)
	assert.JSONEq(t, `{"id":3,"name":"draft","username":"","email":""}`, call.body)
}

func TestUpdateBulkKeysByID(t *testing.T) {
	srv, calls := newServer(t, http.StatusOK, `{"0":{"id":0,"name":"a"},"1":{"id":1,"name":"b"}}`)
	c := NewClient(srv.URL)

	out, err := c.UpdateBulk(context.Background(), map[int]records.Record{
		0: {ID: 0, Name: "a"},
		1: {ID: 1, Name: "b"},
	})
	require.NoError(t, err)
	assert.Equal(t, "b", out[1].Name)

	call := (*calls)[0]
	assert.Equal(t, "/users/bulk", call.path)
	var sent map[string]records.Record
	require.NoError(t, json.Unmarshal([]byte(call.body), &sent))
	assert.Contains(t, sent, "0")
	assert.Contains(t, sent, "1")
}

func TestStatusError(t *testing.T) {
	srv, _ := newServer(t, http.StatusNotFound, `{"error":"not found"}`)
	c := NewClient(srv.URL)

	_, err := c.UpdateBulk(context.Background(), map[int]records.Record{0: {}})

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
	assert.Equal(t, http.MethodPut, se.Method)
	assert.Contains(t, se.Error(), "not found")
}

func TestDecodeError(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, `not json`)
	c := NewClient(srv.URL)

	_, err := c.FetchAll(context.Background())
	assert.Error(t, err)
}

func TestTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithTimeout(20*time.Millisecond))
	_, err := c.FetchAll(context.Background())
	assert.Error(t, err)
}
