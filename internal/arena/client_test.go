package arena

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const operator = "3f8a9c2e-6d41-4b8e-9a57-1c0d2e3f4a5b"

func TestStartBattle(t *testing.T) {
	var gotPath, gotOperator string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotOperator = body["operator_id"]
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"battle_id":"b-77","message":"Battle initiated against Warden"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/battle/", nil, nil)
	id, err := c.StartBattle(context.Background(), "npc-7", operator)
	require.NoError(t, err)
	assert.Equal(t, "b-77", id)
	assert.Equal(t, "/battle/arena/npc-7/start-battle/", gotPath)
	assert.Equal(t, operator, gotOperator)
}

func TestStartBattle_Errors(t *testing.T) {
	cases := []struct {
		name       string
		status     int
		body       string
		wantDetail string
	}{
		{name: "detail", status: http.StatusNotFound, body: `{"detail":"Not found."}`, wantDetail: "Not found."},
		{name: "error key", status: http.StatusBadRequest, body: `{"error":"operator has no cores"}`, wantDetail: "operator has no cores"},
		{name: "not json", status: http.StatusBadGateway, body: `<html>bad gateway</html>`, wantDetail: "HTTP 502"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, nil, nil).StartBattle(context.Background(), "npc-7", operator)
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr), "got %v", err)
			assert.Equal(t, tc.status, apiErr.Status)
			assert.Equal(t, tc.wantDetail, apiErr.Detail)
		})
	}
}

func TestStartBattle_RejectsBadOperatorWithoutCalling(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	defer srv.Close()

	_, err := NewClient(srv.URL, nil, nil).StartBattle(context.Background(), "npc-7", "not-a-uuid")
	assert.ErrorIs(t, err, ErrBadOperator)
	assert.False(t, called)
}

func TestStartBattle_MissingBattleID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":"ok"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, nil, nil).StartBattle(context.Background(), "npc-7", operator)
	assert.Error(t, err)
}
