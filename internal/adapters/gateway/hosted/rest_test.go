package hosted

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_DoJSON_SendsAuthAndDecodes(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer anon-key" {
			t.Errorf("unexpected authorization header: %q", got)
		}
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("unexpected content type: %q", got)
		}

		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("request body not decodable: %v", err)
		}
		if body["name"] != "Mentor" {
			t.Errorf("unexpected body: %v", body)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"role-1","name":"Mentor"}`))
	}))
	t.Cleanup(srv.Close)

	c := newTestClient(srv.URL)

	var out struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	err := c.doJSON(context.Background(), http.MethodPost, "/roles", map[string]string{"name": "Mentor"}, &out)
	if err != nil {
		t.Fatalf("doJSON returned error: %v", err)
	}
	if out.ID != "role-1" || out.Name != "Mentor" {
		t.Fatalf("response not decoded: %+v", out)
	}
}

func TestClient_DoJSON_NonSuccessBecomesRequestError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"message":"email already registered"}`))
	}))
	t.Cleanup(srv.Close)

	c := newTestClient(srv.URL)

	err := c.doJSON(context.Background(), http.MethodPost, "/users", map[string]string{}, nil)
	if err == nil {
		t.Fatal("expected error for conflict response")
	}
	if !isStatus(err, http.StatusConflict) {
		t.Fatalf("expected conflict request error, got %v", err)
	}

	var reqErr *requestError
	if !errors.As(err, &reqErr) || reqErr.Message != "email already registered" {
		t.Fatalf("server message not carried: %v", err)
	}
}

func TestIsStatus(t *testing.T) {
	t.Parallel()

	if !isStatus(&requestError{Status: http.StatusNotFound}, http.StatusNotFound) {
		t.Fatal("matching status must be detected")
	}
	if isStatus(&requestError{Status: http.StatusNotFound}, http.StatusConflict) {
		t.Fatal("different status must not match")
	}
	if isStatus(errors.New("plain"), http.StatusNotFound) {
		t.Fatal("plain errors must not match")
	}
}
