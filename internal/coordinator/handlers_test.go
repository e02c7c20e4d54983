package coordinator

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/rawblock/collision-engine/internal/hashcore"
	"github.com/rawblock/collision-engine/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(seed map[string]string) *gin.Engine {
	s := store.NewMemStore(seed)
	hub := NewHub()
	go hub.Run()
	return SetupRouter(hashcore.DefaultDescriptor, s, hub)
}

func postJSON(r *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/submit_work", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSubmitWorkBadCredentials(t *testing.T) {
	r := newTestRouter(map[string]string{"alice": "alicetoken"})
	w := postJSON(r, `{"username":"alice","usertoken":"wrong","results":[]}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", w.Code, w.Body.String())
	}
}

func TestSubmitWorkEmptyResults(t *testing.T) {
	r := newTestRouter(map[string]string{"alice": "alicetoken"})
	w := postJSON(r, `{"username":"alice","usertoken":"alicetoken","results":[]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(resp["status"], "accepted 0 results") {
		t.Fatalf("expected 'accepted 0 results' in status, got %q", resp["status"])
	}
}

func TestSubmitWorkBadHashLength(t *testing.T) {
	r := newTestRouter(map[string]string{"alice": "alicetoken"})
	w := postJSON(r, `{"username":"alice","usertoken":"alicetoken","results":[{"start":"deadbeef","dp":"deadbeef"}]}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	var resp map[string]string
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["status"] != "bad hash length" {
		t.Fatalf("expected 'bad hash length', got %q", resp["status"])
	}
}

func TestSubmitWorkBadCredentialsTakesPrecedenceOverBadHashLength(t *testing.T) {
	r := newTestRouter(map[string]string{"alice": "alicetoken"})
	w := postJSON(r, `{"username":"alice","usertoken":"wrong","results":[{"start":"deadbeef","dp":"deadbeef"}]}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", w.Code, w.Body.String())
	}
	var resp map[string]string
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["status"] != "bad username and/or usertoken" {
		t.Fatalf("expected 'bad username and/or usertoken', got %q", resp["status"])
	}
}

func TestSubmitWorkCollisionAcrossUsers(t *testing.T) {
	r := newTestRouter(map[string]string{"alice": "alicetoken", "bob": "bobtoken"})

	w1 := postJSON(r, `{"username":"alice","usertoken":"alicetoken","results":[{"start":"deadbeefcafebabe","dp":"1111111111111111"}]}`)
	if w1.Code != http.StatusOK {
		t.Fatalf("alice submit failed: %d %s", w1.Code, w1.Body.String())
	}

	w2 := postJSON(r, `{"username":"bob","usertoken":"bobtoken","results":[{"start":"fedcba9876543210","dp":"1111111111111111"}]}`)
	if w2.Code != http.StatusOK {
		t.Fatalf("bob submit failed: %d %s", w2.Code, w2.Body.String())
	}
	var resp map[string]string
	json.Unmarshal(w2.Body.Bytes(), &resp)
	if !strings.Contains(resp["status"], "accepted 1 results") {
		t.Fatalf("expected 'accepted 1 results', got %q", resp["status"])
	}
}

func TestSubmitWorkMalformedEnvelope(t *testing.T) {
	r := newTestRouter(map[string]string{"alice": "alicetoken"})
	req := httptest.NewRequest(http.MethodPost, "/submit_work", bytes.NewReader([]byte(`not json`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}
