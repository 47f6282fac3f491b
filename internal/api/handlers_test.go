package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/liuwen/promptreel/internal/gateway"
	"github.com/liuwen/promptreel/internal/product"
	"github.com/liuwen/promptreel/internal/store"
	"github.com/liuwen/promptreel/internal/workflow"
)

// failingGateway simulates an unreachable backend for every operation.
type failingGateway struct{}

func (failingGateway) Generate(context.Context, gateway.GenerateRequest) ([]gateway.RawResult, error) {
	return nil, &gateway.Failure{Message: "connection refused"}
}
func (failingGateway) Regenerate(context.Context, gateway.RegenerateRequest) (*gateway.RawResult, error) {
	return nil, &gateway.Failure{Message: "connection refused"}
}
func (failingGateway) Optimize(context.Context, string) (string, error) {
	return "", &gateway.Failure{Message: "connection refused"}
}

func newTestServer(t *testing.T, gw gateway.Client) (*Server, *store.Store) {
	t.Helper()
	st := store.New()
	flow := workflow.New(gw, st)
	return New(st, flow, &product.StubExtractor{}), st
}

func doRequest(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var result map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode JSON: %v\nbody: %s", err, rr.Body.String())
	}
	return result
}

func TestGenerate_JSON(t *testing.T) {
	srv, _ := newTestServer(t, &gateway.Stub{})
	h := srv.Handler()

	rr := doRequest(t, h, "POST", "/api/generate",
		`{"product_name":"Steel Mug","selling_points":"keeps drinks hot","output_count":2}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d, body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}

	result := decodeJSON(t, rr)
	arts := result["artifacts"].([]any)
	if len(arts) != 2 {
		t.Errorf("artifacts = %d, want 2", len(arts))
	}
	first := arts[0].(map[string]any)
	if first["current_prompt"] == "" {
		t.Error("current_prompt is empty")
	}
	if _, ok := first["validation"]; !ok {
		t.Error("artifact view should embed its validation outcome")
	}
}

func TestGenerate_Multipart(t *testing.T) {
	srv, _ := newTestServer(t, &gateway.Stub{})
	h := srv.Handler()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	w.WriteField("product_name", "Steel Mug")
	w.WriteField("selling_points", "durable\nkeeps drinks hot")
	w.WriteField("output_count", "1")
	part, _ := w.CreateFormFile("image", "mug.png")
	part.Write([]byte("fake-png-bytes"))
	w.Close()

	req := httptest.NewRequest("POST", "/api/generate", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d, body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}
	result := decodeJSON(t, rr)
	if len(result["artifacts"].([]any)) != 1 {
		t.Errorf("artifacts = %v", result["artifacts"])
	}
}

func TestGenerate_MissingFields(t *testing.T) {
	srv, _ := newTestServer(t, &gateway.Stub{})
	h := srv.Handler()

	tests := []struct {
		name string
		body string
	}{
		{"missing product name", `{"selling_points":"x"}`},
		{"missing selling points", `{"product_name":"Mug"}`},
		{"blank product name", `{"product_name":"  ","selling_points":"x"}`},
		{"invalid JSON", `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(t, h, "POST", "/api/generate", tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", rr.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestGenerate_DegradedOnBackendFailure(t *testing.T) {
	srv, _ := newTestServer(t, failingGateway{})
	h := srv.Handler()

	rr := doRequest(t, h, "POST", "/api/generate",
		`{"product_name":"Steel Mug","selling_points":"durable","output_count":3}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d (never fails outward)", rr.Code, http.StatusCreated)
	}

	result := decodeJSON(t, rr)
	if result["degraded"] != true {
		t.Error("degraded = false, want true")
	}
	if result["warning"] == nil {
		t.Error("warning missing on degraded response")
	}
	if got := len(result["artifacts"].([]any)); got != 3 {
		t.Errorf("artifacts = %d, want exactly output_count", got)
	}
}

func TestListAndGetArtifacts(t *testing.T) {
	srv, st := newTestServer(t, &gateway.Stub{})
	h := srv.Handler()

	st.Create([]gateway.RawResult{
		{ID: "r1", FinalPrompt: "[0-4s] Fast dolly zoom in, water explodes around the product."},
		{ID: "r2", FinalPrompt: "[0-4s] The product is placed on a table."},
	})

	rr := doRequest(t, h, "GET", "/api/artifacts", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rr.Code, rr.Body.String())
	}
	var list []map[string]any
	json.Unmarshal(rr.Body.Bytes(), &list)
	if len(list) != 2 {
		t.Fatalf("artifacts = %d, want 2", len(list))
	}
	v1 := list[0]["validation"].(map[string]any)
	v2 := list[1]["validation"].(map[string]any)
	if v1["passed"] != true {
		t.Errorf("dynamic opening should pass, got %v", v1)
	}
	if v2["passed"] != false {
		t.Errorf("static opening should fail, got %v", v2)
	}

	rr = doRequest(t, h, "GET", "/api/artifacts/r1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("get status = %d", rr.Code)
	}
	result := decodeJSON(t, rr)
	if len(result["record"].([]any)) != 2 {
		t.Errorf("record = %v, want history plus current", result["record"])
	}

	rr = doRequest(t, h, "GET", "/api/artifacts/nope", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown id status = %d, want 404", rr.Code)
	}
}

func TestVersions(t *testing.T) {
	srv, st := newTestServer(t, &gateway.Stub{})
	h := srv.Handler()

	st.Create([]gateway.RawResult{{ID: "r1", FinalPrompt: "v1"}})
	st.ApplyMutation("r1", "v2")

	rr := doRequest(t, h, "GET", "/api/artifacts/r1/versions", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	result := decodeJSON(t, rr)
	versions := result["versions"].([]any)
	if len(versions) != 3 {
		t.Fatalf("versions = %v, want [v1 v1 v2]", versions)
	}
	if versions[len(versions)-1] != "v2" {
		t.Errorf("last version = %v, want the current prompt", versions[len(versions)-1])
	}
}

func TestRegenerate(t *testing.T) {
	srv, st := newTestServer(t, failingGateway{})
	h := srv.Handler()

	st.Create([]gateway.RawResult{{ID: "r1", FinalPrompt: "original"}})

	rr := doRequest(t, h, "POST", "/api/artifacts/r1/regenerate",
		`{"adjustment_type":"increase_motion","note":"more energy"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rr.Code, rr.Body.String())
	}

	result := decodeJSON(t, rr)
	if result["degraded"] != true {
		t.Error("degraded = false, want true with a failing backend")
	}
	art := result["artifact"].(map[string]any)
	if !strings.Contains(art["current_prompt"].(string), "increase_motion") {
		t.Errorf("current_prompt = %v, want the fallback variant marker", art["current_prompt"])
	}

	// The store was mutated exactly once.
	got, _ := st.Get("r1")
	if len(got.History) != 2 || got.History[1] != "original" {
		t.Errorf("History = %v", got.History)
	}
}

func TestRegenerate_BadPreset(t *testing.T) {
	srv, st := newTestServer(t, &gateway.Stub{})
	h := srv.Handler()
	st.Create([]gateway.RawResult{{ID: "r1", FinalPrompt: "original"}})

	rr := doRequest(t, h, "POST", "/api/artifacts/r1/regenerate", `{"adjustment_type":"make_it_pop"}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestRegenerate_NotFound(t *testing.T) {
	srv, _ := newTestServer(t, &gateway.Stub{})
	h := srv.Handler()

	rr := doRequest(t, h, "POST", "/api/artifacts/nope/regenerate", `{"adjustment_type":"increase_motion"}`)
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}

func TestEdit(t *testing.T) {
	srv, st := newTestServer(t, &gateway.Stub{})
	h := srv.Handler()
	st.Create([]gateway.RawResult{{ID: "r1", FinalPrompt: "original"}})

	rr := doRequest(t, h, "POST", "/api/artifacts/r1/edit", `{"prompt":"my new draft"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rr.Code, rr.Body.String())
	}
	result := decodeJSON(t, rr)
	art := result["artifact"].(map[string]any)
	if art["current_prompt"] != "my new draft" {
		t.Errorf("current_prompt = %v", art["current_prompt"])
	}

	got, _ := st.Get("r1")
	if len(got.History) != 2 || got.History[1] != "original" {
		t.Errorf("History = %v, want the prior prompt appended", got.History)
	}
}

func TestEdit_EmptyPrompt(t *testing.T) {
	srv, st := newTestServer(t, &gateway.Stub{})
	h := srv.Handler()
	st.Create([]gateway.RawResult{{ID: "r1", FinalPrompt: "original"}})

	rr := doRequest(t, h, "POST", "/api/artifacts/r1/edit", `{"prompt":"  "}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestValidateEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, &gateway.Stub{})
	h := srv.Handler()

	rr := doRequest(t, h, "POST", "/api/validate", `{"prompt":""}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	result := decodeJSON(t, rr)
	if result["passed"] != false {
		t.Errorf("passed = %v, want false for empty prompt", result["passed"])
	}
	reasons := result["reasons"].([]any)
	if len(reasons) != 1 || reasons[0] != "prompt is empty" {
		t.Errorf("reasons = %v", reasons)
	}

	rr = doRequest(t, h, "POST", "/api/validate",
		`{"prompt":"[0-4s] Fast dolly zoom in, water explodes around the product."}`)
	result = decodeJSON(t, rr)
	if result["passed"] != true {
		t.Errorf("passed = %v, want true", result["passed"])
	}
}

func TestExtractProduct(t *testing.T) {
	srv, _ := newTestServer(t, &gateway.Stub{})
	h := srv.Handler()

	rr := doRequest(t, h, "POST", "/api/extract_product", `{"url":"https://shop.example/mug"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rr.Code, rr.Body.String())
	}
	result := decodeJSON(t, rr)
	points := result["selling_points"].([]any)
	if len(points) == 0 {
		t.Error("selling_points is empty")
	}

	rr = doRequest(t, h, "POST", "/api/extract_product", `{}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("missing url status = %d, want 400", rr.Code)
	}
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t, &gateway.Stub{})
	rr := doRequest(t, srv.Handler(), "GET", "/api/healthz", "")
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d", rr.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t, &gateway.Stub{})
	h := srv.Handler()

	req := httptest.NewRequest(http.MethodOptions, "/api/generate", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q, want *", got)
	}
}
