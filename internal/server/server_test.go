package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/slac-epics/streamdevice/internal/convert"
	"github.com/slac-epics/streamdevice/internal/stream"
	"github.com/slac-epics/streamdevice/internal/testutil/testlog"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	testlog.Start(t)
	gin.SetMode(gin.TestMode)
	registry, err := convert.NewDefaultRegistry(convert.DefaultOptions())
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	tr := stream.New(registry, nil)
	fields, err := tr.CompileTable([]stream.Definition{
		{Name: "offset", Format: "%+3.2Z"},
		{Name: "flow", Format: "%#8R"},
	})
	if err != nil {
		t.Fatalf("fields: %v", err)
	}
	return New(Config{Name: "streamconv-test", Addr: ":0"}, tr, fields)
}

func do(t *testing.T, s *Server, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)

	var decoded map[string]any
	if strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rr.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("decode body: %v", err)
		}
	}
	return rr, decoded
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)
	rr, body := do(t, s, http.MethodGet, "/health", nil)
	if rr.Code != http.StatusOK || body["status"] != "ok" || body["service"] != "streamconv-test" {
		t.Fatalf("unexpected health response %d %v", rr.Code, body)
	}

	do(t, s, http.MethodPost, "/print", printRequest{Format: "%m", Value: "1"})
	rr, _ = do(t, s, http.MethodGet, "/metrics", nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "streamdevice_convert_operations_total") {
		t.Fatalf("expected conversion metrics, got %d", rr.Code)
	}
}

func TestCodecsAndFields(t *testing.T) {
	s := newTestServer(t)
	rr, body := do(t, s, http.MethodGet, "/codecs", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	codecs, _ := body["codecs"].([]any)
	if len(codecs) != 3 {
		t.Fatalf("expected 3 codecs, got %v", body["codecs"])
	}
	first, _ := codecs[0].(map[string]any)
	if first["code"] != "R" || first["name"] != "raw_float" {
		t.Fatalf("unexpected first codec %v", first)
	}

	_, body = do(t, s, http.MethodGet, "/fields", nil)
	fields, _ := body["fields"].([]any)
	if len(fields) != 2 {
		t.Fatalf("expected 2 fields, got %v", body["fields"])
	}
	flow, _ := fields[0].(map[string]any)
	if flow["name"] != "flow" || flow["format"] != "%#8R" || flow["kind"] != "double" {
		t.Fatalf("unexpected field %v", flow)
	}
}

func TestPrintAndScanRoutes(t *testing.T) {
	s := newTestServer(t)

	rr, body := do(t, s, http.MethodPost, "/print", printRequest{Format: "%3.2Z", Value: "0x1234"})
	if rr.Code != http.StatusOK || body["hex"] != "7E0003021234B47E" {
		t.Fatalf("unexpected print response %d %v", rr.Code, body)
	}
	if body["text"] != "~<00><03><02><12>4<b4>~" {
		t.Fatalf("unexpected expanded text %v", body["text"])
	}

	rr, body = do(t, s, http.MethodPost, "/scan", scanRequest{Format: "%m", Hex: "2B 30 30 30 31 31 2D 30 31"})
	if rr.Code != http.StatusOK || body["value"] != "1.1" || body["consumed"] != float64(9) {
		t.Fatalf("unexpected scan response %d %v", rr.Code, body)
	}

	rr, body = do(t, s, http.MethodPost, "/fields/offset/scan", scanRequest{Hex: "7E:00:03:00:02:FF:FE:FD:7E"})
	if rr.Code != http.StatusOK || body["value"] != "-2" || body["kind"] != "signed" || body["field"] != "offset" {
		t.Fatalf("unexpected field scan response %d %v", rr.Code, body)
	}

	rr, body = do(t, s, http.MethodPost, "/fields/offset/print", printRequest{Value: "-2"})
	if rr.Code != http.StatusOK || body["hex"] != "7E000302FFFEFD7E" {
		t.Fatalf("unexpected field print response %d %v", rr.Code, body)
	}
}

func TestRouteErrors(t *testing.T) {
	s := newTestServer(t)
	cases := []struct {
		path string
		body any
		want int
	}{
		{"/print", printRequest{Format: "%q", Value: "1"}, http.StatusBadRequest},
		{"/print", printRequest{Format: "%m", Value: "warm"}, http.StatusBadRequest},
		{"/scan", scanRequest{Format: "%3.2Z", Hex: "zz"}, http.StatusBadRequest},
		{"/scan", scanRequest{Format: "%3.2Z", Hex: "7E 00 04"}, http.StatusUnprocessableEntity},
		{"/fields/pressure/scan", scanRequest{Hex: "00"}, http.StatusNotFound},
	}
	for _, tc := range cases {
		rr, body := do(t, s, http.MethodPost, tc.path, tc.body)
		if rr.Code != tc.want {
			t.Fatalf("%s %v: expected %d, got %d %v", tc.path, tc.body, tc.want, rr.Code, body)
		}
		if _, ok := body["error"]; !ok {
			t.Fatalf("%s: expected error body, got %v", tc.path, body)
		}
	}
}
