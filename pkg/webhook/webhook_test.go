package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ccollicutt/gcscan/pkg/config"
	"github.com/ccollicutt/gcscan/pkg/finding"
	"github.com/ccollicutt/gcscan/pkg/output"
)

func newTestReport() *output.Report {
	return &output.Report{
		RunID: "0b5e8f7a-5d1c-4c63-9d0a-6f1e2b3c4d5e",
		Summary: output.Summary{
			RulesChecked:      14,
			RulesWithFindings: 1,
			TotalFindings:     1,
			MaxSeverity:       finding.SeverityError,
			Events:            100,
			LinesProcessed:    120,
		},
		Findings: []output.Finding{
			{
				Code:        finding.CMSSerialOld,
				Severity:    finding.SeverityError,
				Category:    finding.CategoryConfiguration,
				Description: finding.CMSSerialOld.Description(),
			},
		},
		Metadata: output.Metadata{
			ConfigFile: "gcscan.yaml",
			Vocabulary: "jdk8",
			AnalyzedAt: time.Now(),
			Duration:   time.Second,
		},
	}
}

func TestClient_Send_Success(t *testing.T) {
	var receivedBody []byte
	var receivedContentType string
	var receivedAuth string
	var receivedRunID string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedRunID = r.Header.Get("X-Gcscan-Run-Id")
		receivedContentType = r.Header.Get("Content-Type")
		receivedAuth = r.Header.Get("Authorization")
		receivedBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	client := NewClient()
	report := newTestReport()

	resp := client.Send(context.Background(), report, SendOptions{
		URL: server.URL,
	})

	if !resp.Success() {
		t.Errorf("expected success, got error: %v", resp.Error)
	}

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", resp.StatusCode)
	}

	if resp.Body != `{"status":"ok"}` {
		t.Errorf("unexpected body: %s", resp.Body)
	}

	if receivedContentType != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", receivedContentType)
	}

	if receivedAuth != "" {
		t.Errorf("expected no auth header, got %s", receivedAuth)
	}

	if receivedRunID != report.RunID {
		t.Errorf("X-Gcscan-Run-Id = %q, want %q", receivedRunID, report.RunID)
	}

	// Verify payload is valid JSON containing expected fields
	var payload map[string]interface{}
	if err := json.Unmarshal(receivedBody, &payload); err != nil {
		t.Errorf("failed to parse received payload: %v", err)
	}

	if _, ok := payload["summary"]; !ok {
		t.Error("payload missing summary field")
	}
	if payload["run_id"] != report.RunID {
		t.Errorf("payload run_id = %v, want %s", payload["run_id"], report.RunID)
	}
}

func TestClient_Send_WithBearerToken(t *testing.T) {
	var receivedAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient()
	report := newTestReport()

	resp := client.Send(context.Background(), report, SendOptions{
		URL:   server.URL,
		Token: "secret-token-123",
	})

	if !resp.Success() {
		t.Errorf("expected success, got error: %v", resp.Error)
	}

	if receivedAuth != "Bearer secret-token-123" {
		t.Errorf("expected Bearer token, got %s", receivedAuth)
	}
}

func TestClient_Send_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal error"}`))
	}))
	defer server.Close()

	client := NewClient()
	report := newTestReport()

	resp := client.Send(context.Background(), report, SendOptions{
		URL: server.URL,
	})

	if resp.Success() {
		t.Error("expected failure, got success")
	}

	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", resp.StatusCode)
	}

	if resp.Error == nil {
		t.Error("expected error to be set")
	}
}

func TestClient_Send_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient()
	report := newTestReport()

	resp := client.Send(context.Background(), report, SendOptions{
		URL:     server.URL,
		Timeout: 50 * time.Millisecond,
	})

	if resp.Success() {
		t.Error("expected failure due to timeout")
	}

	if resp.Error == nil {
		t.Error("expected error to be set")
	}
}

func TestClient_Send_InvalidURL(t *testing.T) {
	client := NewClient()
	report := newTestReport()

	resp := client.Send(context.Background(), report, SendOptions{
		URL: "://invalid-url",
	})

	if resp.Success() {
		t.Error("expected failure for invalid URL")
	}

	if resp.Error == nil {
		t.Error("expected error to be set")
	}
}

func TestClient_Send_ConnectionRefused(t *testing.T) {
	client := NewClient()
	report := newTestReport()

	resp := client.Send(context.Background(), report, SendOptions{
		URL:     "http://127.0.0.1:59999", // Unlikely to be listening
		Timeout: 100 * time.Millisecond,
	})

	if resp.Success() {
		t.Error("expected failure for connection refused")
	}

	if resp.Error == nil {
		t.Error("expected error to be set")
	}
}

func TestResponse_Success(t *testing.T) {
	tests := []struct {
		name        string
		resp        Response
		wantSuccess bool
	}{
		{"200 OK", Response{StatusCode: 200}, true},
		{"201 Created", Response{StatusCode: 201}, true},
		{"204 No Content", Response{StatusCode: 204}, true},
		{"400 Bad Request", Response{StatusCode: 400}, false},
		{"500 Server Error", Response{StatusCode: 500}, false},
		{"With Error", Response{StatusCode: 200, Error: io.EOF}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.resp.Success(); got != tt.wantSuccess {
				t.Errorf("Success() = %v, want %v", got, tt.wantSuccess)
			}
		})
	}
}

func TestShouldFire(t *testing.T) {
	tests := []struct {
		trigger     config.WebhookTrigger
		hasFindings bool
		want        bool
	}{
		{config.WebhookTriggerAlways, false, true},
		{config.WebhookTriggerAlways, true, true},
		{config.WebhookTriggerNever, true, false},
		{config.WebhookTriggerOnFindings, true, true},
		{config.WebhookTriggerOnFindings, false, false},
		{"", true, true},
		{"", false, false},
	}

	for _, tt := range tests {
		if got := ShouldFire(tt.trigger, tt.hasFindings); got != tt.want {
			t.Errorf("ShouldFire(%q, %v) = %v, want %v", tt.trigger, tt.hasFindings, got, tt.want)
		}
	}
}

func TestClient_Dispatch(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	core, logs := observer.New(zapcore.InfoLevel)
	client := NewClient(WithLogger(zap.New(core)))

	clean := newTestReport()
	clean.Summary.TotalFindings = 0
	clean.Findings = nil

	hooks := []config.WebhookConfig{
		{Name: "ops", URL: server.URL, Trigger: config.WebhookTriggerOnFindings},
		{URL: server.URL, Trigger: config.WebhookTriggerAlways},
		{Name: "off", URL: server.URL, Trigger: config.WebhookTriggerNever},
	}

	resps := client.Dispatch(context.Background(), clean, hooks)
	if len(resps) != 1 || resps[0].Name != server.URL {
		t.Fatalf("Dispatch(clean) = %+v, want only the always webhook named by URL", resps)
	}

	resps = client.Dispatch(context.Background(), newTestReport(), hooks)
	if len(resps) != 2 || resps[0].Name != "ops" {
		t.Fatalf("Dispatch(findings) = %+v, want ops and the always webhook", resps)
	}
	if hits.Load() != 3 {
		t.Errorf("server hits = %d, want 3", hits.Load())
	}
	if n := logs.FilterMessage("webhook sent").Len(); n != 3 {
		t.Errorf("logged %d sent webhooks, want 3", n)
	}
}

func TestClient_Dispatch_FailureIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	client := NewClient(WithLogger(zap.New(core)))

	resps := client.Dispatch(context.Background(), newTestReport(), []config.WebhookConfig{
		{Name: "down", URL: "http://127.0.0.1:59999", Timeout: 100 * time.Millisecond},
	})
	if len(resps) != 1 || resps[0].Success() {
		t.Fatalf("Dispatch() = %+v, want one failed response", resps)
	}

	failed := logs.FilterMessage("webhook failed").All()
	if len(failed) != 1 || failed[0].ContextMap()["webhook"] != "down" {
		t.Errorf("failure log = %+v, want one entry for down", failed)
	}
}
