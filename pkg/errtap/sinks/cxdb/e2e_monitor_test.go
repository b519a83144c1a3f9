package cxdb

import (
	"strings"
	"testing"

	cxdtypes "github.com/strongdm/ai-cxdb/clients/go/types"
	"github.com/strongdm/errtap/pkg/errtap"
)

func TestE2E_MonitorToCXDB_CanonicalAndScrubbed(t *testing.T) {
	client := &mockCXDBClient{}
	console := &errtap.Console{}
	var printed [][]any
	console.SetErrorFunc(func(args ...any) { printed = append(printed, args) })

	m := errtap.NewMonitor(console)
	err := m.Init(
		errtap.Options{Endpoint: "cxdb://localhost", Release: "1.0.0"},
		errtap.WithHost(errtap.StaticHost{Production: true}),
		errtap.WithSink(NewCXDBSink(client)),
		errtap.WithDefaultScrubbing(),
	)
	if err != nil {
		t.Fatalf("Init returned error: %v", err)
	}

	console.Error("upload failed api_key=sk-verysecret", map[string]string{"user": "user@example.com"})

	if len(printed) != 1 || printed[0][0] != "upload failed api_key=sk-verysecret" {
		t.Fatalf("original console output changed: %v", printed)
	}

	createCalls := client.getCreateContextCalls()
	if len(createCalls) != 1 {
		t.Fatalf("expected context creation, got %d calls", len(createCalls))
	}

	appendReqs := client.getAppendRequests()
	if len(appendReqs) != 1 {
		t.Fatalf("expected 1 append request, got %d", len(appendReqs))
	}

	req := appendReqs[0]
	if req.IdempotencyKey == "" {
		t.Fatalf("IdempotencyKey should be set from generated event ID")
	}

	item := decodeConversationItem(t, req.Payload)
	if item.System == nil || item.System.Kind != cxdtypes.SystemKindError {
		t.Fatalf("System kind should be error, got %+v", item.System)
	}
	if item.ID == "" || item.ID != req.IdempotencyKey {
		t.Fatalf("item.ID should match idempotency key, got %q vs %q", item.ID, req.IdempotencyKey)
	}

	details := decodeDetailsJSON(t, item.System.Content)
	message, _ := details["message"].(string)
	if !strings.HasPrefix(message, "upload failed") {
		t.Fatalf("message = %q, want the console message", message)
	}
	if strings.Contains(message, "sk-verysecret") || strings.Contains(message, "user@example.com") {
		t.Fatalf("message should be scrubbed, got %q", message)
	}
	if fp, _ := details["fingerprint"].(string); fp == "" {
		t.Fatalf("fingerprint should be populated in persisted details")
	}
	if details["environment"] != "server" || details["release"] != "1.0.0" {
		t.Fatalf("environment/release = %v/%v, want server/1.0.0", details["environment"], details["release"])
	}

	if item.ContextMetadata == nil || len(item.ContextMetadata.Labels) == 0 {
		t.Fatalf("created context should carry labels")
	}
}
