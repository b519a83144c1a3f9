// Package cxdb provides a sink that persists captured events to cxdb as SystemMessage items.
package cxdb

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	cxdbclient "github.com/strongdm/ai-cxdb/clients/go"
	cxdtypes "github.com/strongdm/ai-cxdb/clients/go/types"
	"github.com/strongdm/errtap/pkg/errtap"
)

// CXDBClient is the minimal interface for cxdb client operations.
// The real *cxdb.Client satisfies this interface.
type CXDBClient interface {
	CreateContext(ctx context.Context, baseTurnID uint64) (*cxdbclient.ContextHead, error)
	AppendTurn(ctx context.Context, req *cxdbclient.AppendRequest) (*cxdbclient.AppendResult, error)
}

// CXDBSinkOption configures the CXDB sink.
type CXDBSinkOption func(*cxdbSinkConfig)

type cxdbSinkConfig struct {
	contextID uint64
	labels    []string
	clientTag string
}

// WithContextID appends every event to an existing context instead of
// creating one for the process on first write.
func WithContextID(id uint64) CXDBSinkOption {
	return func(c *cxdbSinkConfig) {
		c.contextID = id
	}
}

// WithOrphanLabels sets labels for the context created by the sink.
func WithOrphanLabels(labels []string) CXDBSinkOption {
	return func(c *cxdbSinkConfig) {
		c.labels = labels
	}
}

// WithClientTag sets the client tag for the context created by the sink.
func WithClientTag(tag string) CXDBSinkOption {
	return func(c *cxdbSinkConfig) {
		c.clientTag = tag
	}
}

// cxdbWriter writes events to cxdb as SystemMessage items.
// All events of a process go to one context, chained turn after turn.
type cxdbWriter struct {
	client    CXDBClient
	labels    []string
	clientTag string

	mu         sync.Mutex
	contextID  uint64
	headTurnID uint64
	created    bool
}

// NewCXDBWriter creates an event writer for cxdb.
func NewCXDBWriter(client CXDBClient, opts ...CXDBSinkOption) errtap.EventWriter {
	cfg := &cxdbSinkConfig{
		labels:    []string{"error", "unlinked"},
		clientTag: "errtap",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return &cxdbWriter{
		client:    client,
		labels:    cfg.labels,
		clientTag: cfg.clientTag,
		contextID: cfg.contextID,
	}
}

// NewCXDBSink creates a sink that writes to cxdb.
func NewCXDBSink(client CXDBClient, opts ...CXDBSinkOption) errtap.Sink {
	return errtap.NewEventSink(NewCXDBWriter(client, opts...))
}

// Write persists an event to cxdb.
func (s *cxdbWriter) Write(ctx context.Context, event errtap.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	firstTurn := false
	if s.contextID == 0 {
		head, err := s.client.CreateContext(ctx, 0)
		if err != nil {
			return fmt.Errorf("create context: %w", err)
		}
		s.contextID = head.ContextID
		s.headTurnID = head.HeadTurnID
		s.created = true
		firstTurn = true
	}

	item := s.buildConversationItem(event, firstTurn)

	payload, err := cxdbclient.EncodeMsgpack(item)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	req := &cxdbclient.AppendRequest{
		ContextID:      s.contextID,
		ParentTurnID:   s.headTurnID,
		TypeID:         cxdtypes.TypeIDConversationItem,
		TypeVersion:    cxdtypes.TypeVersionConversationItem,
		Payload:        payload,
		IdempotencyKey: event.ID,
	}

	res, err := s.client.AppendTurn(ctx, req)
	if err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	s.headTurnID = res.TurnID
	return nil
}

// buildConversationItem creates a canonical ConversationItem from an event.
// Context metadata goes on the first turn of a context the writer created.
func (s *cxdbWriter) buildConversationItem(event errtap.Event, firstTurn bool) *cxdtypes.ConversationItem {
	// Build title: "level: truncated_message"
	title := string(event.Level)
	if event.Message != "" {
		const maxMsgLen = 80
		msg := event.Message
		if len(msg) > maxMsgLen {
			msg = msg[:maxMsgLen] + "..."
		}
		title += ": " + msg
	}

	if len(title) > 100 {
		title = title[:97] + "..."
	}

	item := &cxdtypes.ConversationItem{
		ItemType:  cxdtypes.ItemTypeSystem,
		Status:    cxdtypes.ItemStatusComplete,
		Timestamp: event.Timestamp.UnixMilli(),
		ID:        event.ID,
		System: &cxdtypes.SystemMessage{
			Kind:    cxdtypes.SystemKindError,
			Title:   title,
			Content: buildEventDetails(event),
		},
	}

	if firstTurn && s.created {
		item.ContextMetadata = &cxdtypes.ContextMetadata{
			Labels:    s.labels,
			ClientTag: s.clientTag,
		}
	}

	return item
}

// buildEventDetails encodes the event as JSON for SystemMessage.Content.
func buildEventDetails(event errtap.Event) string {
	details := map[string]any{
		"event_id":    event.ID,
		"level":       string(event.Level),
		"message":     event.Message,
		"fingerprint": event.Fingerprint,
		"environment": string(event.Environment),
		"release":     event.Release,
	}

	if event.Exception != nil {
		details["exception_type"] = fmt.Sprintf("%T", event.Exception)
	}
	if event.Stack != "" {
		details["stack_trace"] = event.Stack
	}
	if event.Logger != "" {
		details["logger"] = event.Logger
	}

	jsonBytes, err := json.Marshal(details)
	if err != nil {
		return fmt.Sprintf(`{"error":"failed to encode details: %s"}`, err)
	}
	return string(jsonBytes)
}

// Flush is a no-op for the cxdb writer (writes are synchronous).
func (s *cxdbWriter) Flush(ctx context.Context) error {
	return nil
}

// Close is a no-op for the cxdb writer.
func (s *cxdbWriter) Close() error {
	return nil
}
