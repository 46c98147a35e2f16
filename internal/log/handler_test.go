package log_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/ErlanBelekov/warranty-register/internal/domain"
	ctxlog "github.com/ErlanBelekov/warranty-register/internal/log"
	"github.com/ErlanBelekov/warranty-register/internal/requestid"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	return m
}

func TestContextHandler_AddsRequestIDAndPrincipal(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(ctxlog.NewContextHandler(slog.NewJSONHandler(&buf, nil)))

	ctx := requestid.WithRequestID(context.Background(), "req-1")
	ctx = domain.WithPrincipal(ctx, domain.UserPrincipal(&domain.User{ID: "u-1", IsActive: true}))
	logger.InfoContext(ctx, "hello")

	line := decodeLine(t, &buf)
	if line["request_id"] != "req-1" {
		t.Errorf("request_id = %v, want req-1", line["request_id"])
	}
	if line["principal"] != "user" {
		t.Errorf("principal = %v, want user", line["principal"])
	}
	if line["user_id"] != "u-1" {
		t.Errorf("user_id = %v, want u-1", line["user_id"])
	}
}

func TestContextHandler_ServicePrincipalHasNoUserID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(ctxlog.NewContextHandler(slog.NewJSONHandler(&buf, nil)))

	logger.InfoContext(domain.WithPrincipal(context.Background(), domain.ServicePrincipal()), "hello")

	line := decodeLine(t, &buf)
	if line["principal"] != "service" {
		t.Errorf("principal = %v, want service", line["principal"])
	}
	if _, ok := line["user_id"]; ok {
		t.Errorf("unexpected user_id in %v", line)
	}
	if _, ok := line["request_id"]; ok {
		t.Errorf("unexpected request_id in %v", line)
	}
}
