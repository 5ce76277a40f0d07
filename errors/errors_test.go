package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestAppError_New_Success(t *testing.T) {
	err := New(ErrCodeNotFound, "not found", http.StatusNotFound)
	if err.Code != ErrCodeNotFound {
		t.Errorf("expected code %s, got %s", ErrCodeNotFound, err.Code)
	}
	if err.Message != "not found" {
		t.Errorf("expected message 'not found', got %q", err.Message)
	}
	if err.HTTPStatus != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, err.HTTPStatus)
	}
	if err.Retryable {
		t.Error("NOT_FOUND should not be retryable")
	}
}

func TestAppError_New_Retryable(t *testing.T) {
	err := New(ErrCodeUpstream, "backend down", http.StatusBadGateway)
	if !err.Retryable {
		t.Error("UPSTREAM_ERROR should be retryable")
	}
}

func TestAppError_NotFound(t *testing.T) {
	err := NotFound("video", "123")
	if err.HTTPStatus != http.StatusNotFound {
		t.Errorf("expected 404, got %d", err.HTTPStatus)
	}
	if err.Details["resource"] != "video" {
		t.Errorf("expected resource=video, got %v", err.Details["resource"])
	}
	if err.Details["id"] != "123" {
		t.Errorf("expected id=123, got %v", err.Details["id"])
	}
}

func TestAppError_NotFound_EmptyID(t *testing.T) {
	err := NotFound("video", "")
	if _, ok := err.Details["id"]; ok {
		t.Error("expected no 'id' key in details when id is empty")
	}
}

func TestAppError_StatusMapping(t *testing.T) {
	cause := fmt.Errorf("boom")
	tests := []struct {
		name   string
		err    *AppError
		code   ErrorCode
		status int
	}{
		{"validation", Validation("bad"), ErrCodeInvalidInput, http.StatusBadRequest},
		{"invalid input", InvalidInput("chunkIndex", "must be an integer"), ErrCodeInvalidInput, http.StatusBadRequest},
		{"missing field", MissingField("uploadId"), ErrCodeMissingField, http.StatusBadRequest},
		{"range", RangeNotSatisfiable(10, 5), ErrCodeRangeNotSatisfiable, http.StatusRequestedRangeNotSatisfiable},
		{"upstream", Upstream("upload part", cause), ErrCodeUpstream, http.StatusBadGateway},
		{"persistence", Persistence(cause), ErrCodeDatabaseError, http.StatusInternalServerError},
		{"unavailable", ServiceUnavailable("catalog"), ErrCodeServiceUnavailable, http.StatusServiceUnavailable},
		{"internal", Internal(cause), ErrCodeInternal, http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.err.Code != tc.code {
				t.Errorf("expected code %s, got %s", tc.code, tc.err.Code)
			}
			if tc.err.HTTPStatus != tc.status {
				t.Errorf("expected status %d, got %d", tc.status, tc.err.HTTPStatus)
			}
		})
	}
}

func TestAppError_Upstream_WrapsCause(t *testing.T) {
	cause := fmt.Errorf("connection reset")
	err := Upstream("complete upload", cause)
	if !stderrors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}
	if !strings.Contains(err.Error(), "connection reset") {
		t.Errorf("expected Error() to include the cause, got %q", err.Error())
	}
	if err.Details["operation"] != "complete upload" {
		t.Errorf("expected operation detail, got %v", err.Details["operation"])
	}
}

func TestAppError_WithDetail(t *testing.T) {
	err := Validation("bad").WithDetail("field", "chunk")
	if err.Details["field"] != "chunk" {
		t.Errorf("expected field=chunk, got %v", err.Details["field"])
	}
}

func TestAppError_ToResponse_HidesCause(t *testing.T) {
	err := Persistence(fmt.Errorf("pq: password authentication failed"))
	body, jerr := json.Marshal(err.ToResponse())
	if jerr != nil {
		t.Fatalf("marshal: %v", jerr)
	}
	s := string(body)
	if strings.Contains(s, "password") {
		t.Errorf("response leaked cause: %s", s)
	}
	if !strings.Contains(s, `"success":false`) {
		t.Errorf("expected success=false in %s", s)
	}
	if !strings.Contains(s, string(ErrCodeDatabaseError)) {
		t.Errorf("expected code in %s", s)
	}
}

func TestAsAppError(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", NotFound("video", "x"))
	appErr, ok := AsAppError(wrapped)
	if !ok {
		t.Fatal("expected AsAppError to unwrap")
	}
	if appErr.Code != ErrCodeNotFound {
		t.Errorf("expected NOT_FOUND, got %s", appErr.Code)
	}
	if _, ok := AsAppError(fmt.Errorf("plain")); ok {
		t.Error("plain error should not be an AppError")
	}
	if !IsAppError(wrapped) {
		t.Error("expected IsAppError to be true")
	}
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("wrap: %w", Validation("empty"))
	if !HasCode(err, ErrCodeInvalidInput) {
		t.Error("expected HasCode to match INVALID_INPUT")
	}
	if HasCode(err, ErrCodeNotFound) {
		t.Error("expected HasCode not to match NOT_FOUND")
	}
	if HasCode(nil, ErrCodeInvalidInput) {
		t.Error("nil error has no code")
	}
}
