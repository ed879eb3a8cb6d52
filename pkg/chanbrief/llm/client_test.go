package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/openai/openai-go"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"deadline exceeded", context.DeadlineExceeded, "timeout"},
		{"canceled", context.Canceled, "timeout"},
		{"wrapped deadline", fmt.Errorf("call failed: %w", context.DeadlineExceeded), "timeout"},
		{"rate limited", &openai.Error{StatusCode: 429}, "quota"},
		{"payment required", &openai.Error{StatusCode: 402}, "quota"},
		{"gateway timeout", &openai.Error{StatusCode: 504}, "timeout"},
		{"server error", &openai.Error{StatusCode: 500}, "malformed-response"},
		{"plain error", errors.New("connection refused"), "malformed-response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err)
			if got.Kind != tt.want {
				t.Errorf("classify(%v).Kind = %q, want %q", tt.err, got.Kind, tt.want)
			}
			if !errors.Is(got, tt.err) {
				t.Errorf("classify(%v) does not wrap the cause", tt.err)
			}
		})
	}
}

func TestServiceErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	serr := &ServiceError{Kind: "quota", Err: cause}
	if !errors.Is(serr, cause) {
		t.Error("errors.Is(serr, cause) = false, want true")
	}
	if serr.Error() != "summarization service (quota): boom" {
		t.Errorf("Error() = %q", serr.Error())
	}
}

func TestNewDefaults(t *testing.T) {
	c := New("key", "", "", nil)
	if c.model != DefaultModel {
		t.Errorf("model = %q, want %q", c.model, DefaultModel)
	}
	if c.callTimeout != defaultCallTimeout {
		t.Errorf("callTimeout = %v, want %v", c.callTimeout, defaultCallTimeout)
	}
}
