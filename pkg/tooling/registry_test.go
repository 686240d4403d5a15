package tooling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/openai/openai-go/v3"
)

func TestNewRegistryRejectsDuplicates(t *testing.T) {
	_, err := NewRegistry(OrderStatus{}, OrderStatus{})
	if err == nil {
		t.Fatal("duplicate registration accepted")
	}
}

func TestRegistrySchemasKeepRegistrationOrder(t *testing.T) {
	registry, err := NewRegistry(CurrentTime{}, UserTimeZone{}, OrderStatus{})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}

	schemas := registry.Schemas()
	if len(schemas) != 3 {
		t.Fatalf("schemas = %d", len(schemas))
	}
	want := []string{"getCurrentTime", "userTimeZone", "getOrderStatus"}
	for i, name := range want {
		if got := schemas[i].OfFunction.Function.Name; got != name {
			t.Fatalf("schemas[%d] = %s, want %s", i, got, name)
		}
	}
}

func TestRegistryExecute(t *testing.T) {
	registry, err := NewRegistry(OrderStatus{})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}

	tests := []struct {
		name      string
		tool      string
		arguments string
		want      string
		wantErr   func(error) bool
	}{
		{
			name:      "known order",
			tool:      "getOrderStatus",
			arguments: `{"orderId":"12345"}`,
			want:      "Shipped",
		},
		{
			name:      "unknown order",
			tool:      "getOrderStatus",
			arguments: `{"orderId":"99999"}`,
			want:      "Order ID not found",
		},
		{
			name:      "missing tool",
			tool:      "teleport",
			arguments: `{}`,
			wantErr:   func(err error) bool { return errors.Is(err, ErrToolNotFound) },
		},
		{
			name:      "malformed arguments",
			tool:      "getOrderStatus",
			arguments: `not json`,
			wantErr: func(err error) bool {
				var argErr *ArgumentError
				return errors.As(err, &argErr)
			},
		},
		{
			name:      "missing required argument",
			tool:      "getOrderStatus",
			arguments: `{}`,
			wantErr: func(err error) bool {
				var argErr *ArgumentError
				return errors.As(err, &argErr)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := registry.Execute(context.Background(), tt.tool, tt.arguments)
			if tt.wantErr != nil {
				if err == nil || !tt.wantErr(err) {
					t.Fatalf("err = %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("execute: %v", err)
			}
			if got != tt.want {
				t.Fatalf("result = %q, want %q", got, tt.want)
			}
		})
	}
}

type failingTool struct{}

func (failingTool) Name() string        { return "failing" }
func (failingTool) Description() string { return "always fails" }

func (failingTool) Parameters() openai.FunctionParameters {
	return openai.FunctionParameters{"type": "object"}
}

func (failingTool) Execute(ctx context.Context, arguments string) (string, error) {
	return "", errors.New("kaput")
}

func TestRegistryWrapsExecutionErrors(t *testing.T) {
	registry, err := NewRegistry(failingTool{})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}

	_, err = registry.Execute(context.Background(), "failing", "{}")
	var execErr *ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("err = %v", err)
	}
	if execErr.Tool != "failing" {
		t.Fatalf("tool = %s", execErr.Tool)
	}
}

func TestCurrentTimeUsesInjectedClock(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tool := CurrentTime{Now: func() time.Time { return fixed }}

	got, err := tool.Execute(context.Background(), "{}")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got != "2024-05-01T12:00:00Z" {
		t.Fatalf("time = %q", got)
	}
}

func TestUserTimeZoneDefault(t *testing.T) {
	got, err := UserTimeZone{}.Execute(context.Background(), "{}")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got != "GMT+1" {
		t.Fatalf("zone = %q", got)
	}
}
