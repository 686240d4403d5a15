package tooling

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/openai/openai-go/v3"
)

// OrderStatus looks up the shipping status of an order by its ID.
type OrderStatus struct {
	// Statuses overrides the built-in demo order table.
	Statuses map[string]string
}

var defaultOrderStatuses = map[string]string{
	"12345": "Shipped",
	"67890": "Processing",
	"54321": "Delivered",
}

func (OrderStatus) Name() string { return "getOrderStatus" }

func (OrderStatus) Description() string { return "Get the status of an order by its ID." }

func (OrderStatus) Parameters() openai.FunctionParameters {
	return openai.FunctionParameters{
		"type": "object",
		"properties": map[string]any{
			"orderId": map[string]string{
				"type":        "string",
				"description": "The unique identifier for the order.",
			},
		},
		"required": []string{"orderId"},
	}
}

type orderStatusArguments struct {
	OrderID string `json:"orderId"`
}

func (t OrderStatus) Execute(ctx context.Context, arguments string) (string, error) {
	var args orderStatusArguments
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return "", &ArgumentError{Tool: t.Name(), Err: err}
	}
	if args.OrderID == "" {
		return "", &ArgumentError{Tool: t.Name(), Err: errors.New("parameter orderId is empty")}
	}

	statuses := t.Statuses
	if statuses == nil {
		statuses = defaultOrderStatuses
	}
	status, ok := statuses[args.OrderID]
	if !ok {
		return "Order ID not found", nil
	}
	return status, nil
}
