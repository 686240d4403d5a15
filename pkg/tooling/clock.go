package tooling

import (
	"context"
	"time"

	"github.com/openai/openai-go/v3"
)

// CurrentTime reports the current time in ISO format. The clock is
// injectable for tests and defaults to time.Now.
type CurrentTime struct {
	Now func() time.Time
}

func (CurrentTime) Name() string { return "getCurrentTime" }

func (CurrentTime) Description() string { return "Get the current time in ISO format." }

func (CurrentTime) Parameters() openai.FunctionParameters {
	return openai.FunctionParameters{
		"type":       "object",
		"properties": map[string]any{},
	}
}

func (t CurrentTime) Execute(ctx context.Context, arguments string) (string, error) {
	now := time.Now
	if t.Now != nil {
		now = t.Now
	}
	return now().UTC().Format(time.RFC3339), nil
}

// UserTimeZone reports the user's time zone. The original service had
// no per-user profile and answered a fixed zone; Zone overrides it.
type UserTimeZone struct {
	Zone string
}

func (UserTimeZone) Name() string { return "userTimeZone" }

func (UserTimeZone) Description() string { return "Get the user's current time zone." }

func (UserTimeZone) Parameters() openai.FunctionParameters {
	return openai.FunctionParameters{
		"type":       "object",
		"properties": map[string]any{},
	}
}

func (t UserTimeZone) Execute(ctx context.Context, arguments string) (string, error) {
	if t.Zone != "" {
		return t.Zone, nil
	}
	return "GMT+1", nil
}
