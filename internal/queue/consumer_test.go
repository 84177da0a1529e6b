package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedEnvelope(t *testing.T, task string) []byte {
	t.Helper()
	data, err := json.Marshal(SeedCommand{Task: task})
	require.NoError(t, err)
	body, err := json.Marshal(Message{From: "migrator", To: SeedQueue, Data: data})
	require.NoError(t, err)
	return body
}

func TestHandleSeedMessageDispatchesTask(t *testing.T) {
	var got string
	seed := func(_ context.Context, task string) error {
		got = task
		return nil
	}

	require.NoError(t, handleSeedMessage(seedEnvelope(t, "catalog"), seed))
	assert.Equal(t, "catalog", got)
}

func TestHandleSeedMessagePropagatesSeedError(t *testing.T) {
	boom := errors.New("seed failed")
	seed := func(context.Context, string) error { return boom }

	// A failing handler means the delivery gets rejected, not acked.
	err := handleSeedMessage(seedEnvelope(t, "catalog"), seed)
	assert.ErrorIs(t, err, boom)
}

func TestHandleSeedMessageRejectsMalformedBody(t *testing.T) {
	called := false
	seed := func(context.Context, string) error {
		called = true
		return nil
	}

	assert.Error(t, handleSeedMessage([]byte("not json"), seed))
	assert.Error(t, handleSeedMessage([]byte(`{"from":"x","to":"y","data":"not-an-object"}`), seed))
	assert.False(t, called)
}
