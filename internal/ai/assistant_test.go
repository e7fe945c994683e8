package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shinyyama/social-market/internal/reqctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestLogCarriesCaller(t *testing.T) {
	var buf bytes.Buffer
	a := &ItemAssistant{model: "gemini-test", log: zerolog.New(&buf)}

	ctx := reqctx.WithRequestID(context.Background(), "req-1")
	ctx = reqctx.WithUserID(ctx, 42)
	log := a.requestLog(ctx)
	log.Info().Msg("asked")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "req-1", line["rid"])
	assert.EqualValues(t, 42, line["user_id"])
	assert.Equal(t, "gemini-test", line["model"])
}
