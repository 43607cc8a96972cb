package events

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/DanielPopoola/ficmart-transaction-core/internal/core/domain"
	"github.com/DanielPopoola/ficmart-transaction-core/internal/core/domain/domaintest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	names []string
}

func (r *recordingSink) Write(_ context.Context, e domain.Event) {
	r.names = append(r.names, e.EventName())
}

func TestLogSink_WritesStructuredRecord(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogSink(slog.New(slog.NewJSONHandler(&buf, nil)))
	tx := domaintest.NewCharge(t)

	sink.Write(domain.WithSessionID(context.Background(), "sess-1"), domain.NewTransactionUpdatedEvent(tx))

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "bi event", record["msg"])
	assert.Equal(t, domain.EventTransactionUpdated, record["event"])
	assert.Equal(t, "sess-1", record["session_id"])

	payload, ok := record["payload"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, tx.ID().String(), payload["transactionId"])
	assert.NotContains(t, buf.String(), domaintest.TestCardNumber)
}

func TestMulti_FansOutInOrder(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	tx := domaintest.NewCharge(t)

	Multi{a, b}.Write(context.Background(), domain.NewTransactionUpdatedEvent(tx))

	assert.Equal(t, []string{domain.EventTransactionUpdated}, a.names)
	assert.Equal(t, []string{domain.EventTransactionUpdated}, b.names)
}
