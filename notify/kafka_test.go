package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	xchg "github.com/0x5487/pricexchg"
)

type fakeWriter struct {
	written []kafka.Message
	err     error
	closed  bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.written = append(w.written, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestPublisher_WritesKeyedRecords(t *testing.T) {
	w := &fakeWriter{}
	p := NewPublisherWithWriter(w)

	p.Publish(
		xchg.Message{Kind: xchg.KindNotify, Src: "0:xchg", Dest: "0:observer", Value: xchg.NewAmount(2),
			Body: &xchg.Notification{Type: xchg.NotifyDealCompleted, Amount: xchg.NewAmount(60)}},
		xchg.Message{Kind: xchg.KindDestroy, Src: "0:xchg", Dest: "0:flex"},
	)

	require.Len(t, w.written, 2)
	assert.Equal(t, "0:observer", string(w.written[0].Key))
	assert.Equal(t, "notify", string(w.written[0].Headers[0].Value))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(w.written[0].Value, &decoded))
	assert.Equal(t, "notify", decoded["kind"])
	assert.Equal(t, "2", decoded["value"])
	body, ok := decoded["body"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "deal_completed", body["type"])
	assert.Equal(t, "60", body["amount"])
}

func TestPublisher_FiltersKinds(t *testing.T) {
	w := &fakeWriter{}
	p := NewPublisherWithWriter(w, WithKinds(xchg.KindNotify))

	p.Publish(
		xchg.Message{Kind: xchg.KindTransfer, Dest: "0:wallet"},
		xchg.Message{Kind: xchg.KindNotify, Dest: "0:observer"},
	)

	require.Len(t, w.written, 1)
	assert.Equal(t, "0:observer", string(w.written[0].Key))

	p.Publish(xchg.Message{Kind: xchg.KindTransfer, Dest: "0:wallet"})
	assert.Len(t, w.written, 1)
}

func TestPublisher_WriteErrorIsLogged(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := NewPublisherWithWriter(w)

	assert.NotPanics(t, func() {
		p.Publish(xchg.Message{Kind: xchg.KindNotify, Dest: "0:observer"})
	})
	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}
