package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skufu/healthpredict/internal/risk"
	"github.com/Skufu/healthpredict/internal/store"
)

type fakeWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func prediction() store.Prediction {
	return store.Prediction{
		ID:          uuid.New(),
		Model:       "heart",
		Kind:        store.KindSingle,
		Label:       "1",
		Probability: 0.83,
		Severity:    risk.High,
		Rows:        1,
		CreatedAt:   time.Now().UTC(),
	}
}

func TestKafkaPublish(t *testing.T) {
	w := &fakeWriter{}
	k := newKafka("predictions", w)
	p := prediction()

	require.NoError(t, k.Publish(context.Background(), p))
	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "heart", string(msg.Key))
	assert.Equal(t, []kafkago.Header{
		{Key: "kind", Value: []byte("single")},
		{Key: "severity", Value: []byte("high")},
	}, msg.Headers)

	var decoded store.Prediction
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, p.ID, decoded.ID)
	assert.Equal(t, risk.High, decoded.Severity)

	require.NoError(t, k.Close())
	assert.True(t, w.closed)
}

func TestKafkaPublishError(t *testing.T) {
	k := newKafka("predictions", &fakeWriter{err: errors.New("broker down")})
	err := k.Publish(context.Background(), prediction())
	assert.ErrorContains(t, err, "kafka publish to predictions")
	assert.ErrorContains(t, err, "broker down")
}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.Publish(context.Background(), prediction()))
	assert.NoError(t, p.Close())
}
