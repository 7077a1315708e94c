package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/douoai/jijin/internal/domain/model"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
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

func TestKafkaPublisher_SavePrice(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaPublisher("gold-prices", w)

	rec := model.PriceRecord{PriceUSD: 2000, PriceCNY: 456.69, ExchangeRate: 7.1, Timestamp: 1700000000000}
	require.NoError(t, p.SavePrice(context.Background(), rec))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "1700000000000", string(w.msgs[0].Key))

	var got model.PriceRecord
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, rec, got)
	assert.Equal(t, "kafka:gold-prices", p.Name())
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	boom := errors.New("leader not available")
	p := newKafkaPublisher("gold-prices", &fakeWriter{err: boom})

	err := p.SavePrice(context.Background(), model.PriceRecord{Timestamp: 1})
	assert.ErrorIs(t, err, boom)
}

func TestKafkaPublisher_Close(t *testing.T) {
	w := &fakeWriter{}
	require.NoError(t, newKafkaPublisher("t", w).Close())
	assert.True(t, w.closed)
}
