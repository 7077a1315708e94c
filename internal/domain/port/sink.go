package port

import (
	"context"

	"github.com/douoai/jijin/internal/domain/model"
)

// PriceSink принимает принятые трекером строки (HTTP API хранилища, Kafka).
type PriceSink interface {
	Name() string
	SavePrice(ctx context.Context, rec model.PriceRecord) error
}

// Persister fire-and-forget очередь записи. Enqueue никогда не блокирует.
type Persister interface {
	Enqueue(rec model.PriceRecord) bool
}

// Broadcaster раздаёт принятые точки подписчикам (SSE). Publish никогда не блокирует.
type Broadcaster interface {
	Publish(s model.PriceSample) (delivered, dropped int)
}
