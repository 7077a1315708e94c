package generator

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/douoai/jijin/internal/domain/model"
	"github.com/douoai/jijin/internal/domain/port"
	"github.com/douoai/jijin/internal/domain/pricing"
)

// maxStep максимальный шаг случайного блуждания в долях от базовой цены
const maxStep = 0.002

const (
	BackfillPoints  = 100
	BackfillSpacing = time.Minute
	// backfillSpread полный размах разброса истории, ±1% от базы
	backfillSpread = 0.02
)

// TestGenerator выдаёт синтетические котировки для тестового режима:
// случайное блуждание вокруг базовой цены, не дальше ±5%.
type TestGenerator struct {
	name  string
	base  float64
	close float64

	mu   sync.Mutex
	rnd  *rand.Rand
	last float64
}

var (
	_ port.QuoteSource      = (*TestGenerator)(nil)
	_ port.HistorySimulator = (*TestGenerator)(nil)
)

func NewTestGenerator(name string, base float64) *TestGenerator {
	return NewSeededGenerator(name, base, time.Now().UnixNano())
}

// NewSeededGenerator is NewTestGenerator with a fixed seed.
func NewSeededGenerator(name string, base float64, seed int64) *TestGenerator {
	if base <= 0 {
		base = 2000
	}
	return &TestGenerator{
		name:  name,
		base:  base,
		close: base,
		rnd:   rand.New(rand.NewSource(seed)),
		last:  base,
	}
}

// NewMetalGenerator simulates the metal around its per-gram base price,
// converted to a per-ounce quote at rate.
func NewMetalGenerator(metal string, rate float64, seed int64) (*TestGenerator, error) {
	m, err := LookupMetal(metal)
	if err != nil {
		return nil, err
	}
	if rate <= 0 {
		return nil, fmt.Errorf("metal %s: exchange rate must be positive", m.Name)
	}
	return NewSeededGenerator(m.Name, pricing.SpotFromDomestic(m.BasePrice, rate), seed), nil
}

func (t *TestGenerator) Name() string { return t.name }

func (t *TestGenerator) FetchQuote(ctx context.Context) (model.RawQuote, error) {
	if err := ctx.Err(); err != nil {
		return model.RawQuote{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	step := (t.rnd.Float64()*2 - 1) * maxStep * t.base
	next := t.last + step
	lo, hi := t.base*0.95, t.base*1.05
	next = math.Min(math.Max(next, lo), hi)
	t.last = next

	change := next - t.close
	return model.RawQuote{
		SpotPriceForeign: next,
		ChangeAmount:     change,
		ChangePercent:    change / t.close * 100,
		ClosePrice:       t.close,
	}, nil
}

// Backfill returns BackfillPoints+1 samples spaced BackfillSpacing apart and
// ending at now, scattered around the base price.
func (t *TestGenerator) Backfill(now time.Time, rate float64) []model.PriceSample {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]model.PriceSample, 0, BackfillPoints+1)
	for i := BackfillPoints; i >= 0; i-- {
		spot := t.base + (t.rnd.Float64()-0.5)*t.base*backfillSpread
		out = append(out, model.PriceSample{
			Price:     pricing.Derive(spot, rate),
			Timestamp: now.Add(-time.Duration(i) * BackfillSpacing).UnixMilli(),
		})
	}
	return out
}
