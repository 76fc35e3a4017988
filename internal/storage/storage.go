package storage

import "liquidityCurve/internal/model"

// EventSink receives decoded liquidity events in chain order.
type EventSink interface {
	PutEvents(events []model.LiquidityEvent) error
}
