package mq

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"tiffin/rdx"
)

const walletEventsChannel = "wallet-events"

// WalletEvent is broadcast whenever a wallet operation commits.
type WalletEvent struct {
	Event      string    `json:"event"` // funded, withdrawal_requested, payment, transfer, refund, settled
	WalletKind string    `json:"wallet_kind"`
	OwnerID    string    `json:"owner_id"`
	TxnID      string    `json:"txn_id"`
	Amount     float64   `json:"amount"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Emit publishes a wallet event to Redis. Failures are logged, never
// propagated — events are advisory, the transaction log is the source of
// truth.
func Emit(ctx context.Context, event WalletEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("[Emit] Failed to marshal event: %v", err)
		return
	}

	if err := rdx.Conn.Publish(ctx, walletEventsChannel, data).Err(); err != nil {
		log.Printf("[Emit] Failed to publish event to Redis: %v", err)
	}
}

// Subscribe returns a channel of wallet events for live feeds.
func Subscribe(ctx context.Context) (<-chan WalletEvent, func()) {
	sub := rdx.Conn.Subscribe(ctx, walletEventsChannel)
	ch := sub.Channel()
	out := make(chan WalletEvent, 16)

	go func() {
		defer close(out)
		for msg := range ch {
			var event WalletEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Printf("[Subscribe] Failed to parse event: %v", err)
				continue
			}
			select {
			case out <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, func() { _ = sub.Close() }
}
