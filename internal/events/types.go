// internal/events/types.go
package events

import (
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"
)

// EventType represents the type of event.
type EventType string

const (
	// Launch events
	TokenLaunched EventType = "token.launched"

	// Trade events
	TradeExecuted EventType = "trade.executed"

	// Lifecycle events
	CurveGraduated   EventType = "curve.graduated"
	GraduationFailed EventType = "graduation.failed"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// TokenLaunchedEvent is emitted when the factory deploys a new curve.
type TokenLaunchedEvent struct {
	BaseEvent
	Mint    solana.PublicKey
	Name    string
	Symbol  string
	Creator solana.PublicKey
}

// TradeExecutedEvent is emitted after a buy or sell settles.
type TradeExecutedEvent struct {
	BaseEvent
	Mint        solana.PublicKey
	Direction   string
	Trader      solana.PublicKey
	TokenAmount uint64
	BaseAmount  *uint256.Int
	SupplyAfter uint64
}

// CurveGraduatedEvent is emitted when a curve migrates to the AMM.
type CurveGraduatedEvent struct {
	BaseEvent
	Mint          solana.PublicKey
	Pool          solana.PublicKey
	BaseLiquidity *uint256.Int
	LPReceived    *uint256.Int
	Strategy      string
}

// GraduationFailedEvent is emitted when a graduation attempt fails after
// the criteria were met.
type GraduationFailedEvent struct {
	BaseEvent
	Mint  solana.PublicKey
	Error error
}
