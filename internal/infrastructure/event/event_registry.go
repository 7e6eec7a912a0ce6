package event

import (
	"github.com/payflow/backend/internal/domain/funding"
	"github.com/payflow/backend/internal/domain/invoice"
	"github.com/payflow/backend/internal/domain/pool"
	"github.com/payflow/backend/internal/domain/treasury"
)

// RegisterAllEvents registers all domain event types with the serializer
// This is required for the OutboxProcessor to deserialize events from the outbox table
func RegisterAllEvents(serializer *EventSerializer) {
	// Pool domain events
	serializer.Register("PoolDeposited", &pool.PoolDepositedEvent{})
	serializer.Register("PoolWithdrawn", &pool.PoolWithdrawnEvent{})
	serializer.Register("SharesRedeemed", &pool.SharesRedeemedEvent{})
	serializer.Register("CapitalDeployed", &pool.CapitalDeployedEvent{})
	serializer.Register("RepaymentReceived", &pool.RepaymentReceivedEvent{})
	serializer.Register("DefaultRecorded", &pool.DefaultRecordedEvent{})
	serializer.Register("TreasuryDeployed", &pool.TreasuryDeployedEvent{})
	serializer.Register("TreasuryReturned", &pool.TreasuryReturnedEvent{})
	serializer.Register("PoolPaused", &pool.PoolPausedEvent{})
	serializer.Register("PoolUnpaused", &pool.PoolUnpausedEvent{})

	// Treasury domain events
	serializer.Register("StrategyAdded", &treasury.StrategyAddedEvent{})
	serializer.Register("StrategyRemoved", &treasury.StrategyRemovedEvent{})
	serializer.Register("StrategyWeightChanged", &treasury.StrategyWeightChangedEvent{})
	serializer.Register("StrategyPaused", &treasury.StrategyPausedEvent{})
	serializer.Register("StrategyUnpaused", &treasury.StrategyUnpausedEvent{})
	serializer.Register("TreasuryDeposited", &treasury.TreasuryDepositedEvent{})
	serializer.Register("TreasuryWithdrawn", &treasury.TreasuryWithdrawnEvent{})
	serializer.Register("TreasuryRebalanced", &treasury.TreasuryRebalancedEvent{})
	serializer.Register("YieldHarvested", &treasury.YieldHarvestedEvent{})

	// Invoice domain events
	serializer.Register("InvoiceCreated", &invoice.InvoiceCreatedEvent{})
	serializer.Register("InvoiceApproved", &invoice.InvoiceApprovedEvent{})
	serializer.Register("FundingApproved", &invoice.FundingApprovedEvent{})
	serializer.Register("InvoiceFunded", &invoice.InvoiceFundedEvent{})
	serializer.Register("InvoicePaid", &invoice.InvoicePaidEvent{})
	serializer.Register("InvoiceDefaulted", &invoice.InvoiceDefaultedEvent{})
	serializer.Register("InvoiceCancelled", &invoice.InvoiceCancelledEvent{})

	// Funding domain events
	serializer.Register("FundingRecordFunded", &funding.RecordFundedEvent{})
	serializer.Register("FundingRecordRepaid", &funding.RecordRepaidEvent{})
	serializer.Register("FundingRecordDefaulted", &funding.RecordDefaultedEvent{})
}
