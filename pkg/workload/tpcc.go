package workload

import (
	"context"

	"github.com/ipandis/dorakit/pkg/key"
	"github.com/ipandis/dorakit/pkg/lock"
	"github.com/ipandis/dorakit/pkg/rvp"
	"github.com/ipandis/dorakit/pkg/storage"
	"github.com/ipandis/dorakit/pkg/txn"
)

const (
	TableWarehouse = "warehouse"
	TableCustomer  = "customer"
	TableAccount   = "account"
)

// PaymentInput is a TPC-C-flavored Payment transaction: credit a
// warehouse's YTD balance and debit a customer's balance in the same
// root wave. WarehouseID and CustomerID are independently partitioned,
// so this is the two-partition transfer spec.md §8 names: both actions
// fire concurrently and join on a single final RVP.
type PaymentInput struct {
	WarehouseID int64
	CustomerID  int64
	Amount      float64
}

// RegisterPayment wires the two-partition Payment graph.
func RegisterPayment(co *txn.Coordinator) {
	co.Register("tpcc.payment", func(b *txn.Builder, input any) {
		in := input.(PaymentInput)
		whKey := key.New(TableWarehouse, key.Int(in.WarehouseID))
		custKey := key.New(TableCustomer, key.Int(in.CustomerID))

		final := b.Final(2)

		creditWarehouse := func(ctx context.Context, h *storage.Handle, adapter storage.Adapter) (storage.Row, error) {
			row, err := adapter.Get(ctx, h, TableWarehouse, whKey)
			if err != nil {
				return nil, adapter.Insert(ctx, h, TableWarehouse, whKey, storage.Row{"ytd": in.Amount})
			}
			ytd, _ := row["ytd"].(float64)
			return nil, adapter.Update(ctx, h, TableWarehouse, whKey, storage.Row{"ytd": ytd + in.Amount})
		}
		debitCustomer := func(ctx context.Context, h *storage.Handle, adapter storage.Adapter) (storage.Row, error) {
			row, err := adapter.Get(ctx, h, TableCustomer, custKey)
			if err != nil {
				return nil, adapter.Insert(ctx, h, TableCustomer, custKey, storage.Row{"balance": -in.Amount})
			}
			bal, _ := row["balance"].(float64)
			return nil, adapter.Update(ctx, h, TableCustomer, custKey, storage.Row{"balance": bal - in.Amount})
		}

		if err := b.SubmitOne(TableWarehouse, whKey, lock.Exclusive, creditWarehouse, final); err != nil {
			final.Post(rvp.Aborted)
		}
		if err := b.SubmitOne(TableCustomer, custKey, lock.Exclusive, debitCustomer, final); err != nil {
			final.Post(rvp.Aborted)
		}
	})
}

// BalanceUpdateInput is the single-partition balance-update scenario
// spec.md §8 names: one action, one partition, one final RVP.
type BalanceUpdateInput struct {
	AccountID int64
	Delta     float64
}

// RegisterBalanceUpdate wires the single-partition balance-update
// graph.
func RegisterBalanceUpdate(co *txn.Coordinator) {
	co.Register("tpcc.balance_update", func(b *txn.Builder, input any) {
		in := input.(BalanceUpdateInput)
		acctKey := key.New(TableAccount, key.Int(in.AccountID))

		final := b.Final(1)
		err := b.SubmitOne(TableAccount, acctKey, lock.Exclusive, func(ctx context.Context, h *storage.Handle, adapter storage.Adapter) (storage.Row, error) {
			row, err := adapter.Get(ctx, h, TableAccount, acctKey)
			if err != nil {
				return nil, adapter.Insert(ctx, h, TableAccount, acctKey, storage.Row{"balance": in.Delta})
			}
			bal, _ := row["balance"].(float64)
			return nil, adapter.Update(ctx, h, TableAccount, acctKey, storage.Row{"balance": bal + in.Delta})
		}, final)
		if err != nil {
			final.Post(rvp.Aborted)
		}
	})
}

// RegisterAll wires every sample transaction graph onto co.
func RegisterAll(co *txn.Coordinator) {
	RegisterGetNewDest(co)
	RegisterUpdSubData(co)
	RegisterInsCallFwd(co)
	RegisterPayment(co)
	RegisterBalanceUpdate(co)
}
