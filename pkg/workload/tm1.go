package workload

import (
	"context"
	"fmt"

	"github.com/ipandis/dorakit/pkg/errors"
	"github.com/ipandis/dorakit/pkg/key"
	"github.com/ipandis/dorakit/pkg/lock"
	"github.com/ipandis/dorakit/pkg/rvp"
	"github.com/ipandis/dorakit/pkg/storage"
	"github.com/ipandis/dorakit/pkg/txn"
)

const (
	TableSubscriber      = "subscriber"
	TableServiceFacility = "service_facility"
	TableCallForwarding  = "call_forwarding"
)

// GetNewDestInput is TM1's GetNewDest transaction input: look up which
// number a subscriber's calls forward to, reading the subscriber's
// service-facility row before following into call-forwarding (TM1GND2's
// 2-phase shape). The call-forwarding read is an exact Get on the
// (SubscriberID, SFType) key; StartTime and EndTime are not used by the
// graph, so no time window is applied.
type GetNewDestInput struct {
	SubscriberID int64
	SFType       int64
	StartTime    int64
	EndTime      int64
}

// RegisterGetNewDest wires TM1's GetNewDest graph: a wave-1 read of
// service_facility, a midway RVP, a wave-2 read of call_forwarding,
// and a final RVP — the 2-phase variant (TM1GND2), canonical per
// this package's doc comment.
func RegisterGetNewDest(co *txn.Coordinator) {
	co.Register("tm1.get_new_dest", func(b *txn.Builder, input any) {
		in := input.(GetNewDestInput)
		sfKey := key.New(TableServiceFacility, key.Int(in.SubscriberID), key.Int(in.SFType))

		final := b.Final(1)
		midway := b.Midway(1, func(outcome rvp.Outcome) {
			if outcome == rvp.Aborted {
				final.Post(rvp.Aborted)
				return
			}
			cfKey := key.New(TableCallForwarding, key.Int(in.SubscriberID), key.Int(in.SFType))
			err := b.SubmitOne(TableCallForwarding, cfKey, lock.Shared, func(ctx context.Context, h *storage.Handle, adapter storage.Adapter) (storage.Row, error) {
				return adapter.Get(ctx, h, TableCallForwarding, cfKey)
			}, final)
			if err != nil {
				final.Post(rvp.Aborted)
			}
		})

		err := b.SubmitOne(TableServiceFacility, sfKey, lock.Shared, func(ctx context.Context, h *storage.Handle, adapter storage.Adapter) (storage.Row, error) {
			return adapter.Get(ctx, h, TableServiceFacility, sfKey)
		}, midway)
		if err != nil {
			midway.Post(rvp.Aborted)
		}
	})
}

// UpdSubDataInput is TM1's UpdSubData transaction input: update a bit
// in the subscriber row, then update the matching service-facility row
// (TM1USD2's 2-phase shape).
type UpdSubDataInput struct {
	SubscriberID int64
	SFType       int64
	Bit          int64
	BitValue     bool
	Data         int64
}

// RegisterUpdSubData wires TM1's UpdSubData graph: wave-1 updates
// subscriber, a midway RVP, wave-2 updates service_facility, final RVP.
func RegisterUpdSubData(co *txn.Coordinator) {
	co.Register("tm1.upd_sub_data", func(b *txn.Builder, input any) {
		in := input.(UpdSubDataInput)
		subKey := key.New(TableSubscriber, key.Int(in.SubscriberID))

		final := b.Final(1)
		midway := b.Midway(1, func(outcome rvp.Outcome) {
			if outcome == rvp.Aborted {
				final.Post(rvp.Aborted)
				return
			}
			sfKey := key.New(TableServiceFacility, key.Int(in.SubscriberID), key.Int(in.SFType))
			err := b.SubmitOne(TableServiceFacility, sfKey, lock.Exclusive, func(ctx context.Context, h *storage.Handle, adapter storage.Adapter) (storage.Row, error) {
				return nil, adapter.Update(ctx, h, TableServiceFacility, sfKey, storage.Row{"data": in.Data})
			}, final)
			if err != nil {
				final.Post(rvp.Aborted)
			}
		})

		err := b.SubmitOne(TableSubscriber, subKey, lock.Exclusive, func(ctx context.Context, h *storage.Handle, adapter storage.Adapter) (storage.Row, error) {
			return nil, adapter.Update(ctx, h, TableSubscriber, subKey, storage.Row{fmt.Sprintf("bit_%d", in.Bit): in.BitValue})
		}, midway)
		if err != nil {
			midway.Post(rvp.Aborted)
		}
	})
}

// InsCallFwdInput is TM1's InsCallFwd transaction input: confirm the
// subscriber exists, confirm the service-facility row exists, then
// insert a new call-forwarding row (TM1ICF2's 3-action, two-midway-RVP
// shape: r_sub -> mid1 -> r_sf -> mid2 -> ins_cf -> final).
type InsCallFwdInput struct {
	SubscriberID int64
	SFType       int64
	StartTime    int64
	EndTime      int64
	Numberx      string
}

// RegisterInsCallFwd wires TM1's InsCallFwd graph.
func RegisterInsCallFwd(co *txn.Coordinator) {
	co.Register("tm1.ins_call_fwd", func(b *txn.Builder, input any) {
		in := input.(InsCallFwdInput)
		subKey := key.New(TableSubscriber, key.Int(in.SubscriberID))
		sfKey := key.New(TableServiceFacility, key.Int(in.SubscriberID), key.Int(in.SFType))
		cfKey := key.New(TableCallForwarding, key.Int(in.SubscriberID), key.Int(in.SFType), key.Int(in.StartTime))

		final := b.Final(1)
		mid2 := b.Midway(1, func(outcome rvp.Outcome) {
			if outcome == rvp.Aborted {
				final.Post(rvp.Aborted)
				return
			}
			err := b.SubmitOne(TableCallForwarding, cfKey, lock.Exclusive, func(ctx context.Context, h *storage.Handle, adapter storage.Adapter) (storage.Row, error) {
				return nil, adapter.Insert(ctx, h, TableCallForwarding, cfKey, storage.Row{
					"end_time": in.EndTime,
					"numberx":  in.Numberx,
				})
			}, final)
			if err != nil {
				final.Post(rvp.Aborted)
			}
		})
		mid1 := b.Midway(1, func(outcome rvp.Outcome) {
			if outcome == rvp.Aborted {
				mid2.Post(rvp.Aborted)
				return
			}
			err := b.SubmitOne(TableServiceFacility, sfKey, lock.Shared, func(ctx context.Context, h *storage.Handle, adapter storage.Adapter) (storage.Row, error) {
				row, err := adapter.Get(ctx, h, TableServiceFacility, sfKey)
				if err != nil {
					return nil, fmt.Errorf("ins_call_fwd: service facility lookup: %w", errors.NotFound)
				}
				return row, nil
			}, mid2)
			if err != nil {
				mid2.Post(rvp.Aborted)
			}
		})

		err := b.SubmitOne(TableSubscriber, subKey, lock.Shared, func(ctx context.Context, h *storage.Handle, adapter storage.Adapter) (storage.Row, error) {
			return adapter.Get(ctx, h, TableSubscriber, subKey)
		}, mid1)
		if err != nil {
			mid1.Post(rvp.Aborted)
		}
	})
}
