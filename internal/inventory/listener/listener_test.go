package listener

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/smartcart/product-service/internal/apperror"
	"github.com/smartcart/product-service/internal/inventory/dto"
	"github.com/smartcart/product-service/internal/model"
	"github.com/smartcart/product-service/internal/pkg/logger"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type queueReader struct {
	mu   sync.Mutex
	msgs []kafka.Message
	errs []error
}

func (r *queueReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.errs) > 0 {
		err := r.errs[0]
		r.errs = r.errs[1:]
		r.mu.Unlock()
		return kafka.Message{}, err
	}
	if len(r.msgs) > 0 {
		msg := r.msgs[0]
		r.msgs = r.msgs[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

type recordingUseCase struct {
	mu     sync.Mutex
	inputs []dto.AdjustStockInput
	fail   map[int64]error
	flaky  map[int64]int // transient failures before success
	done   chan struct{}
	want   int
}

func (u *recordingUseCase) AdjustStock(_ context.Context, in *dto.AdjustStockInput) (*dto.AdjustStockResult, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.inputs = append(u.inputs, *in)
	if len(u.inputs) == u.want {
		close(u.done)
	}
	if u.flaky[in.ProductID] > 0 {
		u.flaky[in.ProductID]--
		return nil, apperror.Transient("AdjustStock", errors.New("lock timeout"))
	}
	if err := u.fail[in.ProductID]; err != nil {
		return nil, err
	}
	return &dto.AdjustStockResult{ProductID: in.ProductID}, nil
}

func (u *recordingUseCase) ListTransactions(context.Context, *dto.TransactionFilters) ([]model.StockTransaction, int, error) {
	return nil, 0, nil
}

func (u *recordingUseCase) ReconcileStock(context.Context, int64) (*model.Reconciliation, error) {
	return nil, nil
}

func (u *recordingUseCase) ListLowStock(context.Context, string) ([]dto.LowStockItem, error) {
	return nil, nil
}

const orderEvent = `{
	"event_id": "e-1",
	"event_type": "OrderCreated",
	"payload": {
		"id": "ord-9",
		"store_id": "8f14e45f-ceea-467f-a2f5-2a3d5f1b9c10",
		"items": [
			{"product_id": 1, "quantity": 2},
			{"product_id": 2, "quantity": 0.5},
			{"product_id": 3, "quantity": 1}
		]
	}
}`

func TestListenerTurnsOrderItemsIntoSales(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	reader := &queueReader{
		errs: []error{errors.New("coordinator not available")},
		msgs: []kafka.Message{
			{Value: []byte(`not json`)},
			{Value: []byte(`{"event_type": "OrderCancelled"}`)},
			{Value: []byte(orderEvent)},
		},
	}
	uc := &recordingUseCase{
		fail: map[int64]error{2: apperror.InsufficientStock("AdjustStock", "Insufficient stock")},
		done: make(chan struct{}),
		want: 3,
	}
	l := NewInventoryListener(reader, uc, logger.FromZap(zap.New(core)))
	l.retryDelay = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		l.Start(ctx)
		close(stopped)
	}()

	select {
	case <-uc.done:
	case <-time.After(2 * time.Second):
		t.Fatal("order items were not processed")
	}
	cancel()
	<-stopped

	uc.mu.Lock()
	defer uc.mu.Unlock()
	wantQty := []string{"-2", "-0.5", "-1"}
	for i, in := range uc.inputs {
		if in.TransactionType != model.TransactionSale {
			t.Errorf("item %d type %s", i, in.TransactionType)
		}
		if in.Quantity.String() != wantQty[i] {
			t.Errorf("item %d quantity %s, want %s", i, in.Quantity, wantQty[i])
		}
		if in.Notes == nil || *in.Notes != "order ord-9" {
			t.Errorf("item %d notes %v", i, in.Notes)
		}
	}

	if n := logs.FilterMessage("failed to read kafka message").Len(); n != 1 {
		t.Errorf("read errors logged %d times", n)
	}
	if n := logs.FilterMessage("failed to unmarshal event").Len(); n != 1 {
		t.Errorf("bad payload logged %d times", n)
	}
	failed := logs.FilterMessage("failed to adjust stock for order item").All()
	if len(failed) != 1 || failed[0].ContextMap()["product_id"] != int64(2) {
		t.Errorf("unexpected failure logs %+v", failed)
	}
}

func TestListenerRetriesTransientFailures(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	reader := &queueReader{msgs: []kafka.Message{{Value: []byte(orderEvent)}}}
	uc := &recordingUseCase{
		// product 1 recovers on its third attempt, product 3 never does
		flaky: map[int64]int{1: 2, 3: 10},
		done:  make(chan struct{}),
		want:  7,
	}
	l := NewInventoryListener(reader, uc, logger.FromZap(zap.New(core)))
	l.retryDelay = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		l.Start(ctx)
		close(stopped)
	}()

	select {
	case <-uc.done:
	case <-time.After(2 * time.Second):
		t.Fatal("order items were not processed")
	}
	cancel()
	<-stopped

	uc.mu.Lock()
	defer uc.mu.Unlock()
	calls := map[int64]int{}
	for _, in := range uc.inputs {
		calls[in.ProductID]++
	}
	if calls[1] != 3 || calls[2] != 1 || calls[3] != maxAdjustAttempts {
		t.Errorf("unexpected attempts per product %v", calls)
	}
	failed := logs.FilterMessage("failed to adjust stock for order item").All()
	if len(failed) != 1 || failed[0].ContextMap()["product_id"] != int64(3) {
		t.Errorf("unexpected failure logs %+v", failed)
	}
	if n := logs.FilterMessage("retrying stock adjustment").Len(); n != 4 {
		t.Errorf("retries logged %d times, want 4", n)
	}
}
