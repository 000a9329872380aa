package engine

import (
	"context"
	"sync"
	"time"

	orderreaderv1 "github.com/TIWARINEERAJ/GreenIEX/internal/domain/order-reader/v1"
	snapshotv1 "github.com/TIWARINEERAJ/GreenIEX/internal/domain/snapshot/v1"
	"github.com/TIWARINEERAJ/GreenIEX/pkg/errors"
	"github.com/TIWARINEERAJ/GreenIEX/pkg/logger"
	"github.com/TIWARINEERAJ/GreenIEX/pkg/util"
)

// Service drives the engine from the order intake stream and takes
// periodic snapshots. The engine itself stays usable directly (tests,
// embedded callers); Service is the long-running wrapper around it.
type Service struct {
	engine        *Engine
	orderReader   orderreaderv1.OrderReader
	snapshotStore snapshotv1.Store
	logger        *logger.Logger

	mu                 sync.RWMutex
	orderOffset        int64
	lastSnapshotOffset int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	snapshotInterval    time.Duration
	snapshotOffsetDelta int64
}

// ServiceOptions tune the snapshot cadence.
type ServiceOptions struct {
	SnapshotInterval    time.Duration
	SnapshotOffsetDelta int64
}

// DefaultServiceOptions snapshots at most every 30s, and only after 100
// new messages since the last one.
func DefaultServiceOptions() *ServiceOptions {
	return &ServiceOptions{
		SnapshotInterval:    30 * time.Second,
		SnapshotOffsetDelta: 100,
	}
}

// NewService wires the engine to its stream and snapshot store. The
// latest snapshot, if any, is restored before the service is returned.
func NewService(
	engine *Engine,
	orderReader orderreaderv1.OrderReader,
	snapshotStore snapshotv1.Store,
	log *logger.Logger,
	options *ServiceOptions,
) (*Service, error) {
	if options == nil {
		options = DefaultServiceOptions()
	}
	s := &Service{
		engine:        engine,
		orderReader:   orderReader,
		snapshotStore: snapshotStore,
		logger:        log,

		snapshotInterval:    options.SnapshotInterval,
		snapshotOffsetDelta: options.SnapshotOffsetDelta,
		orderOffset:         -1,
		lastSnapshotOffset:  -1,
	}
	if err := s.loadSnapshot(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

// Start launches the order processor and snapshot manager.
func (s *Service) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	offset := s.getOrderOffset()
	if offset >= 0 {
		offset++
	}
	if err := s.orderReader.SetOffset(offset); err != nil {
		return err
	}

	s.wg.Add(2)
	go s.runOrderProcessor()
	go s.runSnapshotManager()

	s.logger.Info("matching service started", logger.Field{Key: "resumeOffset", Value: offset})
	return nil
}

// Stop shuts down the processing goroutines and writes a final snapshot.
func (s *Service) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.createAndStoreSnapshot(ctx)
		s.logger.Info("matching service stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("matching service stop timeout exceeded")
		return ctx.Err()
	}
}

func (s *Service) runOrderProcessor() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			s.logger.Info("order processor shutting down")
			if err := s.orderReader.Close(); err != nil {
				s.logger.ErrorContext(s.ctx, err, logger.Field{Key: "action", Value: "close_order_reader"})
			}
			return
		default:
			msg, orderMsg, err := s.orderReader.ReadMessage(s.ctx)
			if err != nil {
				if s.ctx.Err() != nil {
					continue
				}
				s.logger.ErrorContext(s.ctx, err, logger.Field{Key: "action", Value: "read_order_message"})
				time.Sleep(100 * time.Millisecond)
				continue
			}

			if err := s.orderReader.CommitMessages(s.ctx, msg); err != nil {
				s.logger.ErrorContext(s.ctx, err, logger.Field{Key: "action", Value: "commit_order_message"})
			}

			// Every message gets its own request id so all log lines
			// for one intake message correlate.
			msgCtx := util.WithRequestID(s.ctx, "")
			if orderMsg.OwnerID != "" {
				msgCtx = util.WithActorID(msgCtx, orderMsg.OwnerID)
			}
			s.processMessage(msgCtx, orderMsg)
			s.setOrderOffset(orderMsg.Offset)
		}
	}
}

// processMessage applies one intake message. Rejections are logged and
// dropped; the stream is not a place to bounce errors back to.
func (s *Service) processMessage(ctx context.Context, msg *orderreaderv1.OrderMessage) {
	switch msg.Action {
	case orderreaderv1.ActionPlace:
		res, err := s.engine.Submit(ctx, msg.PlaceRequest())
		if err != nil {
			s.logRejection(ctx, err, msg)
			return
		}
		if len(res.Trades) > 0 {
			s.logger.InfoContext(ctx, "trades executed",
				logger.Field{Key: "orderID", Value: res.Order.ID},
				logger.Field{Key: "asset", Value: string(res.Order.Asset)},
				logger.Field{Key: "tradeCount", Value: len(res.Trades)},
			)
		}
	case orderreaderv1.ActionCancel:
		if _, err := s.engine.Cancel(ctx, msg.OrderID); err != nil {
			s.logRejection(ctx, err, msg)
		}
	default:
		s.logger.Warn("unknown intake action",
			logger.Field{Key: "action", Value: string(msg.Action)},
			logger.Field{Key: "offset", Value: msg.Offset},
		)
	}
}

func (s *Service) logRejection(ctx context.Context, err error, msg *orderreaderv1.OrderMessage) {
	// Expected rejections (validation, not-found, already terminal) stay
	// at warn; anything else is a real failure.
	if errors.IsValidation(err) || errors.IsNotFound(err) || errors.IsInvalidState(err) {
		details := err.(*errors.ErrorDetails)
		s.logger.WarnContext(ctx, "order rejected",
			logger.Field{Key: "orderID", Value: msg.OrderID},
			logger.Field{Key: "code", Value: details.Code},
			logger.Field{Key: "reason", Value: details.Message},
		)
		return
	}
	s.logger.ErrorContext(ctx, err,
		logger.Field{Key: "orderID", Value: msg.OrderID},
		logger.Field{Key: "offset", Value: msg.Offset},
	)
}

func (s *Service) runSnapshotManager() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.snapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			s.logger.Info("snapshot manager shutting down")
			return
		case <-ticker.C:
			if s.shouldCreateSnapshot() {
				s.createAndStoreSnapshot(s.ctx)
			}
		}
	}
}

func (s *Service) shouldCreateSnapshot() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.orderOffset < 0 {
		return false
	}
	return s.orderOffset-s.lastSnapshotOffset >= s.snapshotOffsetDelta
}

func (s *Service) createAndStoreSnapshot(ctx context.Context) {
	offset := s.getOrderOffset()

	snap := s.engine.CreateSnapshot()
	snap.OrderOffset = offset

	if err := s.snapshotStore.Store(ctx, snap); err != nil {
		s.logger.ErrorContext(ctx, err, logger.Field{Key: "action", Value: "store_snapshot"})
		return
	}
	s.setLastSnapshotOffset(offset)
	s.logger.Info("snapshot stored",
		logger.Field{Key: "offset", Value: offset},
		logger.Field{Key: "executionSequence", Value: snap.ExecutionSequence},
	)
}

func (s *Service) loadSnapshot(ctx context.Context) error {
	snap, err := s.snapshotStore.LoadStore(ctx)
	if err != nil {
		return err
	}
	if snap == nil {
		return nil
	}
	if err := s.engine.RestoreSnapshot(snap); err != nil {
		return err
	}
	s.mu.Lock()
	s.orderOffset = snap.OrderOffset
	s.lastSnapshotOffset = snap.OrderOffset
	s.mu.Unlock()

	s.logger.Info("books restored from snapshot",
		logger.Field{Key: "orderOffset", Value: snap.OrderOffset},
		logger.Field{Key: "arrivalSequence", Value: snap.ArrivalSequence},
	)
	return nil
}

func (s *Service) getOrderOffset() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.orderOffset
}

func (s *Service) setOrderOffset(offset int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orderOffset = offset
}

func (s *Service) setLastSnapshotOffset(offset int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSnapshotOffset = offset
}
