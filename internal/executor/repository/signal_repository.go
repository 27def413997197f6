package repository

import (
	"context"
	"errors"
	"time"

	"golang-signal-engine/internal/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SignalRepository provides access to persisted signals. Writes are
// monotonic per (symbol, timeframe, strategy, signal_type): an incoming
// signal older than the stored latest is skipped, and an exact duplicate of
// the uniqueness key is a no-op. It satisfies the engine's SignalStore.
type SignalRepository interface {
	UpsertSignal(ctx context.Context, signal *entity.Signal) (bool, error)
	UpsertMACDMultiSignal(ctx context.Context, signal *entity.Signal) (bool, error)
	GetActiveSignals(ctx context.Context, symbolID uint, timeframe string) ([]entity.Signal, error)
	GetLatestSignal(ctx context.Context, symbolID uint, timeframe, strategyID string) (*entity.Signal, error)
	ExpireSignals(ctx context.Context, now time.Time) (int64, error)
	CancelSignal(ctx context.Context, id int64) error
}

type signalRepository struct {
	db *gorm.DB
}

func NewSignalRepository(db *gorm.DB) SignalRepository {
	return &signalRepository{db: db}
}

func (r *signalRepository) UpsertSignal(ctx context.Context, signal *entity.Signal) (bool, error) {
	return r.upsertMonotonic(ctx, signal)
}

// UpsertMACDMultiSignal shares the monotonic write path; the multi-timeframe
// strategy uses the sentinel "multi" timeframe so its signals never collide
// with per-timeframe rows.
func (r *signalRepository) UpsertMACDMultiSignal(ctx context.Context, signal *entity.Signal) (bool, error) {
	return r.upsertMonotonic(ctx, signal)
}

func (r *signalRepository) upsertMonotonic(ctx context.Context, signal *entity.Signal) (bool, error) {
	written := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var latest entity.Signal
		err := tx.
			Where("symbol_id = ? AND timeframe = ? AND strategy_id = ? AND signal_type = ?",
				signal.SymbolID, signal.Timeframe, signal.StrategyID, signal.SignalType).
			Order("timestamp desc").
			First(&latest).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err == nil && !latest.Timestamp.Before(signal.Timestamp) {
			// An equal or newer row already exists; out-of-order and
			// duplicate deliveries are dropped here.
			return nil
		}

		result := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "symbol_id"}, {Name: "timeframe"}, {Name: "timestamp"},
				{Name: "strategy_id"}, {Name: "signal_type"},
			},
			DoNothing: true,
		}).Create(signal)
		if result.Error != nil {
			return result.Error
		}
		written = result.RowsAffected > 0
		return nil
	})
	return written, err
}

func (r *signalRepository) GetActiveSignals(ctx context.Context, symbolID uint, timeframe string) ([]entity.Signal, error) {
	var signals []entity.Signal
	query := r.db.WithContext(ctx).
		Where("status = ?", entity.SignalStatusActive)
	if symbolID != 0 {
		query = query.Where("symbol_id = ?", symbolID)
	}
	if timeframe != "" {
		query = query.Where("timeframe = ?", timeframe)
	}
	if err := query.Order("timestamp desc").Find(&signals).Error; err != nil {
		return nil, err
	}
	return signals, nil
}

func (r *signalRepository) GetLatestSignal(ctx context.Context, symbolID uint, timeframe, strategyID string) (*entity.Signal, error) {
	var signal entity.Signal
	err := r.db.WithContext(ctx).
		Where("symbol_id = ? AND timeframe = ? AND strategy_id = ?", symbolID, timeframe, strategyID).
		Order("timestamp desc").
		First(&signal).Error
	if err != nil {
		return nil, err
	}
	return &signal, nil
}

// ExpireSignals flips active signals past their expiry to expired and
// returns how many rows changed.
func (r *signalRepository) ExpireSignals(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&entity.Signal{}).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at <= ?", entity.SignalStatusActive, now).
		Update("status", entity.SignalStatusExpired)
	return result.RowsAffected, result.Error
}

func (r *signalRepository) CancelSignal(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Model(&entity.Signal{}).
		Where("id = ? AND status = ?", id, entity.SignalStatusActive).
		Update("status", entity.SignalStatusCancelled)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
