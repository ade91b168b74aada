package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/DoyleJ11/arena-battle-client/internal/battle"
)

// ArchivedEntry is one turn log entry of a finished battle.
type ArchivedEntry struct {
	ID        uint   `gorm:"primaryKey"`
	BattleID  string `gorm:"size:64;not null;uniqueIndex:idx_battle_seq"`
	Seq       int    `gorm:"not null;uniqueIndex:idx_battle_seq"`
	Kind      string `gorm:"size:32;not null"`
	Turn      int
	Payload   string `gorm:"type:text;not null"`
	CreatedAt time.Time
}

type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

// Open connects to Postgres and migrates the archive table.
func Open(dsn string, log *zap.Logger) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return New(db, log)
}

// New wraps an already opened database.
func New(db *gorm.DB, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := db.AutoMigrate(&ArchivedEntry{}); err != nil {
		return nil, fmt.Errorf("migrate journal: %w", err)
	}
	return &Store{db: db, log: log}, nil
}

// Archive replaces whatever was stored for battleID with entries.
func (s *Store) Archive(ctx context.Context, battleID string, entries []battle.LogEntry) error {
	rows := make([]ArchivedEntry, 0, len(entries))
	for i, e := range entries {
		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encode entry %d: %w", i, err)
		}
		rows = append(rows, ArchivedEntry{
			BattleID: battleID,
			Seq:      i,
			Kind:     string(e.Kind),
			Turn:     e.Turn,
			Payload:  string(payload),
		})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("battle_id = ?", battleID).Delete(&ArchivedEntry{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, 100).Error
	})
	if err != nil {
		return fmt.Errorf("archive %s: %w", battleID, err)
	}
	s.log.Debug("archived turn log", zap.String("battle_id", battleID), zap.Int("entries", len(rows)))
	return nil
}

// Load returns the archived log of battleID in its original order. A battle
// that was never archived has an empty log.
func (s *Store) Load(ctx context.Context, battleID string) ([]battle.LogEntry, error) {
	var rows []ArchivedEntry
	if err := s.db.WithContext(ctx).Where("battle_id = ?", battleID).Order("seq").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load %s: %w", battleID, err)
	}

	entries := make([]battle.LogEntry, 0, len(rows))
	var errs error
	for _, r := range rows {
		var e battle.LogEntry
		if err := json.Unmarshal([]byte(r.Payload), &e); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("entry %d: %w", r.Seq, err))
			continue
		}
		entries = append(entries, e)
	}
	return entries, errs
}

// Battles lists archived battle ids, most recent first.
func (s *Store) Battles(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&ArchivedEntry{}).
		Select("battle_id").
		Group("battle_id").
		Order("MAX(created_at) DESC").
		Pluck("battle_id", &ids).Error
	return ids, err
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
