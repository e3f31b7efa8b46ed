// Package history records resolved rounds to Postgres, best effort. Gameplay
// never waits on it and runs fine without it; session state itself is never
// persisted.
package history

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/meDataEngLearner/rock-paper-scissors-multiplayer/internal/game"
)

type Recorder interface {
	RecordRound(sessionID string, p1, p2 game.Choice, result game.Outcome)
}

type Round struct {
	ID        uint   `gorm:"primaryKey"`
	SessionID string `gorm:"index"`
	PlayerOne string
	PlayerTwo string
	Result    string
	CreatedAt time.Time
}

type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

func Open(dsn string, log *zap.Logger) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Round{}); err != nil {
		return nil, err
	}
	return &Store{db: db, log: log}, nil
}

// RecordRound inserts asynchronously; a failed insert is logged and dropped.
func (s *Store) RecordRound(sessionID string, p1, p2 game.Choice, result game.Outcome) {
	rec := &Round{
		SessionID: sessionID,
		PlayerOne: string(p1),
		PlayerTwo: string(p2),
		Result:    string(result),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
			s.log.Warn("round history insert failed",
				zap.String("session_id", sessionID), zap.Error(err))
		}
	}()
}
