package server

import (
	"context"

	"github.com/lawnchairsociety/battleadvisor/internal/database"
)

// BattleStore persists simulated battles. *database.Database implements it.
type BattleStore interface {
	SaveBattle(ctx context.Context, rec *database.BattleRecord) error
	RecentBattles(ctx context.Context, limit int) ([]database.BattleRecord, error)
	GetBattle(ctx context.Context, battleID string) (*database.BattleRecord, error)
}

var _ BattleStore = (*database.Database)(nil)
