package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lawnchairsociety/battleadvisor/internal/battle"
)

// DefaultScenario tags battles submitted without a scenario.
const DefaultScenario = "field_battle"

var (
	ErrBattleNotFound  = errors.New("battle not found")
	ErrDuplicateBattle = errors.New("battle already recorded")
)

// BattleRecord is one stored simulation: both armies as submitted and the
// result returned to the caller.
type BattleRecord struct {
	ID         int64         `json:"-"`
	BattleID   string        `json:"battle_id"`
	Timestamp  time.Time     `json:"timestamp"`
	Scenario   string        `json:"scenario"`
	PlayerArmy battle.Army   `json:"player_army"`
	EnemyArmy  battle.Army   `json:"enemy_army"`
	Result     battle.Result `json:"result"`
}

const battleColumns = `id, battle_id, scenario, player_army, enemy_army, result, created_at`

// SaveBattle inserts a battle record and sets rec.ID. An empty scenario is
// stored as DefaultScenario and a zero timestamp as the current time.
// Returns ErrDuplicateBattle if the battle ID is already recorded.
func (d *Database) SaveBattle(ctx context.Context, rec *BattleRecord) error {
	if rec.BattleID == "" {
		return errors.New("battle ID cannot be empty")
	}
	if rec.Scenario == "" {
		rec.Scenario = DefaultScenario
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	rec.Timestamp = rec.Timestamp.UTC()

	playerJSON, err := json.Marshal(rec.PlayerArmy)
	if err != nil {
		return fmt.Errorf("failed to encode player army: %w", err)
	}
	enemyJSON, err := json.Marshal(rec.EnemyArmy)
	if err != nil {
		return fmt.Errorf("failed to encode enemy army: %w", err)
	}
	resultJSON, err := json.Marshal(rec.Result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	query := d.qb.BuildWithReturning(`
		INSERT INTO battles (battle_id, scenario, player_army, enemy_army, result, win_probability, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`, "id")
	args := []any{
		rec.BattleID, rec.Scenario, string(playerJSON), string(enemyJSON), string(resultJSON),
		rec.Result.WinProbability, rec.Timestamp,
	}

	if d.dialect.SupportsLastInsertID() {
		result, err := d.db.ExecContext(ctx, query, args...)
		if err != nil {
			return d.insertError(err)
		}
		rec.ID, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get battle row ID: %w", err)
		}
		return nil
	}

	if err := d.db.QueryRowContext(ctx, query, args...).Scan(&rec.ID); err != nil {
		return d.insertError(err)
	}
	return nil
}

func (d *Database) insertError(err error) error {
	if d.dialect.IsDuplicateKeyError(err) {
		return ErrDuplicateBattle
	}
	return fmt.Errorf("failed to save battle: %w", err)
}

// RecentBattles returns up to limit battles, newest first.
// A limit of zero or less returns every battle.
func (d *Database) RecentBattles(ctx context.Context, limit int) ([]BattleRecord, error) {
	query := `SELECT ` + battleColumns + ` FROM battles ORDER BY created_at DESC, id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := d.db.QueryContext(ctx, d.qb.Build(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query battles: %w", err)
	}
	defer rows.Close()

	return scanBattles(rows)
}

// BattlesAfter returns up to limit battles with a row ID greater than
// afterID, oldest first. Used to page through the whole history.
func (d *Database) BattlesAfter(ctx context.Context, afterID int64, limit int) ([]BattleRecord, error) {
	query := d.qb.Build(`SELECT ` + battleColumns + ` FROM battles WHERE id > ? ORDER BY id LIMIT ?`)

	rows, err := d.db.QueryContext(ctx, query, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query battles: %w", err)
	}
	defer rows.Close()

	return scanBattles(rows)
}

// GetBattle returns the battle with the given ID, or ErrBattleNotFound.
func (d *Database) GetBattle(ctx context.Context, battleID string) (*BattleRecord, error) {
	row := d.db.QueryRowContext(ctx,
		d.qb.Build(`SELECT `+battleColumns+` FROM battles WHERE battle_id = ?`), battleID)

	rec, err := scanBattle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBattleNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// CountBattles returns the number of stored battles.
func (d *Database) CountBattles(ctx context.Context) (int, error) {
	var count int
	err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM battles`).Scan(&count)
	return count, err
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanBattle(row rowScanner) (*BattleRecord, error) {
	var (
		rec                               BattleRecord
		playerJSON, enemyJSON, resultJSON string
	)
	if err := row.Scan(&rec.ID, &rec.BattleID, &rec.Scenario, &playerJSON, &enemyJSON, &resultJSON, &rec.Timestamp); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(playerJSON), &rec.PlayerArmy); err != nil {
		return nil, fmt.Errorf("battle %s: corrupt player army: %w", rec.BattleID, err)
	}
	if err := json.Unmarshal([]byte(enemyJSON), &rec.EnemyArmy); err != nil {
		return nil, fmt.Errorf("battle %s: corrupt enemy army: %w", rec.BattleID, err)
	}
	if err := json.Unmarshal([]byte(resultJSON), &rec.Result); err != nil {
		return nil, fmt.Errorf("battle %s: corrupt result: %w", rec.BattleID, err)
	}
	rec.Timestamp = rec.Timestamp.UTC()

	return &rec, nil
}

func scanBattles(rows *sql.Rows) ([]BattleRecord, error) {
	battles := []BattleRecord{}
	for rows.Next() {
		rec, err := scanBattle(rows)
		if err != nil {
			return nil, err
		}
		battles = append(battles, *rec)
	}
	return battles, rows.Err()
}
