package server

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/lawnchairsociety/battleadvisor/internal/battle"
	"github.com/lawnchairsociety/battleadvisor/internal/database"
	"github.com/lawnchairsociety/battleadvisor/internal/logger"
	"github.com/lawnchairsociety/battleadvisor/internal/units"
)

// maxBodyBytes bounds a simulate request body.
const maxBodyBytes = 1 << 20

// errorResponse is the body of every error reply.
type errorResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warning("Failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

// armyPayload requires the composition field, which battle.Army cannot
// distinguish from an empty one.
type armyPayload struct {
	battle.Army
	Composition *units.Composition `json:"composition"`
}

func (p *armyPayload) army(side string) (battle.Army, error) {
	if p == nil {
		return battle.Army{}, fmt.Errorf("%w: %s is required", battle.ErrMalformedInput, side)
	}
	if p.Composition == nil {
		return battle.Army{}, fmt.Errorf("%w: %s.composition is required", battle.ErrMalformedInput, side)
	}
	army := p.Army
	army.Composition = *p.Composition
	return army, nil
}

type simulateRequest struct {
	PlayerArmy *armyPayload `json:"player_army"`
	EnemyArmy  *armyPayload `json:"enemy_army"`
	Scenario   string       `json:"scenario"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": ServiceName,
	})
}

// handleSimulate runs a battle, stores it and publishes it on the feed.
func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req simulateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Invalid request body: "+err.Error())
		return
	}

	player, err := req.PlayerArmy.army("player_army")
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	enemy, err := req.EnemyArmy.army("enemy_army")
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if !s.cleanLabels(&req.Scenario, &player, &enemy) {
		writeError(w, http.StatusUnprocessableEntity, "Submission contains disallowed words")
		return
	}

	client, fingerprint := s.clientIP(r), battleFingerprint(req.Scenario, player, enemy)
	if check := s.spamGuard.Check(client, fingerprint); !check.Allowed {
		w.Header().Set("Retry-After", strconv.Itoa(check.WaitSeconds))
		writeError(w, http.StatusTooManyRequests, check.Reason)
		return
	}

	report, err := s.model.SimulateAndAdvise(player, enemy)
	if err != nil {
		s.spamGuard.Forget(client, fingerprint)
		status := http.StatusInternalServerError
		if errors.Is(err, battle.ErrMalformedInput) {
			status = http.StatusUnprocessableEntity
		}
		writeError(w, status, "Battle simulation failed: "+err.Error())
		return
	}

	result := battle.NewResult(s.newID(), report)
	rec := &database.BattleRecord{
		BattleID:   result.BattleID,
		Timestamp:  s.now(),
		Scenario:   req.Scenario,
		PlayerArmy: player,
		EnemyArmy:  enemy,
		Result:     result,
	}
	if err := s.store.SaveBattle(r.Context(), rec); err != nil {
		logger.Error("Failed to store battle", "battle_id", result.BattleID, "error", err)
		s.spamGuard.Forget(client, fingerprint)
		writeError(w, http.StatusInternalServerError, "Battle simulation failed: "+err.Error())
		return
	}

	logger.Always("Battle stored",
		"battle_id", rec.BattleID,
		"scenario", rec.Scenario,
		"win_probability", result.WinProbability,
		"confidence", result.ConfidenceLevel)

	if s.feed != nil {
		s.feed.Publish(*rec)
	}

	writeJSON(w, http.StatusOK, result)
}

// cleanLabels runs the label filter over the scenario tag and hero names.
// It returns false if the submission must be refused.
func (s *Server) cleanLabels(scenario *string, armies ...*battle.Army) bool {
	labels := []*string{scenario}
	for _, a := range armies {
		if a.Hero != nil {
			hero := *a.Hero
			a.Hero = &hero
			labels = append(labels, &hero.Name)
		}
	}

	matched, ok := s.labelFilter.Clean(labels...)
	if len(matched) > 0 {
		logger.Warning("Banned words in battle labels", "words", matched, "refused", !ok)
	}
	return ok
}

// battleFingerprint identifies a submission for repeat detection.
func battleFingerprint(scenario string, player, enemy battle.Army) string {
	data, _ := json.Marshal(struct {
		Scenario string      `json:"scenario"`
		Player   battle.Army `json:"player"`
		Enemy    battle.Army `json:"enemy"`
	}{scenario, player, enemy})
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// handleHistory lists stored battles newest first.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := s.cfg.HTTP.DefaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "limit must be an integer")
			return
		}
		limit = n
	}
	limit = s.clampHistoryLimit(limit)

	battles, err := s.store.RecentBattles(r.Context(), limit)
	if err != nil {
		logger.Error("Failed to retrieve battle history", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to retrieve battle history: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string][]database.BattleRecord{"battles": battles})
}

// clampHistoryLimit maps a requested limit into [1, MaxHistoryLimit].
// Zero or negative asks for everything, which means the cap.
func (s *Server) clampHistoryLimit(limit int) int {
	maxLimit := s.cfg.HTTP.MaxHistoryLimit
	if maxLimit <= 0 {
		maxLimit = 100
	}
	if limit <= 0 || limit > maxLimit {
		return maxLimit
	}
	return limit
}

func (s *Server) handleGetBattle(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	rec, err := s.store.GetBattle(r.Context(), id)
	if errors.Is(err, database.ErrBattleNotFound) {
		writeError(w, http.StatusNotFound, "Battle not found")
		return
	}
	if err != nil {
		logger.Error("Failed to retrieve battle", "battle_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to retrieve battle: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// handleOptimize suggests a composition against the enemy counts given as
// query parameters.
func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	raw := q.Get("total_troops")
	if raw == "" {
		writeError(w, http.StatusUnprocessableEntity, "total_troops is required")
		return
	}
	total, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "total_troops must be an integer")
		return
	}

	var enemy units.Composition
	for _, t := range units.All {
		param := "enemy_" + t.String()
		v := q.Get(param)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, param+" must be an integer")
			return
		}
		enemy[t] = n
	}

	writeJSON(w, http.StatusOK, battle.Optimize(total, enemy))
}
