package test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lawnchairsociety/battleadvisor/internal/battle"
	"github.com/lawnchairsociety/battleadvisor/internal/testclient"
	"github.com/lawnchairsociety/battleadvisor/internal/units"
)

const scenarioTimeout = 10 * time.Second

// =============================================================================
// Group 1: Service
// =============================================================================

// TestHealthCheck tests that the server reports itself healthy
func TestHealthCheck(serverAddr string) TestResult {
	const testName = "Health Check"

	ctx, cancel := context.WithTimeout(context.Background(), scenarioTimeout)
	defer cancel()

	client := newClient("health", serverAddr)
	defer client.Close()

	logAction(testName, "Requesting /api/health...")
	health, err := client.Health(ctx)
	if err != nil {
		return fail(testName, "Health request failed: %v", err)
	}

	ok := health["status"] == "healthy"
	logResult(testName, ok, fmt.Sprintf("status=%q service=%q", health["status"], health["service"]))
	if !ok {
		return fail(testName, "Expected status 'healthy', got %q", health["status"])
	}

	return TestResult{Name: testName, Passed: true, Message: fmt.Sprintf("%s is healthy", health["service"])}
}

// TestUnknownRoute tests that unknown paths return a JSON 404
func TestUnknownRoute(serverAddr string) TestResult {
	const testName = "Unknown Route"

	ctx, cancel := context.WithTimeout(context.Background(), scenarioTimeout)
	defer cancel()

	client := newClient("unknown-route", serverAddr)
	defer client.Close()

	logAction(testName, "Requesting /api/nowhere...")
	status, body, err := client.Do(ctx, http.MethodGet, "/api/nowhere", nil)
	if err != nil {
		return fail(testName, "Request failed: %v", err)
	}

	logResult(testName, status == http.StatusNotFound, fmt.Sprintf("status=%d body=%s", status, body))
	if status != http.StatusNotFound {
		return fail(testName, "Expected 404, got %d", status)
	}
	if !strings.Contains(string(body), `"detail"`) {
		return fail(testName, "Expected a detail field in %s", body)
	}

	return TestResult{Name: testName, Passed: true, Message: "Unknown route returned 404"}
}

// =============================================================================
// Group 2: Simulation
// =============================================================================

// TestSimulateReference tests the reference matchup end to end
func TestSimulateReference(serverAddr string) TestResult {
	const testName = "Simulate Reference Battle"

	ctx, cancel := context.WithTimeout(context.Background(), scenarioTimeout)
	defer cancel()

	client := newClient("simulate", serverAddr)
	defer client.Close()

	logAction(testName, "Submitting the reference battle...")
	result, err := client.Simulate(ctx, referencePlayer(), referenceEnemy(), uniqueName("reference"))
	if err != nil {
		return fail(testName, "Simulation failed: %v", err)
	}

	logResult(testName, result.WinProbability == 0.62,
		fmt.Sprintf("win_probability=%v confidence=%s", result.WinProbability, result.ConfidenceLevel))
	if result.WinProbability != 0.62 {
		return fail(testName, "Expected win probability 0.62, got %v", result.WinProbability)
	}
	if result.ConfidenceLevel != battle.ConfidenceMedium {
		return fail(testName, "Expected Medium confidence, got %s", result.ConfidenceLevel)
	}
	if result.Recommendation != battle.AdviceFavorable {
		return fail(testName, "Unexpected recommendation %q", result.Recommendation)
	}
	if want := units.NewComposition(183, 147, 110, 36); result.ExpectedLosses != want {
		return fail(testName, "Expected losses %v, got %v", want, result.ExpectedLosses)
	}
	if result.BattleID == "" {
		return fail(testName, "Result has no battle ID")
	}

	return TestResult{Name: testName, Passed: true, Message: fmt.Sprintf("Battle %s: 62%% win, Medium confidence", result.BattleID)}
}

// TestSimulateEmptyArmies tests that two empty armies are an even fight
func TestSimulateEmptyArmies(serverAddr string) TestResult {
	const testName = "Simulate Empty Armies"

	ctx, cancel := context.WithTimeout(context.Background(), scenarioTimeout)
	defer cancel()

	client := newClient("empty", serverAddr)
	defer client.Close()

	logAction(testName, "Submitting two empty armies...")
	result, err := client.Simulate(ctx, battle.Army{}, battle.Army{}, uniqueName("empty"))
	if err != nil {
		return fail(testName, "Simulation failed: %v", err)
	}

	logResult(testName, result.WinProbability == 0.5, fmt.Sprintf("win_probability=%v", result.WinProbability))
	if result.WinProbability != 0.5 {
		return fail(testName, "Expected even odds, got %v", result.WinProbability)
	}
	if !result.ExpectedLosses.IsEmpty() || !result.EnemyLosses.IsEmpty() {
		return fail(testName, "Expected no losses, got %v / %v", result.ExpectedLosses, result.EnemyLosses)
	}
	if result.ConfidenceLevel != battle.ConfidenceLow {
		return fail(testName, "Expected Low confidence, got %s", result.ConfidenceLevel)
	}

	return TestResult{Name: testName, Passed: true, Message: "Empty armies are an even fight"}
}

// TestSimulateInvalidBonus tests that a non-numeric bonus is rejected
func TestSimulateInvalidBonus(serverAddr string) TestResult {
	const testName = "Simulate Invalid Bonus"

	ctx, cancel := context.WithTimeout(context.Background(), scenarioTimeout)
	defer cancel()

	client := newClient("invalid", serverAddr)
	defer client.Close()

	body := `{"player_army": {"composition": {"infantry": 10}, "research_attack": "lots"},
		"enemy_army": {"composition": {"infantry": 10}}}`

	logAction(testName, "Submitting a non-numeric research bonus...")
	status, data, err := client.Do(ctx, http.MethodPost, "/api/battle/simulate", []byte(body))
	if err != nil {
		return fail(testName, "Request failed: %v", err)
	}

	logResult(testName, status == http.StatusUnprocessableEntity, fmt.Sprintf("status=%d body=%s", status, data))
	if status != http.StatusUnprocessableEntity {
		return fail(testName, "Expected 422, got %d", status)
	}

	return TestResult{Name: testName, Passed: true, Message: "Non-numeric bonus rejected with 422"}
}

// TestSimulateMalformedBody tests that missing armies and broken JSON are rejected
func TestSimulateMalformedBody(serverAddr string) TestResult {
	const testName = "Simulate Malformed Body"

	ctx, cancel := context.WithTimeout(context.Background(), scenarioTimeout)
	defer cancel()

	client := newClient("malformed", serverAddr)
	defer client.Close()

	cases := []struct {
		name   string
		body   string
		detail string
	}{
		{"missing enemy", `{"player_army": {"composition": {"infantry": 10}}}`, "enemy_army is required"},
		{"missing composition", `{"player_army": {}, "enemy_army": {"composition": {}}}`, "player_army.composition is required"},
		{"broken json", `{"player_army": `, "Invalid request body"},
	}

	for _, tc := range cases {
		logAction(testName, "Submitting "+tc.name+"...")
		status, data, err := client.Do(ctx, http.MethodPost, "/api/battle/simulate", []byte(tc.body))
		if err != nil {
			return fail(testName, "%s: request failed: %v", tc.name, err)
		}
		ok := status == http.StatusUnprocessableEntity && strings.Contains(string(data), tc.detail)
		logResult(testName, ok, fmt.Sprintf("%s: status=%d body=%s", tc.name, status, data))
		if !ok {
			return fail(testName, "%s: expected 422 mentioning %q, got %d %s", tc.name, tc.detail, status, data)
		}
	}

	return TestResult{Name: testName, Passed: true, Message: fmt.Sprintf("%d malformed bodies rejected", len(cases))}
}

// TestRepeatSubmissionRefused tests that an identical battle posted twice in
// quick succession is refused. Requires antispam to be enabled on the server.
func TestRepeatSubmissionRefused(serverAddr string) TestResult {
	const testName = "Repeat Submission Refused"

	ctx, cancel := context.WithTimeout(context.Background(), scenarioTimeout)
	defer cancel()

	client := newClient("repeat", serverAddr)
	defer client.Close()

	scenario := uniqueName("repeat")

	logAction(testName, "Submitting a battle...")
	if _, err := client.Simulate(ctx, referencePlayer(), referenceEnemy(), scenario); err != nil {
		return fail(testName, "First submission failed: %v", err)
	}

	logAction(testName, "Submitting the same battle again...")
	_, err := client.Simulate(ctx, referencePlayer(), referenceEnemy(), scenario)

	var apiErr *testclient.APIError
	ok := errors.As(err, &apiErr) && apiErr.Status == http.StatusTooManyRequests
	logResult(testName, ok, fmt.Sprintf("second submission: %v", err))
	if !ok {
		return fail(testName, "Expected 429 for a repeated battle, got %v", err)
	}

	return TestResult{Name: testName, Passed: true, Message: "Repeated battle refused: " + apiErr.Detail}
}

// =============================================================================
// Group 3: History
// =============================================================================

// TestHistoryContainsBattle tests that a new battle is the newest in history
func TestHistoryContainsBattle(serverAddr string) TestResult {
	const testName = "History Contains Battle"

	ctx, cancel := context.WithTimeout(context.Background(), scenarioTimeout)
	defer cancel()

	client := newClient("history", serverAddr)
	defer client.Close()

	scenario := uniqueName("history")
	logAction(testName, fmt.Sprintf("Submitting battle tagged %q...", scenario))
	result, err := client.Simulate(ctx, referencePlayer(), referenceEnemy(), scenario)
	if err != nil {
		return fail(testName, "Simulation failed: %v", err)
	}

	logAction(testName, "Fetching history...")
	battles, err := client.History(ctx, 0)
	if err != nil {
		return fail(testName, "History request failed: %v", err)
	}

	found := false
	for _, b := range battles {
		if b.BattleID == result.BattleID {
			found = b.Scenario == scenario
			break
		}
	}
	logResult(testName, found, fmt.Sprintf("%d battles returned", len(battles)))
	if !found {
		return fail(testName, "Battle %s with scenario %q not found in history", result.BattleID, scenario)
	}

	return TestResult{Name: testName, Passed: true, Message: fmt.Sprintf("Battle %s listed in history", result.BattleID)}
}

// TestHistoryLimit tests the limit query parameter
func TestHistoryLimit(serverAddr string) TestResult {
	const testName = "History Limit"

	ctx, cancel := context.WithTimeout(context.Background(), scenarioTimeout)
	defer cancel()

	client := newClient("history-limit", serverAddr)
	defer client.Close()

	for i := range 2 {
		player := referencePlayer()
		player.Composition[units.Infantry] += i
		if _, err := client.Simulate(ctx, player, referenceEnemy(), uniqueName("limit")); err != nil {
			return fail(testName, "Simulation failed: %v", err)
		}
	}

	logAction(testName, "Fetching history with limit=1...")
	battles, err := client.History(ctx, 1)
	if err != nil {
		return fail(testName, "History request failed: %v", err)
	}
	logResult(testName, len(battles) == 1, fmt.Sprintf("%d battles returned", len(battles)))
	if len(battles) != 1 {
		return fail(testName, "Expected 1 battle, got %d", len(battles))
	}

	logAction(testName, "Fetching history with limit=abc...")
	status, _, err := client.Do(ctx, http.MethodGet, "/api/battle/history?limit=abc", nil)
	if err != nil {
		return fail(testName, "Request failed: %v", err)
	}
	if status != http.StatusUnprocessableEntity {
		return fail(testName, "Expected 422 for a non-numeric limit, got %d", status)
	}

	return TestResult{Name: testName, Passed: true, Message: "History honors limit"}
}

// TestGetBattle tests fetching a stored battle by ID
func TestGetBattle(serverAddr string) TestResult {
	const testName = "Get Battle"

	ctx, cancel := context.WithTimeout(context.Background(), scenarioTimeout)
	defer cancel()

	client := newClient("get-battle", serverAddr)
	defer client.Close()

	player := referencePlayer()
	player.Hero.Name = "Isolde"
	result, err := client.Simulate(ctx, player, referenceEnemy(), uniqueName("get"))
	if err != nil {
		return fail(testName, "Simulation failed: %v", err)
	}

	logAction(testName, "Fetching battle "+result.BattleID+"...")
	rec, err := client.GetBattle(ctx, result.BattleID)
	if err != nil {
		return fail(testName, "GetBattle failed: %v", err)
	}

	ok := rec.Result.WinProbability == result.WinProbability &&
		rec.PlayerArmy.Hero != nil && rec.PlayerArmy.Hero.Name == "Isolde"
	logResult(testName, ok, fmt.Sprintf("stored win_probability=%v", rec.Result.WinProbability))
	if !ok {
		return fail(testName, "Stored battle does not match the submission")
	}

	return TestResult{Name: testName, Passed: true, Message: "Stored battle matches the submission"}
}

// TestGetUnknownBattle tests that an unknown battle ID returns 404
func TestGetUnknownBattle(serverAddr string) TestResult {
	const testName = "Get Unknown Battle"

	ctx, cancel := context.WithTimeout(context.Background(), scenarioTimeout)
	defer cancel()

	client := newClient("get-unknown", serverAddr)
	defer client.Close()

	logAction(testName, "Fetching a battle that does not exist...")
	_, err := client.GetBattle(ctx, uniqueName("missing"))

	var apiErr *testclient.APIError
	ok := errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
	logResult(testName, ok, fmt.Sprintf("error: %v", err))
	if !ok {
		return fail(testName, "Expected 404, got %v", err)
	}

	return TestResult{Name: testName, Passed: true, Message: "Unknown battle returned 404"}
}

// =============================================================================
// Group 4: Optimizer
// =============================================================================

// TestOptimizeCounters tests a suggestion against a mixed enemy
func TestOptimizeCounters(serverAddr string) TestResult {
	const testName = "Optimize Counters"

	ctx, cancel := context.WithTimeout(context.Background(), scenarioTimeout)
	defer cancel()

	client := newClient("optimize", serverAddr)
	defer client.Close()

	enemy := units.NewComposition(500, 300, 200, 0)
	logAction(testName, "Optimizing 1000 troops against 500/300/200/0...")
	opt, err := client.Optimize(ctx, 1000, enemy)
	if err != nil {
		return fail(testName, "Optimize failed: %v", err)
	}

	total := opt.Composition.Total()
	logResult(testName, total <= 1000, fmt.Sprintf("composition=%v total=%d", opt.Composition, total))
	if total > 1000 {
		return fail(testName, "Suggestion uses %d troops, more than the 1000 available", total)
	}
	if opt.Countered.InfantryCounters != 300 || opt.Countered.RangedCounters != 200 || opt.Countered.CavalryCounters != 500 {
		return fail(testName, "Unexpected countered counts %+v", opt.Countered)
	}

	return TestResult{Name: testName, Passed: true, Message: fmt.Sprintf("Suggested %v", opt.Composition)}
}

// TestOptimizeBalanced tests the balanced suggestion for an empty enemy
func TestOptimizeBalanced(serverAddr string) TestResult {
	const testName = "Optimize Balanced"

	ctx, cancel := context.WithTimeout(context.Background(), scenarioTimeout)
	defer cancel()

	client := newClient("optimize-balanced", serverAddr)
	defer client.Close()

	logAction(testName, "Optimizing 1000 troops against no enemy...")
	opt, err := client.Optimize(ctx, 1000, units.Composition{})
	if err != nil {
		return fail(testName, "Optimize failed: %v", err)
	}

	want := units.NewComposition(300, 300, 300, 100)
	logResult(testName, opt.Composition == want, fmt.Sprintf("composition=%v", opt.Composition))
	if opt.Composition != want {
		return fail(testName, "Expected %v, got %v", want, opt.Composition)
	}

	return TestResult{Name: testName, Passed: true, Message: "Balanced 30/30/30/10 split"}
}

// TestOptimizeMissingTotal tests that total_troops is required
func TestOptimizeMissingTotal(serverAddr string) TestResult {
	const testName = "Optimize Missing Total"

	ctx, cancel := context.WithTimeout(context.Background(), scenarioTimeout)
	defer cancel()

	client := newClient("optimize-missing", serverAddr)
	defer client.Close()

	logAction(testName, "Optimizing without total_troops...")
	status, data, err := client.Do(ctx, http.MethodGet, "/api/army/optimize?enemy_infantry=5", nil)
	if err != nil {
		return fail(testName, "Request failed: %v", err)
	}

	logResult(testName, status == http.StatusUnprocessableEntity, fmt.Sprintf("status=%d body=%s", status, data))
	if status != http.StatusUnprocessableEntity {
		return fail(testName, "Expected 422, got %d", status)
	}

	return TestResult{Name: testName, Passed: true, Message: "Missing total_troops rejected with 422"}
}

// =============================================================================
// Group 5: Live Feed
// =============================================================================

// TestFeedAnnouncesBattle tests that a feed subscriber sees another client's battle
func TestFeedAnnouncesBattle(serverAddr string) TestResult {
	const testName = "Feed Announces Battle"

	ctx, cancel := context.WithTimeout(context.Background(), scenarioTimeout)
	defer cancel()

	watcher := newClient("watcher", serverAddr)
	defer watcher.Close()

	logAction(testName, "Watcher subscribing to the feed...")
	if err := watcher.SubscribeFeed(ctx); err != nil {
		return fail(testName, "Subscribe failed: %v", err)
	}
	time.Sleep(200 * time.Millisecond)

	submitter := newClient("submitter", serverAddr)
	defer submitter.Close()

	scenario := uniqueName("feed")
	logAction(testName, "Submitter posting a battle...")
	result, err := submitter.Simulate(ctx, referencePlayer(), referenceEnemy(), scenario)
	if err != nil {
		return fail(testName, "Simulation failed: %v", err)
	}

	msg, found := watcher.WaitForBattle(result.BattleID, 2*time.Second)
	logResult(testName, found, fmt.Sprintf("%d feed messages received", len(watcher.GetMessages())))
	if !found {
		return fail(testName, "Battle %s never appeared on the feed", result.BattleID)
	}
	if msg.Type != "battle" || msg.Data.Scenario != scenario {
		return fail(testName, "Unexpected feed message %+v", msg)
	}

	return TestResult{Name: testName, Passed: true, Message: "Feed delivered battle " + result.BattleID}
}
