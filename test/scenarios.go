package test

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/lawnchairsociety/battleadvisor/internal/battle"
	"github.com/lawnchairsociety/battleadvisor/internal/testclient"
	"github.com/lawnchairsociety/battleadvisor/internal/units"
)

// uniqueCounter provides unique scenario names within a single run
var uniqueCounter uint64

// runID keeps scenario names from colliding with a previous run against the
// same server.
var runID = time.Now().Unix()

// uniqueName generates a unique scenario tag. The server refuses an identical
// battle resubmitted within its repeat cooldown, so every scenario that posts
// a battle tags it with a fresh name.
func uniqueName(base string) string {
	counter := atomic.AddUint64(&uniqueCounter, 1)
	return fmt.Sprintf("%s-%d-%d", base, runID, counter)
}

// Verbose controls whether detailed logging is shown during tests
var Verbose = false

// APIKey is sent with every request when the server has auth enabled.
var APIKey = ""

// TestResult represents the result of a test
type TestResult struct {
	Name    string
	Passed  bool
	Message string
}

// logAction logs a test action when verbose mode is enabled
func logAction(testName, action string) {
	if Verbose {
		fmt.Printf("  [%s] %s\n", testName, action)
	}
}

// logResult logs an expected vs actual result when verbose mode is enabled
func logResult(testName string, success bool, detail string) {
	if Verbose {
		status := "OK"
		if !success {
			status = "FAIL"
		}
		fmt.Printf("  [%s] %s: %s\n", testName, status, detail)
	}
}

// newClient returns a client for serverAddr carrying the configured key.
func newClient(name, serverAddr string) *testclient.TestClient {
	return testclient.NewTestClient(name, serverAddr, APIKey)
}

// fail builds a failed result.
func fail(testName, format string, args ...any) TestResult {
	return TestResult{Name: testName, Passed: false, Message: fmt.Sprintf(format, args...)}
}

// =============================================================================
// Armies
// =============================================================================

// referencePlayer and referenceEnemy are a well-known matchup: the player
// wins 62% of the time with medium confidence.
func referencePlayer() battle.Army {
	return battle.Army{
		Composition:     units.NewComposition(1000, 800, 600, 200),
		Hero:            &battle.Hero{Name: "Aldric", ArmyAttack: 15, ArmyDefense: 10, ArmyHP: 8},
		ResearchAttack:  25,
		ResearchDefense: 20,
		ResearchHP:      15,
	}
}

func referenceEnemy() battle.Army {
	return battle.Army{
		Composition:     units.NewComposition(900, 700, 500, 100),
		Hero:            &battle.Hero{Name: "Morgath", ArmyAttack: 12, ArmyDefense: 8, ArmyHP: 5},
		ResearchAttack:  20,
		ResearchDefense: 15,
		ResearchHP:      10,
	}
}

// RunAllTests runs all integration tests and returns results
func RunAllTests(serverAddr string) []TestResult {
	results := make([]TestResult, 0)

	for _, t := range getAllTests() {
		results = append(results, t.Func(serverAddr))
	}

	return results
}

// testEntry holds a test function and its name
type testEntry struct {
	Name string
	Func func(string) TestResult
}

// getAllTests returns all test entries in order
func getAllTests() []testEntry {
	return []testEntry{
		// Group 1: Service
		{"Health Check", TestHealthCheck},
		{"Unknown Route", TestUnknownRoute},

		// Group 2: Simulation
		{"Simulate Reference Battle", TestSimulateReference},
		{"Simulate Empty Armies", TestSimulateEmptyArmies},
		{"Simulate Invalid Bonus", TestSimulateInvalidBonus},
		{"Simulate Malformed Body", TestSimulateMalformedBody},
		{"Repeat Submission Refused", TestRepeatSubmissionRefused},

		// Group 3: History
		{"History Contains Battle", TestHistoryContainsBattle},
		{"History Limit", TestHistoryLimit},
		{"Get Battle", TestGetBattle},
		{"Get Unknown Battle", TestGetUnknownBattle},

		// Group 4: Optimizer
		{"Optimize Counters", TestOptimizeCounters},
		{"Optimize Balanced", TestOptimizeBalanced},
		{"Optimize Missing Total", TestOptimizeMissingTotal},

		// Group 5: Live Feed
		{"Feed Announces Battle", TestFeedAnnouncesBattle},
	}
}

// GetTestNames returns the names of all available tests
func GetTestNames() []string {
	tests := getAllTests()
	names := make([]string, len(tests))
	for i, t := range tests {
		names[i] = t.Name
	}
	return names
}

// RunFilteredTests runs only tests whose names contain the filter string (case-insensitive)
func RunFilteredTests(serverAddr string, filter string) []TestResult {
	results := make([]TestResult, 0)
	filterLower := strings.ToLower(filter)

	for _, t := range getAllTests() {
		if strings.Contains(strings.ToLower(t.Name), filterLower) {
			results = append(results, t.Func(serverAddr))
		}
	}

	return results
}

// PrintResults prints all test results in a formatted way
func PrintResults(results []TestResult) {
	passed := 0
	failed := 0

	fmt.Println("============================================================")
	fmt.Println("Integration Test Results")
	fmt.Println("============================================================")
	fmt.Println()

	for _, r := range results {
		status := "PASS"
		if !r.Passed {
			status = "FAIL"
			failed++
		} else {
			passed++
		}
		fmt.Printf("[%s] %s: %s\n", status, r.Name, r.Message)
	}

	fmt.Println()
	fmt.Println("------------------------------------------------------------")
	fmt.Printf("Total: %d | Passed: %d | Failed: %d\n", len(results), passed, failed)
	fmt.Println("------------------------------------------------------------")
}
