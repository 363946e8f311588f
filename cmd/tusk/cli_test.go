package main

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// resetFlags clears flag-bound globals so one invocation cannot leak into
// the next. Cobra keeps flag values across Execute calls.
func resetFlags() {
	jsonOutput, verbose, workDir = false, false, ""
	epicCreateTitle, epicCreateBranch, epicSetPlanFile = "", "", ""
	taskCreateEpic, taskCreateTitle, taskCreateDeps, taskCreateAcceptance = "", "", "", ""
	taskSetDescriptionFile, taskSetAcceptanceFile = "", ""
	taskStartForce, taskStartNote = false, ""
	taskDoneSummaryFile, taskDoneEvidence, taskDoneForce = "", "", false
	taskBlockReasonFile = ""
	tasksEpic, tasksStatus, readyEpic = "", "", ""
	nextEpicsFile, nextRequirePlanReview = "", false
	validateEpic, validateAll = "", false
	reviewPlanContext, reviewImplBase, reviewImplContext, reviewImplDiff = "", "", "", ""
}

// runCLI executes one command against the shared root, capturing stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()

	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	os.Stdout = w

	rootCmd.SetArgs(args)
	runErr := rootCmd.Execute()

	w.Close()
	os.Stdout = old
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	return string(out), runErr
}

// mustJSON runs a command in JSON mode and decodes the envelope.
func mustJSON(t *testing.T, args ...string) map[string]any {
	t.Helper()
	out, err := runCLI(t, append(args, "--json")...)
	if err != nil {
		t.Fatalf("command %v failed: %v\n%s", args, err, out)
	}
	var envelope map[string]any
	if err := json.Unmarshal([]byte(out), &envelope); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if envelope["success"] != true {
		t.Fatalf("expected success envelope, got:\n%s", out)
	}
	return envelope
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func setupWorkspace(t *testing.T) string {
	t.Helper()
	t.Setenv("TUSK_ACTOR", "tester")
	t.Setenv("TUSK_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))
	dir := t.TempDir()
	if _, err := runCLI(t, "init", "--dir", dir); err != nil {
		t.Fatalf("init: %v", err)
	}
	return dir
}

func TestCLI_EndToEndLifecycle(t *testing.T) {
	dir := setupWorkspace(t)

	envelope := mustJSON(t, "epic", "create", "--title", "Auth", "--branch", "feature/auth", "--dir", dir)
	epic := envelope["epic"].(map[string]any)
	if epic["id"] != "E-1" {
		t.Fatalf("epic id = %v, want E-1", epic["id"])
	}
	if epic["branch_name"] != "feature/auth" {
		t.Errorf("branch = %v", epic["branch_name"])
	}

	mustJSON(t, "task", "create", "--epic", "E-1", "--title", "schema", "--dir", dir)
	envelope = mustJSON(t, "task", "create", "--epic", "E-1", "--title", "handlers", "--deps", "E-1.1", "--dir", dir)
	task := envelope["task"].(map[string]any)
	if task["id"] != "E-1.2" {
		t.Fatalf("task id = %v, want E-1.2", task["id"])
	}

	// Dependent task cannot start before its dependency is done.
	if _, err := runCLI(t, "task", "start", "E-1.2", "--dir", dir, "--json"); err == nil {
		t.Fatal("start with unmet dependency should fail")
	}

	mustJSON(t, "task", "start", "E-1.1", "--dir", dir)
	summary := writeTemp(t, "summary.md", "Schema landed.")
	evidence := writeTemp(t, "ev.json", `{"commits":["abc123"],"tests":["suite green"]}`)
	envelope = mustJSON(t, "task", "done", "E-1.1", "--summary-file", summary, "--evidence-json", evidence, "--dir", dir)
	task = envelope["task"].(map[string]any)
	if task["status"] != "done" {
		t.Fatalf("status = %v, want done", task["status"])
	}

	mustJSON(t, "task", "start", "E-1.2", "--dir", dir)
	summary2 := writeTemp(t, "summary2.md", "Handlers done.")
	mustJSON(t, "task", "done", "E-1.2", "--summary-file", summary2, "--dir", dir)

	envelope = mustJSON(t, "epic", "close", "E-1", "--dir", dir)
	if envelope["already_closed"] != false {
		t.Errorf("already_closed = %v", envelope["already_closed"])
	}

	// Idempotent reclose.
	envelope = mustJSON(t, "epic", "close", "E-1", "--dir", dir)
	if envelope["already_closed"] != true {
		t.Errorf("reclose already_closed = %v", envelope["already_closed"])
	}

	mustJSON(t, "validate", "--all", "--dir", dir)
}

func TestCLI_CloseRejectsOpenTasks(t *testing.T) {
	dir := setupWorkspace(t)
	mustJSON(t, "epic", "create", "--title", "Auth", "--dir", dir)
	mustJSON(t, "task", "create", "--epic", "E-1", "--title", "open work", "--dir", dir)

	out, err := runCLI(t, "epic", "close", "E-1", "--dir", dir, "--json")
	if err == nil {
		t.Fatalf("close with open tasks should fail:\n%s", out)
	}
}

func TestCLI_ConfigRoundTrip(t *testing.T) {
	dir := setupWorkspace(t)

	mustJSON(t, "config", "set", "ids.prefix", "T", "--dir", dir)
	envelope := mustJSON(t, "config", "get", "ids.prefix", "--dir", dir)
	if envelope["value"] != "T" {
		t.Fatalf("value = %v, want T", envelope["value"])
	}

	// The configured prefix drives id allocation.
	created := mustJSON(t, "epic", "create", "--title", "Billing", "--dir", dir)
	epic := created["epic"].(map[string]any)
	if epic["id"] != "T-1" {
		t.Errorf("epic id = %v, want T-1", epic["id"])
	}
}

func TestCLI_QueriesAndScheduling(t *testing.T) {
	dir := setupWorkspace(t)
	mustJSON(t, "epic", "create", "--title", "Auth", "--dir", dir)
	mustJSON(t, "task", "create", "--epic", "E-1", "--title", "base", "--dir", dir)
	mustJSON(t, "task", "create", "--epic", "E-1", "--title", "top", "--deps", "E-1.1", "--dir", dir)

	envelope := mustJSON(t, "ready", "--epic", "E-1", "--dir", dir)
	ready := envelope["ready"].([]any)
	blocked := envelope["blocked"].([]any)
	if len(ready) != 1 || len(blocked) != 1 {
		t.Fatalf("ready=%d blocked=%d, want 1 and 1", len(ready), len(blocked))
	}

	envelope = mustJSON(t, "next", "--dir", dir)
	if envelope["kind"] != "ready" {
		t.Fatalf("next kind = %v, want ready", envelope["kind"])
	}
	nextTask := envelope["task"].(map[string]any)
	if nextTask["id"] != "E-1.1" {
		t.Errorf("next task = %v, want E-1.1", nextTask["id"])
	}

	envelope = mustJSON(t, "show", "E-1", "--dir", dir)
	tasks := envelope["tasks"].([]any)
	if len(tasks) != 2 {
		t.Errorf("show tasks = %d, want 2", len(tasks))
	}

	envelope = mustJSON(t, "cat", "E-1.1", "--dir", dir)
	if !strings.Contains(envelope["spec"].(string), "## Description") {
		t.Errorf("cat spec missing Description heading")
	}

	mustJSON(t, "epic", "create", "--title", "Empty", "--dir", dir)
	envelope = mustJSON(t, "epics", "--dir", dir)
	epics := envelope["epics"].([]any)
	if len(epics) != 2 {
		t.Fatalf("epics = %d, want 2", len(epics))
	}
	first := epics[0].(map[string]any)
	second := epics[1].(map[string]any)
	if first["tasks"] != float64(2) {
		t.Errorf("E-1 task count = %v, want 2", first["tasks"])
	}
	if second["tasks"] != float64(0) {
		t.Errorf("E-2 task count = %v, want 0", second["tasks"])
	}

	out, err := runCLI(t, "epics", "--dir", dir)
	if err != nil {
		t.Fatalf("epics: %v", err)
	}
	if !strings.Contains(out, "E-1") || !strings.Contains(out, "Auth") {
		t.Errorf("epics table missing row:\n%s", out)
	}
	if !strings.Contains(out, "TASKS") {
		t.Errorf("epics table missing task count column:\n%s", out)
	}
}

func TestCLI_ValidateReportsCycle(t *testing.T) {
	dir := setupWorkspace(t)
	mustJSON(t, "epic", "create", "--title", "Auth", "--dir", dir)
	for _, title := range []string{"a", "b", "c"} {
		mustJSON(t, "task", "create", "--epic", "E-1", "--title", title, "--dir", dir)
	}

	// Close the cycle behind the store's back, as a bad merge would.
	for id, dep := range map[string]string{"E-1.1": "E-1.3", "E-1.2": "E-1.1", "E-1.3": "E-1.2"} {
		path := filepath.Join(dir, ".tusk", "tasks", id+".json")
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		var record map[string]any
		if err := json.Unmarshal(data, &record); err != nil {
			t.Fatal(err)
		}
		record["depends_on"] = []string{dep}
		updated, err := json.Marshal(record)
		if err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, updated, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	out, err := runCLI(t, "validate", "--epic", "E-1", "--dir", dir)
	if err == nil {
		t.Fatalf("validate should fail on a cycle:\n%s", out)
	}
	for _, id := range []string{"E-1.1", "E-1.2", "E-1.3"} {
		if !strings.Contains(out, id) {
			t.Errorf("cycle diagnostic missing %s:\n%s", id, out)
		}
	}
}

func TestCLI_ReviewPlanUpdatesEpic(t *testing.T) {
	dir := setupWorkspace(t)
	mustJSON(t, "epic", "create", "--title", "Auth", "--dir", dir)

	agent := writeTemp(t, "agent.sh", "#!/bin/sh\nprintf '%s\\n' '{\"result\":\"good plan\\n<verdict>SHIP</verdict>\",\"session_id\":\"s1\"}'")
	t.Setenv("TUSK_REVIEW_COMMAND", "/bin/sh "+agent)

	envelope := mustJSON(t, "review", "plan", "E-1", "--dir", dir)
	receipt := envelope["receipt"].(map[string]any)
	if receipt["verdict"] != "SHIP" {
		t.Fatalf("verdict = %v, want SHIP", receipt["verdict"])
	}

	shown := mustJSON(t, "show", "E-1", "--dir", dir)
	epic := shown["epic"].(map[string]any)
	if epic["plan_review_status"] != "ship" {
		t.Errorf("plan_review_status = %v, want ship", epic["plan_review_status"])
	}
}
