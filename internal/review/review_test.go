package review

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tusk-dev/tusk/internal/workspace"
)

func newWS(t *testing.T) *workspace.Workspace {
	t.Helper()
	ws, err := workspace.Init(t.TempDir())
	require.NoError(t, err)
	return ws
}

// fakeAgent writes a shell script standing in for the review agent.
func fakeAgent(t *testing.T, script string) []string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agent.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755))
	return []string{"/bin/sh", path}
}

func TestParseVerdict(t *testing.T) {
	cases := []struct {
		text    string
		verdict string
		ok      bool
	}{
		{"looks good\n<verdict>SHIP</verdict>", VerdictShip, true},
		{"<verdict> NEEDS_WORK </verdict>", VerdictNeedsWork, true},
		{"<verdict>SHIP</verdict>\nchanged my mind\n<verdict>MAJOR_RETHINK</verdict>", VerdictMajorRethink, true},
		{"no tag at all", "", false},
		{"<verdict>MAYBE</verdict>", "", false},
	}
	for _, tc := range cases {
		verdict, err := ParseVerdict(tc.text)
		if tc.ok {
			require.NoError(t, err, tc.text)
			assert.Equal(t, tc.verdict, verdict)
		} else {
			assert.ErrorIs(t, err, ErrNoVerdict, tc.text)
		}
	}
}

func TestRun_RecordsReceipt(t *testing.T) {
	ws := newWS(t)
	// printf keeps the \n escape literal for the JSON decoder; echo on
	// some shells would expand it and break the payload.
	cmd := fakeAgent(t, `printf '%s\n' '{"result":"solid work\n<verdict>SHIP</verdict>","session_id":"sess-1"}'`)
	r := NewRunner(ws, cmd, "", time.Minute)

	receipt, err := r.Run(context.Background(), Request{Type: TypePlan, Subject: "E-1", Prompt: "review this"})
	require.NoError(t, err)
	assert.Equal(t, VerdictShip, receipt.Verdict)
	assert.Equal(t, "sess-1", receipt.SessionID)
	assert.NotEmpty(t, receipt.ID)
	assert.NotEmpty(t, receipt.CreatedAt)

	// Receipt is on disk and loadable.
	loaded, err := LoadReceipt(ws, TypePlan, "E-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, receipt.ID, loaded.ID)
}

func TestRun_PlainTextOutput(t *testing.T) {
	ws := newWS(t)
	cmd := fakeAgent(t, `echo 'fine.'; echo '<verdict>NEEDS_WORK</verdict>'`)
	r := NewRunner(ws, cmd, "", time.Minute)

	receipt, err := r.Run(context.Background(), Request{Type: TypeImpl, Subject: "E-1.1", BaseRev: "abc123", Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, VerdictNeedsWork, receipt.Verdict)
	assert.Empty(t, receipt.SessionID, "plain text output carries no session")
	assert.Equal(t, "abc123", receipt.BaseRev)
}

func TestRun_ResumeFallsBackToNewSession(t *testing.T) {
	ws := newWS(t)
	require.NoError(t, SaveReceipt(ws, &Receipt{
		Type: TypePlan, Subject: "E-1", Verdict: VerdictNeedsWork, SessionID: "stale",
	}))

	// Fail whenever --resume is passed, succeed otherwise.
	cmd := fakeAgent(t, `
for arg in "$@"; do
  if [ "$arg" = "--resume" ]; then exit 1; fi
done
echo '{"result":"<verdict>SHIP</verdict>","session_id":"fresh"}'`)
	r := NewRunner(ws, cmd, "", time.Minute)

	receipt, err := r.Run(context.Background(), Request{Type: TypePlan, Subject: "E-1", Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, VerdictShip, receipt.Verdict)
	assert.Equal(t, "fresh", receipt.SessionID)
}

func TestRun_ToolFailures(t *testing.T) {
	ws := newWS(t)

	r := NewRunner(ws, []string{"/no/such/agent"}, "", time.Minute)
	_, err := r.Run(context.Background(), Request{Type: TypePlan, Subject: "E-1", Prompt: "p"})
	assert.ErrorIs(t, err, ErrToolMissing)

	r = NewRunner(ws, fakeAgent(t, "exit 7"), "", time.Minute)
	_, err = r.Run(context.Background(), Request{Type: TypePlan, Subject: "E-1", Prompt: "p"})
	assert.ErrorIs(t, err, ErrToolFailed)

	r = NewRunner(ws, fakeAgent(t, "sleep 5"), "", 50*time.Millisecond)
	_, err = r.Run(context.Background(), Request{Type: TypePlan, Subject: "E-1", Prompt: "p"})
	assert.ErrorIs(t, err, ErrToolTimeout)
}

func TestRun_MissingVerdictIsFailure(t *testing.T) {
	ws := newWS(t)
	r := NewRunner(ws, fakeAgent(t, `echo 'I have thoughts but no verdict'`), "", time.Minute)
	_, err := r.Run(context.Background(), Request{Type: TypePlan, Subject: "E-1", Prompt: "p"})
	assert.ErrorIs(t, err, ErrToolFailed)
}

func TestNewRunner_EnvOverrides(t *testing.T) {
	ws := newWS(t)
	t.Setenv(EnvTimeout, "90")
	t.Setenv(EnvModel, "fast-review")

	r := NewRunner(ws, []string{"agent"}, "default-model", 0)
	assert.Equal(t, 90*time.Second, r.Timeout)
	assert.Equal(t, "fast-review", r.Model)
}
