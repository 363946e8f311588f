package review

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tusk-dev/tusk/internal/workspace"
)

// Environment overrides for the agent subprocess.
const (
	EnvTimeout = "TUSK_REVIEW_TIMEOUT" // integer seconds
	EnvModel   = "TUSK_MODEL"
)

// DefaultTimeout bounds one agent invocation.
const DefaultTimeout = 10 * time.Minute

// Runner invokes the external review agent and records receipts.
type Runner struct {
	WS      *workspace.Workspace
	Command []string // agent argv; the prompt is written to stdin
	Model   string
	Timeout time.Duration
}

// NewRunner builds a runner from configured values, applying environment
// overrides for timeout and model.
func NewRunner(ws *workspace.Workspace, command []string, model string, timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if raw := os.Getenv(EnvTimeout); raw != "" {
		if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
			timeout = time.Duration(secs) * time.Second
		}
	}
	if m := os.Getenv(EnvModel); m != "" {
		model = m
	}
	return &Runner{WS: ws, Command: command, Model: model, Timeout: timeout}
}

// Request describes one review to run.
type Request struct {
	Type    string // TypeImpl or TypePlan
	Subject string // epic or task id
	BaseRev string // base revision, implementation reviews only
	Prompt  string // assembled spec text, context hints, diff summary
}

// Run invokes the agent, parses the verdict, and persists the receipt.
// A prior receipt's session id is offered for continuity; resumption
// failure falls back silently to a new session.
func (r *Runner) Run(ctx context.Context, req Request) (*Receipt, error) {
	session := ""
	if prior, err := LoadReceipt(r.WS, req.Type, req.Subject); err == nil && prior != nil {
		session = prior.SessionID
	}

	text, newSession, err := r.invoke(ctx, req.Prompt, session)
	if err != nil && session != "" && errors.Is(err, ErrToolFailed) {
		log.Debug().Str("subject", req.Subject).Msg("session resume failed, starting fresh")
		text, newSession, err = r.invoke(ctx, req.Prompt, "")
	}
	if err != nil {
		return nil, err
	}

	verdict, err := ParseVerdict(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrToolFailed, err)
	}

	receipt := &Receipt{
		Type:      req.Type,
		Subject:   req.Subject,
		BaseRev:   req.BaseRev,
		Verdict:   verdict,
		SessionID: newSession,
		Review:    text,
	}
	if err := SaveReceipt(r.WS, receipt); err != nil {
		return nil, err
	}
	return receipt, nil
}

// agentOutput is the structured shape agents may emit on stdout. Plain-text
// output is accepted too; it just carries no session id.
type agentOutput struct {
	Result    string `json:"result"`
	SessionID string `json:"session_id"`
}

// invoke runs one agent subprocess and returns (review text, session id).
func (r *Runner) invoke(ctx context.Context, prompt, session string) (string, string, error) {
	if len(r.Command) == 0 {
		return "", "", fmt.Errorf("%w: no review command configured", ErrToolMissing)
	}

	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	args := append([]string{}, r.Command[1:]...)
	if r.Model != "" {
		args = append(args, "--model", r.Model)
	}
	if session != "" {
		args = append(args, "--resume", session)
	}

	cmd := exec.CommandContext(ctx, r.Command[0], args...)
	cmd.Stdin = strings.NewReader(prompt)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	log.Debug().Dur("elapsed", time.Since(start)).Err(err).Msg("review agent finished")

	switch {
	case ctx.Err() == context.DeadlineExceeded:
		return "", "", fmt.Errorf("%w after %s", ErrToolTimeout, r.Timeout)
	case errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist):
		return "", "", fmt.Errorf("%w: %s", ErrToolMissing, r.Command[0])
	case err != nil:
		return "", "", fmt.Errorf("%w: %v: %s", ErrToolFailed, err, strings.TrimSpace(stderr.String()))
	}

	text, newSession := parseAgentOutput(stdout.Bytes())
	return text, newSession, nil
}

// parseAgentOutput accepts either the structured JSON shape or raw text.
// Malformed structured fields devolve to plain text with no session.
func parseAgentOutput(out []byte) (string, string) {
	var parsed agentOutput
	if err := json.Unmarshal(out, &parsed); err == nil && parsed.Result != "" {
		return parsed.Result, parsed.SessionID
	}
	return string(out), ""
}
