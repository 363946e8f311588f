// Package review bridges to an external review agent. The agent is an
// opaque subprocess; the bridge assembles the prompt, enforces a deadline,
// parses the verdict, and records a receipt under the workspace.
package review

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/tusk-dev/tusk/internal/storage"
	"github.com/tusk-dev/tusk/internal/store"
	"github.com/tusk-dev/tusk/internal/workspace"
)

// Review types.
const (
	TypeImpl = "impl_review"
	TypePlan = "plan_review"
)

// Verdicts, parsed from the terminal tag of the review text.
const (
	VerdictShip         = "SHIP"
	VerdictNeedsWork    = "NEEDS_WORK"
	VerdictMajorRethink = "MAJOR_RETHINK"
)

// Receipt is the persisted record of one agent review.
type Receipt struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Subject   string `json:"subject"`
	BaseRev   string `json:"base_rev,omitempty"`
	Verdict   string `json:"verdict"`
	SessionID string `json:"session_id,omitempty"`
	CreatedAt string `json:"created_at"`
	Review    string `json:"review"`
}

// ReceiptPath returns where the receipt for (subject, type) lives. One
// receipt per subject and type; a rerun overwrites it, carrying the prior
// session id forward.
func ReceiptPath(ws *workspace.Workspace, reviewType, subject string) string {
	return filepath.Join(ws.ReviewsDir(), fmt.Sprintf("%s.%s.json", subject, reviewType))
}

// LoadReceipt reads a prior receipt. A missing file returns (nil, nil);
// unreadable or malformed receipts are reported.
func LoadReceipt(ws *workspace.Workspace, reviewType, subject string) (*Receipt, error) {
	var r Receipt
	err := storage.ReadJSON(ReceiptPath(ws, reviewType, subject), &r)
	if err != nil {
		if storage.IsMissing(err) {
			return nil, nil
		}
		return nil, err
	}
	return &r, nil
}

// SaveReceipt persists the receipt atomically, filling in id and timestamp.
func SaveReceipt(ws *workspace.Workspace, r *Receipt) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt == "" {
		r.CreatedAt = store.NowUTC()
	}
	return storage.WriteJSON(ReceiptPath(ws, r.Type, r.Subject), r)
}

var verdictTag = regexp.MustCompile(`<verdict>\s*(SHIP|NEEDS_WORK|MAJOR_RETHINK)\s*</verdict>`)

// ParseVerdict extracts the verdict from the terminal <verdict> tag of the
// review text. When the tag appears more than once the last one wins.
func ParseVerdict(text string) (string, error) {
	matches := verdictTag.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return "", fmt.Errorf("%w: %s", ErrNoVerdict, snippet(text))
	}
	return matches[len(matches)-1][1], nil
}

func snippet(text string) string {
	text = strings.TrimSpace(text)
	if len(text) > 80 {
		return text[:80] + "..."
	}
	return text
}
