// Package specdoc parses and surgically patches Markdown spec documents.
//
// A task spec carries four required H2 headings (Description, Acceptance,
// Done summary, Evidence), each exactly once. Patching one section leaves
// every other byte of the document untouched; that keeps diffs reviewable
// when multiple actors edit specs on divergent branches.
package specdoc

import (
	"errors"
	"fmt"
	"strings"
)

// Required H2 headings for task specs, in scaffold order. Epic plans have
// no required-section schema.
const (
	SectionDescription = "Description"
	SectionAcceptance  = "Acceptance"
	SectionDoneSummary = "Done summary"
	SectionEvidence    = "Evidence"
)

// RequiredSections lists the headings every task spec must contain exactly once.
var RequiredSections = []string{
	SectionDescription,
	SectionAcceptance,
	SectionDoneSummary,
	SectionEvidence,
}

// Placeholder is the body written into scaffolded sections that have no
// content yet.
const Placeholder = "_TBD_"

// ErrMissingHeading is returned when the named H2 heading is absent.
var ErrMissingHeading = errors.New("missing heading")

// DuplicateHeadingError is returned when a heading occurs more than once;
// the editor refuses to guess which occurrence to patch.
type DuplicateHeadingError struct {
	Heading string
	Count   int
}

func (e *DuplicateHeadingError) Error() string {
	return fmt.Sprintf("duplicate heading %q (%d occurrences)", e.Heading, e.Count)
}

// Doc is a parsed Markdown document split at H2 headings. The preamble
// (anything before the first H2, typically the title line) is preserved
// verbatim.
type Doc struct {
	preamble string
	sections []section
}

type section struct {
	heading string // text after "## "
	body    string // raw lines between this heading and the next H2
}

// Parse splits text into preamble and H2 sections. Reassembling an
// unmodified Doc reproduces the input byte for byte.
func Parse(text string) *Doc {
	doc := &Doc{}
	lines := strings.SplitAfter(text, "\n")

	var current *section
	var buf strings.Builder
	flush := func() {
		if current == nil {
			doc.preamble = buf.String()
		} else {
			current.body = buf.String()
			doc.sections = append(doc.sections, *current)
		}
		buf.Reset()
	}

	for _, line := range lines {
		if heading, ok := h2Heading(line); ok {
			flush()
			current = &section{heading: heading}
			continue
		}
		buf.WriteString(line)
	}
	flush()
	return doc
}

// h2Heading returns the heading text when line is an H2 ("## Title").
func h2Heading(line string) (string, bool) {
	trimmed := strings.TrimRight(line, "\n")
	rest, ok := strings.CutPrefix(trimmed, "## ")
	if !ok {
		return "", false
	}
	return strings.TrimSpace(rest), true
}

// String reassembles the document.
func (d *Doc) String() string {
	var b strings.Builder
	b.WriteString(d.preamble)
	for _, s := range d.sections {
		b.WriteString("## " + s.heading + "\n")
		b.WriteString(s.body)
	}
	return b.String()
}

func (d *Doc) find(heading string) (int, error) {
	idx := -1
	count := 0
	for i, s := range d.sections {
		if s.heading == heading {
			idx = i
			count++
		}
	}
	if count == 0 {
		return -1, fmt.Errorf("%w: %q", ErrMissingHeading, heading)
	}
	if count > 1 {
		return -1, &DuplicateHeadingError{Heading: heading, Count: count}
	}
	return idx, nil
}

// Section returns the trimmed body of the named heading.
func (d *Doc) Section(heading string) (string, error) {
	idx, err := d.find(heading)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(d.sections[idx].body), nil
}

// Patch replaces the body of the named heading with body, leaving all other
// sections byte-identical. The new body is normalized to end with a single
// blank line so adjacent headings stay separated.
func (d *Doc) Patch(heading, body string) error {
	idx, err := d.find(heading)
	if err != nil {
		return err
	}
	d.sections[idx].body = normalizeBody(body)
	return nil
}

// Append adds text to the end of the named heading's body, replacing the
// placeholder when that is all the section contains. Existing content is
// never removed.
func (d *Doc) Append(heading, text string) error {
	idx, err := d.find(heading)
	if err != nil {
		return err
	}
	existing := strings.TrimSpace(d.sections[idx].body)
	if existing == "" || existing == Placeholder {
		d.sections[idx].body = normalizeBody(text)
		return nil
	}
	d.sections[idx].body = normalizeBody(existing + "\n\n" + strings.TrimSpace(text))
	return nil
}

func normalizeBody(body string) string {
	trimmed := strings.TrimRight(strings.TrimLeft(body, "\n"), " \t\n")
	if trimmed == "" {
		return "\n"
	}
	return "\n" + trimmed + "\n\n"
}

// CheckRequired verifies that text contains every required H2 heading
// exactly once. It reports all problems, not just the first.
func CheckRequired(text string) []error {
	doc := Parse(text)
	counts := map[string]int{}
	for _, s := range doc.sections {
		counts[s.heading]++
	}
	var problems []error
	for _, heading := range RequiredSections {
		switch n := counts[heading]; {
		case n == 0:
			problems = append(problems, fmt.Errorf("%w: %q", ErrMissingHeading, heading))
		case n > 1:
			problems = append(problems, &DuplicateHeadingError{Heading: heading, Count: n})
		}
	}
	return problems
}

// NewTaskSpec scaffolds a task spec with the required sections. Empty
// description or acceptance bodies become placeholders.
func NewTaskSpec(id, title, description, acceptance string) string {
	if strings.TrimSpace(description) == "" {
		description = Placeholder
	}
	if strings.TrimSpace(acceptance) == "" {
		acceptance = Placeholder
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# %s %s\n\n", id, title)
	writeSection(&b, SectionDescription, description)
	writeSection(&b, SectionAcceptance, acceptance)
	writeSection(&b, SectionDoneSummary, Placeholder)
	writeSection(&b, SectionEvidence, Placeholder)
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// NewEpicPlan scaffolds a free-form epic plan document.
func NewEpicPlan(id, title string) string {
	return fmt.Sprintf("# %s %s\n\n%s\n", id, title, Placeholder)
}

func writeSection(b *strings.Builder, heading, body string) {
	fmt.Fprintf(b, "## %s\n\n%s\n\n", heading, strings.TrimSpace(body))
}
