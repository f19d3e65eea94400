// Package report turns orchestration outcomes into the text posted back to
// the requester. It performs no I/O.
package report

import (
	"errors"
	"fmt"
	"strings"

	"slackadder/pkg/invite"
	"slackadder/pkg/resolver"
)

// Class groups entries in the report. Sections always render in this order.
type Class int

const (
	ClassSucceeded Class = iota
	ClassSkipped
	ClassFailedPermanent
	ClassFailedExhausted
	ClassIncomplete
	ClassUnresolved
)

var classTitles = map[Class]string{
	ClassSucceeded:       "Invited",
	ClassSkipped:         "Already a member",
	ClassFailedPermanent: "Failed",
	ClassFailedExhausted: "Gave up after retries",
	ClassIncomplete:      "Not finished (stopped)",
	ClassUnresolved:      "Could not resolve",
}

// String returns the section title.
func (c Class) String() string {
	return classTitles[c]
}

// Kind distinguishes a run summary from the single-entry reports.
type Kind int

const (
	KindRun Kind = iota
	KindNothingToDo
	KindPermissionDenied
	KindNotice
)

// Entry is one line item.
type Entry struct {
	Class    Class
	Channel  string
	Code     string
	Guidance string
	Text     string
}

// Section holds the entries of one class, in resolver order.
type Section struct {
	Class   Class
	Entries []Entry
}

// Report is a structured, ordered reply.
type Report struct {
	Kind     Kind
	Target   string
	Message  string
	Sections []Section
}

// Summarize builds a report from outcomes and unresolved tokens. Outcomes
// must be in resolver order; that order is kept inside each section.
func Summarize(outcomes []invite.Outcome, unresolved []resolver.UnresolvedToken) *Report {
	if len(outcomes) == 0 {
		return NothingToDo(unresolved)
	}

	buckets := make(map[Class][]Entry)
	for _, o := range outcomes {
		e := classify(o)
		buckets[e.Class] = append(buckets[e.Class], e)
	}
	for _, u := range unresolved {
		buckets[ClassUnresolved] = append(buckets[ClassUnresolved], unresolvedEntry(u))
	}

	r := &Report{Kind: KindRun}
	for c := ClassSucceeded; c <= ClassUnresolved; c++ {
		if len(buckets[c]) > 0 {
			r.Sections = append(r.Sections, Section{Class: c, Entries: buckets[c]})
		}
	}
	return r
}

// SummarizeRun is Summarize with the run's target recorded.
func SummarizeRun(run *invite.Run, unresolved []resolver.UnresolvedToken) *Report {
	if run == nil {
		return NothingToDo(unresolved)
	}
	r := Summarize(run.Outcomes, unresolved)
	r.Target = run.Target
	return r
}

// NothingToDo reports that no channel resolved. Unresolved tokens are still
// listed so the requester can fix them.
func NothingToDo(unresolved []resolver.UnresolvedToken) *Report {
	r := &Report{Kind: KindNothingToDo, Message: "Nothing to do: no channels resolved."}
	if len(unresolved) > 0 {
		sec := Section{Class: ClassUnresolved}
		for _, u := range unresolved {
			sec.Entries = append(sec.Entries, unresolvedEntry(u))
		}
		r.Sections = []Section{sec}
	}
	return r
}

// PermissionDenied is the single-entry reply for a refused requester.
func PermissionDenied(reason string) *Report {
	if strings.TrimSpace(reason) == "" {
		reason = "Sorry, you're not authorized to use SlackAdder."
	}
	return &Report{Kind: KindPermissionDenied, Message: reason}
}

// Notice wraps free-form lines, such as usage help or the group list.
func Notice(lines ...string) *Report {
	return &Report{Kind: KindNotice, Message: strings.Join(lines, "\n")}
}

// Section returns the section for class, if present.
func (r *Report) Section(class Class) (Section, bool) {
	for _, s := range r.Sections {
		if s.Class == class {
			return s, true
		}
	}
	return Section{}, false
}

// Count returns the number of entries in class.
func (r *Report) Count(class Class) int {
	s, _ := r.Section(class)
	return len(s.Entries)
}

// Failed reports whether any channel did not end up with the target in it.
func (r *Report) Failed() bool {
	return r.Count(ClassFailedPermanent)+r.Count(ClassFailedExhausted)+r.Count(ClassIncomplete) > 0
}

// Lines renders the report.
func (r *Report) Lines() []string {
	var lines []string
	if r.Message != "" {
		lines = append(lines, strings.Split(r.Message, "\n")...)
	}
	if r.Kind == KindRun {
		lines = append(lines, r.headline())
	}
	for _, s := range r.Sections {
		lines = append(lines, fmt.Sprintf("*%s* (%d)", s.Class, len(s.Entries)))
		for _, e := range s.Entries {
			lines = append(lines, e.Text)
		}
	}
	return lines
}

// String renders the report as one block of text.
func (r *Report) String() string {
	return strings.Join(r.Lines(), "\n")
}

func (r *Report) headline() string {
	total := 0
	for _, s := range r.Sections {
		if s.Class != ClassUnresolved {
			total += len(s.Entries)
		}
	}
	head := fmt.Sprintf("%d of %d channels done", r.Count(ClassSucceeded)+r.Count(ClassSkipped), total)
	if r.Target != "" {
		head = fmt.Sprintf("<@%s>: %s", r.Target, head)
	}
	return head
}

func classify(o invite.Outcome) Entry {
	ch := o.Channel.ID
	e := Entry{Channel: ch, Code: invite.CodeOf(o.Err)}
	joinSkipped := o.JoinStage == invite.StageJoinSkipped

	switch {
	case o.Stage == invite.StageInvited:
		e.Class = ClassSucceeded
		e.Text = fmt.Sprintf("✅ Invited to <#%s>", ch)
		return e

	case o.Aborted() || o.Stage == invite.StagePending:
		e.Class = ClassIncomplete
		e.Code = ""
		switch {
		case o.Stage != invite.StageJoined && o.Stage != invite.StageJoinSkipped:
			if o.JoinAttempts > 0 {
				e.Text = fmt.Sprintf("⏸️ <#%s>: join attempted, stopped before completion", ch)
			} else {
				e.Text = fmt.Sprintf("⏸️ <#%s>: not started", ch)
			}
		case o.InviteAttempts > 0:
			e.Text = fmt.Sprintf("⏸️ <#%s>: joined, invite attempted, stopped before completion", ch)
		default:
			e.Text = fmt.Sprintf("⏸️ <#%s>: joined, but the invite was not sent", ch)
		}
		return e

	case o.Stage == invite.StageInviteFailed && e.Code == invite.CodeAlreadyInChannel:
		e.Class = ClassSkipped
		e.Text = fmt.Sprintf("⚠️ Already in <#%s>", ch)
		return e
	}

	step := "invite"
	if o.Stage == invite.StageJoinFailed {
		step = "join"
	}
	e.Guidance = Guidance(e.Code, joinSkipped)

	var exhausted *invite.RetriesExhaustedError
	if errors.As(o.Err, &exhausted) {
		e.Class = ClassFailedExhausted
		e.Text = fmt.Sprintf("⏳ <#%s>: gave up on %s after %d attempts (%s)", ch, step, exhausted.Attempts, e.Code)
	} else {
		e.Class = ClassFailedPermanent
		if step == "join" {
			e.Text = fmt.Sprintf("❌ <#%s>: failed to join channel (%s)", ch, e.Code)
		} else {
			e.Text = fmt.Sprintf("❌ <#%s>: %s", ch, e.Code)
		}
	}
	if e.Guidance != "" {
		e.Text += ". " + e.Guidance
	}
	return e
}

func unresolvedEntry(u resolver.UnresolvedToken) Entry {
	text := fmt.Sprintf("❓ `%s`: %s", u.Token, u.Reason)
	if u.Group != "" {
		text = fmt.Sprintf("❓ `%s` in group `%s`: %s", u.Token, u.Group, u.Reason)
	}
	return Entry{Class: ClassUnresolved, Channel: u.Token, Text: text}
}
