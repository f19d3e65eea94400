package report

import (
	"strings"
	"testing"

	"slackadder/pkg/invite"
	"slackadder/pkg/resolver"
)

func outcome(i int, id string, stage invite.Stage, err error) invite.Outcome {
	return invite.Outcome{
		Index:     i,
		Channel:   resolver.ResolvedChannel{ID: id},
		Stage:     stage,
		JoinStage: invite.StageJoined,
		Attempts:  1,
		Err:       err,
	}
}

func apiErr(code string, kind invite.Kind) *invite.APIError {
	return &invite.APIError{Code: code, Kind: kind}
}

func TestSummarizeSectionsInFixedOrder(t *testing.T) {
	skippedJoin := outcome(4, "G5", invite.StageInviteFailed, apiErr(invite.CodeCantInvite, invite.KindPermanent))
	skippedJoin.JoinStage = invite.StageJoinSkipped

	outcomes := []invite.Outcome{
		outcome(0, "C1", invite.StageJoinFailed, &invite.RetriesExhaustedError{Attempts: 5, Last: apiErr(invite.CodeRateLimited, invite.KindThrottled)}),
		outcome(1, "C2", invite.StageInvited, nil),
		outcome(2, "C3", invite.StageInviteFailed, apiErr(invite.CodeAlreadyInChannel, invite.KindPermanent)),
		outcome(3, "C4", invite.StageInviteFailed, apiErr(invite.CodeMissingScope, invite.KindPermanent)),
		skippedJoin,
		outcome(5, "C6", invite.StageJoined, invite.ErrAborted),
		outcome(6, "C7", invite.StageInvited, nil),
		outcome(7, "C8", invite.StagePending, invite.ErrAborted),
	}
	unresolved := []resolver.UnresolvedToken{{Token: "nope", Reason: resolver.ReasonUnknownGroup}}

	r := Summarize(outcomes, unresolved)

	wantOrder := []Class{ClassSucceeded, ClassSkipped, ClassFailedPermanent, ClassFailedExhausted, ClassIncomplete, ClassUnresolved}
	if len(r.Sections) != len(wantOrder) {
		t.Fatalf("sections = %+v", r.Sections)
	}
	for i, c := range wantOrder {
		if r.Sections[i].Class != c {
			t.Fatalf("section %d = %v, want %v", i, r.Sections[i].Class, c)
		}
	}

	succeeded, _ := r.Section(ClassSucceeded)
	if succeeded.Entries[0].Channel != "C2" || succeeded.Entries[1].Channel != "C7" {
		t.Fatalf("succeeded entries lost resolver order: %+v", succeeded.Entries)
	}

	failed, _ := r.Section(ClassFailedPermanent)
	if len(failed.Entries) != 2 {
		t.Fatalf("failed entries = %+v", failed.Entries)
	}
	if !strings.Contains(failed.Entries[0].Text, "reinstall") {
		t.Fatalf("missing_scope should carry reinstall guidance: %q", failed.Entries[0].Text)
	}
	if failed.Entries[1].Guidance != privateChannelGuidance {
		t.Fatalf("cant_invite after skipped join guidance = %q", failed.Entries[1].Guidance)
	}

	exhausted, _ := r.Section(ClassFailedExhausted)
	if !strings.Contains(exhausted.Entries[0].Text, "after 5 attempts") {
		t.Fatalf("exhausted entry = %q", exhausted.Entries[0].Text)
	}

	if r.Count(ClassIncomplete) != 2 || !r.Failed() {
		t.Fatalf("incomplete entries missing: %+v", r.Sections)
	}
}

func TestSummarizeStoppedChannelsShowProgress(t *testing.T) {
	untouched := outcome(0, "C1", invite.StagePending, invite.ErrAborted)

	triedJoin := outcome(1, "C2", invite.StagePending, invite.ErrAborted)
	triedJoin.JoinAttempts = 1

	joined := outcome(2, "C3", invite.StageJoined, invite.ErrAborted)
	joined.JoinAttempts = 1

	triedInvite := outcome(3, "C4", invite.StageJoined, invite.ErrAborted)
	triedInvite.JoinAttempts = 1
	triedInvite.InviteAttempts = 2

	r := Summarize([]invite.Outcome{untouched, triedJoin, joined, triedInvite}, nil)

	section, ok := r.Section(ClassIncomplete)
	if !ok || len(section.Entries) != 4 {
		t.Fatalf("incomplete section = %+v", section)
	}
	want := []string{
		"⏸️ <#C1>: not started",
		"⏸️ <#C2>: join attempted, stopped before completion",
		"⏸️ <#C3>: joined, but the invite was not sent",
		"⏸️ <#C4>: joined, invite attempted, stopped before completion",
	}
	for i, w := range want {
		if section.Entries[i].Text != w {
			t.Fatalf("entry %d = %q, want %q", i, section.Entries[i].Text, w)
		}
	}
}

func TestSummarizeEmptyIsNothingToDo(t *testing.T) {
	r := Summarize(nil, []resolver.UnresolvedToken{{Token: "ghost", Reason: resolver.ReasonEmptyGroup}})
	if r.Kind != KindNothingToDo {
		t.Fatalf("kind = %v", r.Kind)
	}
	lines := r.Lines()
	if !strings.HasPrefix(lines[0], "Nothing to do") {
		t.Fatalf("lines = %v", lines)
	}
	if r.Count(ClassUnresolved) != 1 {
		t.Fatalf("unresolved tokens should still be listed")
	}
}

func TestPermissionDeniedIsSingleEntry(t *testing.T) {
	r := PermissionDenied("")
	lines := r.Lines()
	if r.Kind != KindPermissionDenied || len(lines) != 1 {
		t.Fatalf("unexpected report: %+v", lines)
	}
}

func TestGuidance(t *testing.T) {
	tests := []struct {
		code        string
		joinSkipped bool
		want        string
	}{
		{invite.CodeCantInvite, true, privateChannelGuidance},
		{invite.CodeNotInChannel, false, privateChannelGuidance},
		{invite.CodeCantInvite, false, guidanceByCode[invite.CodeCantInvite]},
		{"something_new", false, ""},
	}
	for _, tt := range tests {
		if got := Guidance(tt.code, tt.joinSkipped); got != tt.want {
			t.Fatalf("Guidance(%q, %v) = %q, want %q", tt.code, tt.joinSkipped, got, tt.want)
		}
	}
}

func TestSummarizeRunHeadline(t *testing.T) {
	run := &invite.Run{Target: "U9", Outcomes: []invite.Outcome{outcome(0, "C1", invite.StageInvited, nil)}}
	lines := SummarizeRun(run, nil).Lines()
	if lines[0] != "<@U9>: 1 of 1 channels done" {
		t.Fatalf("headline = %q", lines[0])
	}
}
