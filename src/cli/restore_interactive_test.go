package cli_test

import (
	"strings"
	"testing"

	"restic-backup-service/src/cli"
	"restic-backup-service/src/interactive"
)

func TestRestore_CancelAtHostPromptExitsCleanly(t *testing.T) {
	f := setup(t, "0.17.3")
	sel := interactive.NewScripted(interactive.Answer{Cancel: true})
	t.Cleanup(cli.SetSelectorForTest(sel))

	out, _, err := run(t, "", "restore")
	if err != nil {
		t.Fatalf("cancel should not be an error, got %v", err)
	}
	if !strings.Contains(out, "Restore cancelled") {
		t.Fatalf("expected cancel notice, got %q", out)
	}
	if len(f.engine.restores) != 0 {
		t.Fatalf("expected no restores, got %v", f.engine.restores)
	}
	if len(sel.Asked) != 1 || sel.Asked[0] != "Select host to restore from" {
		t.Fatalf("unexpected prompts %v", sel.Asked)
	}
}

func TestRestore_InteractiveSelection(t *testing.T) {
	f := setup(t, "0.17.3")
	sel := interactive.NewScripted(
		interactive.Answer{Index: 1}, // web01 (hosts are sorted)
		interactive.Answer{Index: 0}, // all repositories
		interactive.Answer{Index: 0}, // newest window
		interactive.Answer{Index: 2}, // leave in staging
	)
	t.Cleanup(cli.SetSelectorForTest(sel))

	out, _, err := run(t, "", "restore")
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if len(f.engine.restores) != 1 {
		t.Fatalf("expected one restore, got %v", f.engine.restores)
	}
	if !strings.Contains(out, "full success") {
		t.Fatalf("unexpected output %q", out)
	}
	if sel.Remaining() != 0 {
		t.Fatalf("%d scripted answers left; prompts were %v", sel.Remaining(), sel.Asked)
	}
}
