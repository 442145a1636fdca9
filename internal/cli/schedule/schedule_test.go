package schedule

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/studylit/internal/cli"
	"github.com/julianstephens/studylit/internal/config"
	"github.com/julianstephens/studylit/internal/models"
	"github.com/julianstephens/studylit/internal/storage/sqlstore"
)

func setupTestContext(t *testing.T) (*cli.Context, *bytes.Buffer) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store := sqlstore.New(dbPath)
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if err := store.EnsureUser(models.User{ID: "tester", Name: "Tester"}); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	settings := models.DefaultSettings()
	settings.Timezone = "UTC"
	if err := store.SaveSettings("tester", settings); err != nil {
		t.Fatalf("failed to save settings: %v", err)
	}

	cfg := config.Defaults()
	cfg.DB = dbPath
	cfg.UserID = "tester"
	cfg.LogDir = t.TempDir()

	ctx := cli.NewContext(cfg, store)
	var out bytes.Buffer
	ctx.Out = &out
	ctx.Now = func() time.Time { return time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC) }
	ctx.Confirm = func(string) (bool, error) { return true, nil }
	return ctx, &out
}

func TestAvailabilityAddCmd_Recurring(t *testing.T) {
	ctx, out := setupTestContext(t)

	cmd := &AvailabilityAddCmd{Days: "mon,wed", Start: "18:00", End: "20:30"}
	if err := cmd.Validate(); err != nil {
		t.Fatal(err)
	}
	if err := cmd.Run(ctx); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	blocks, err := ctx.Store.GetAvailability("tester")
	if err != nil {
		t.Fatal(err)
	}
	if len(blocks) != 2 {
		t.Fatalf("expected one block per weekday, got %d", len(blocks))
	}
	for _, b := range blocks {
		if !b.Recurring || b.Start != "18:00" || b.End != "20:30" {
			t.Errorf("unexpected block: %+v", b)
		}
	}
	if !strings.Contains(out.String(), "every Monday 18:00–20:30") {
		t.Errorf("unexpected output: %s", out.String())
	}
}

func TestAvailabilityAddCmd_OneOffOvernight(t *testing.T) {
	ctx, out := setupTestContext(t)

	if err := (&AvailabilityAddCmd{Date: "2026-01-09", Start: "22:00", End: "01:00"}).Run(ctx); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	blocks, err := ctx.Store.GetAvailability("tester")
	if err != nil {
		t.Fatal(err)
	}
	if len(blocks) != 1 || blocks[0].Recurring || blocks[0].Weekday != time.Friday {
		t.Errorf("unexpected blocks: %+v", blocks)
	}
	if !strings.Contains(out.String(), "2026-01-09 22:00–01:00 (+1 day)") {
		t.Errorf("unexpected output: %s", out.String())
	}

	if err := (&AvailabilityAddCmd{Date: "09/01/2026", Start: "22:00", End: "23:00"}).Run(ctx); err == nil {
		t.Error("expected error for malformed date")
	}
}

func TestAvailabilityAddCmd_Validate(t *testing.T) {
	tests := []struct {
		name string
		cmd  AvailabilityAddCmd
	}{
		{"neither days nor date", AvailabilityAddCmd{Start: "09:00", End: "10:00"}},
		{"both days and date", AvailabilityAddCmd{Days: "mon", Date: "2026-01-05", Start: "09:00", End: "10:00"}},
		{"bad start", AvailabilityAddCmd{Days: "mon", Start: "9am", End: "10:00"}},
		{"bad end", AvailabilityAddCmd{Days: "mon", Start: "09:00", End: "25:00"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cmd.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestAvailabilityListAndDelete(t *testing.T) {
	ctx, out := setupTestContext(t)

	if err := (&AvailabilityListCmd{}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "No availability declared") {
		t.Errorf("unexpected output: %s", out.String())
	}

	if err := (&AvailabilityAddCmd{Days: "fri", Start: "09:00", End: "11:00"}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if err := (&AvailabilityAddCmd{Days: "mon", Start: "13:00", End: "15:00"}).Run(ctx); err != nil {
		t.Fatal(err)
	}

	out.Reset()
	if err := (&AvailabilityListCmd{}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	output := out.String()
	if strings.Index(output, "Monday") > strings.Index(output, "Friday") {
		t.Errorf("expected blocks in weekday order: %s", output)
	}

	blocks, _ := ctx.Store.GetAvailability("tester")
	if err := (&AvailabilityDeleteCmd{ID: blocks[0].ID}).Run(ctx); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if left, _ := ctx.Store.GetAvailability("tester"); len(left) != 1 {
		t.Errorf("expected 1 block left, got %d", len(left))
	}
	if err := (&AvailabilityDeleteCmd{ID: "missing"}).Run(ctx); err == nil {
		t.Error("expected error deleting unknown block")
	}
}

func TestCommitmentCmds(t *testing.T) {
	ctx, out := setupTestContext(t)

	cmd := &CommitmentAddCmd{Label: "Lectures", Days: "tue,thu", Start: "10:00", End: "12:00"}
	if err := cmd.Validate(); err != nil {
		t.Fatal(err)
	}
	if err := cmd.Run(ctx); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := (&CommitmentAddCmd{Label: "Gym", Start: "07:00", End: "08:00"}).Run(ctx); err != nil {
		t.Fatal(err)
	}

	out.Reset()
	if err := (&CommitmentListCmd{}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	output := out.String()
	if !strings.Contains(output, "[busy] Lectures - Tue,Thu 10:00–12:00") {
		t.Errorf("unexpected listing: %s", output)
	}
	if !strings.Contains(output, "Gym - daily") {
		t.Errorf("expected daily commitment: %s", output)
	}

	commitments, _ := ctx.Store.GetCommitments("tester")
	for _, c := range commitments {
		if err := (&CommitmentDeleteCmd{ID: c.ID}).Run(ctx); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
	}
	if left, _ := ctx.Store.GetCommitments("tester"); len(left) != 0 {
		t.Errorf("expected no commitments, got %d", len(left))
	}

	if err := (&CommitmentAddCmd{Label: " ", Start: "07:00", End: "08:00"}).Validate(); err == nil {
		t.Error("expected error for blank label")
	}
}

func TestSleepSetCmd_ReplacesWindow(t *testing.T) {
	ctx, _ := setupTestContext(t)

	if err := (&CommitmentAddCmd{Label: "Work", Start: "09:00", End: "17:00"}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if err := (&SleepSetCmd{Start: "23:00", End: "07:00"}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if err := (&SleepSetCmd{Start: "00:30", End: "08:30"}).Run(ctx); err != nil {
		t.Fatal(err)
	}

	commitments, err := ctx.Store.GetCommitments("tester")
	if err != nil {
		t.Fatal(err)
	}
	var sleep []models.Commitment
	for _, c := range commitments {
		if c.Kind == models.CommitmentSleep {
			sleep = append(sleep, c)
		}
	}
	if len(sleep) != 1 || sleep[0].Start != "00:30" || sleep[0].End != "08:30" {
		t.Errorf("expected a single replaced sleep window, got %+v", sleep)
	}
	if len(commitments) != 2 {
		t.Errorf("other commitments should be kept, got %d", len(commitments))
	}
}
