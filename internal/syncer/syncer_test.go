package syncer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ShawnOwen/threadcal/internal/calendar"
	"github.com/ShawnOwen/threadcal/internal/event"
	"github.com/ShawnOwen/threadcal/internal/state"
	"github.com/ShawnOwen/threadcal/internal/thread"
)

// fakeGateway records mutations and fails on demand.
type fakeGateway struct {
	nextID    string
	createErr error
	updateErr error
	deleteErr error
	created   []event.Content
	updated   []string
	deleted   []string
}

func (f *fakeGateway) Create(_ context.Context, ev event.Content) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created = append(f.created, ev)
	if f.nextID == "" {
		return "evt-1", nil
	}
	return f.nextID, nil
}

func (f *fakeGateway) Update(_ context.Context, id string, _ event.Content) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updated = append(f.updated, id)
	return nil
}

func (f *fakeGateway) Delete(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return f.deleteErr
}

func writeMeta(t *testing.T, dir, key, doc string) {
	t.Helper()
	threadDir := filepath.Join(dir, key)
	if err := os.MkdirAll(threadDir, 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(threadDir, thread.MetaFileName), []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
}

func newReconciler(dir string, gw calendar.Gateway, st *state.State) *Reconciler {
	return &Reconciler{
		Store:   thread.NewStore(dir),
		Gateway: gw,
		State:   st,
		Builder: &event.Builder{
			Repo:       "owner/repo",
			ThreadsDir: dir,
			Colors:     map[string]string{"P1": "11", "P2": "6", "P3": "5", "P4": "8"},
		},
		DefaultDeadlineDays: 7,
		Now:                 func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) },
	}
}

func TestFirstRunCreates(t *testing.T) {
	dir := t.TempDir()
	writeMeta(t, dir, "ship-v2", `{"name": "Ship v2", "priority": "P1", "sync": {"github_issue_number": 273}}`)

	gw := &fakeGateway{nextID: "evt-abc"}
	st := state.New()
	stats, err := newReconciler(dir, gw, st).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if stats.Created != 1 || stats.Errors != 0 {
		t.Errorf("stats = %+v, want one create", stats)
	}
	entry, ok := st.Threads["ship-v2"]
	if !ok {
		t.Fatal("no state entry after create")
	}
	if entry.EventID != "evt-abc" || entry.IssueNumber != 273 || entry.Priority != thread.P1 {
		t.Errorf("entry = %+v", entry)
	}
	if entry.Fingerprint == "" {
		t.Error("entry has no fingerprint")
	}
	if st.Lifetime.Created != 1 {
		t.Errorf("lifetime created = %d, want 1", st.Lifetime.Created)
	}

	// Event identity written back into the record.
	rec, err := thread.NewStore(dir).Read("ship-v2")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Sync.CalendarEventID != "evt-abc" {
		t.Errorf("write-back CalendarEventID = %q", rec.Sync.CalendarEventID)
	}
	if rec.Sync.CalendarSyncedAt == "" {
		t.Error("write-back CalendarSyncedAt empty")
	}
}

func TestSecondRunSkips(t *testing.T) {
	dir := t.TempDir()
	writeMeta(t, dir, "ship-v2", `{"name": "Ship v2", "priority": "P1"}`)

	gw := &fakeGateway{}
	st := state.New()
	r := newReconciler(dir, gw, st)

	if _, err := r.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	stats, err := r.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if stats.Skipped != 1 || stats.Created != 0 || stats.Updated != 0 {
		t.Errorf("second run stats = %+v, want one skip", stats)
	}
	if len(gw.created) != 1 {
		t.Errorf("gateway saw %d creates, want 1", len(gw.created))
	}
}

func TestChangedRecordUpdates(t *testing.T) {
	dir := t.TempDir()
	writeMeta(t, dir, "ship-v2", `{"name": "Ship v2", "priority": "P1"}`)

	gw := &fakeGateway{}
	st := state.New()
	r := newReconciler(dir, gw, st)
	if _, err := r.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	oldFP := st.Threads["ship-v2"].Fingerprint

	writeMeta(t, dir, "ship-v2", `{"name": "Ship v2", "priority": "P3"}`)
	stats, err := r.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if stats.Updated != 1 {
		t.Errorf("stats = %+v, want one update", stats)
	}
	if len(gw.updated) != 1 || gw.updated[0] != "evt-1" {
		t.Errorf("gateway updates = %v", gw.updated)
	}
	entry := st.Threads["ship-v2"]
	if entry.Fingerprint == oldFP {
		t.Error("fingerprint not refreshed after update")
	}
	if entry.UpdatedAt == nil {
		t.Error("UpdatedAt not stamped after update")
	}
	if entry.Priority != thread.P3 {
		t.Errorf("entry priority = %v, want the edited rank P3", entry.Priority)
	}
}

func TestUpdateFailureKeepsStaleFingerprint(t *testing.T) {
	dir := t.TempDir()
	writeMeta(t, dir, "ship-v2", `{"name": "Ship v2", "priority": "P1"}`)

	gw := &fakeGateway{}
	st := state.New()
	r := newReconciler(dir, gw, st)
	if _, err := r.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	oldFP := st.Threads["ship-v2"].Fingerprint

	writeMeta(t, dir, "ship-v2", `{"name": "Ship v2", "priority": "P3"}`)
	gw.updateErr = errors.New("calendar down")

	stats, err := r.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.Errors != 1 || stats.Updated != 0 {
		t.Errorf("stats = %+v, want one error", stats)
	}
	if st.Threads["ship-v2"].Fingerprint != oldFP {
		t.Error("failed update must leave the stale fingerprint so the next run retries")
	}

	// Next run with a healthy gateway retries the update.
	gw.updateErr = nil
	stats, err = r.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.Updated != 1 {
		t.Errorf("retry stats = %+v, want one update", stats)
	}
}

func TestClosedThreadDeletes(t *testing.T) {
	dir := t.TempDir()
	writeMeta(t, dir, "ship-v2", `{"name": "Ship v2", "priority": "P1"}`)

	gw := &fakeGateway{}
	st := state.New()
	r := newReconciler(dir, gw, st)
	if _, err := r.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	writeMeta(t, dir, "ship-v2", `{"name": "Ship v2", "priority": "P1", "status": "done"}`)
	stats, err := r.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if stats.Deleted != 1 {
		t.Errorf("stats = %+v, want one delete", stats)
	}
	if len(gw.deleted) != 1 || gw.deleted[0] != "evt-1" {
		t.Errorf("gateway deletes = %v", gw.deleted)
	}
	if _, tracked := st.Threads["ship-v2"]; tracked {
		t.Error("state entry not dropped for closed thread")
	}
}

func TestClosedThreadDeleteFailureStillDropsEntry(t *testing.T) {
	dir := t.TempDir()
	writeMeta(t, dir, "ship-v2", `{"name": "Ship v2", "status": "closed"}`)

	gw := &fakeGateway{deleteErr: errors.New("calendar down")}
	st := state.New()
	st.Threads["ship-v2"] = state.Entry{EventID: "evt-1", Fingerprint: "old"}

	stats, err := newReconciler(dir, gw, st).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.Deleted != 1 {
		t.Errorf("stats = %+v, want one delete", stats)
	}
	if _, tracked := st.Threads["ship-v2"]; tracked {
		t.Error("entry must be dropped even when the delete call fails")
	}
}

func TestClosedUntrackedThreadSkips(t *testing.T) {
	dir := t.TempDir()
	writeMeta(t, dir, "old-work", `{"name": "Old", "status": "completed"}`)

	gw := &fakeGateway{}
	stats, err := newReconciler(dir, gw, state.New()).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.Skipped != 1 || stats.Deleted != 0 {
		t.Errorf("stats = %+v, want one skip", stats)
	}
	if len(gw.deleted) != 0 {
		t.Errorf("gateway deletes = %v, want none", gw.deleted)
	}
}

func TestClosedUnaddressableEventSkipsGatewayCall(t *testing.T) {
	dir := t.TempDir()
	writeMeta(t, dir, "ship-v2", `{"name": "Ship v2", "status": "done"}`)

	gw := &fakeGateway{}
	st := state.New()
	st.Threads["ship-v2"] = state.Entry{EventID: calendar.UnknownEventID, Fingerprint: "old"}

	stats, err := newReconciler(dir, gw, st).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.Deleted != 1 {
		t.Errorf("stats = %+v, want one delete", stats)
	}
	if len(gw.deleted) != 0 {
		t.Errorf("no delete call possible without an addressable id, got %v", gw.deleted)
	}
	if _, tracked := st.Threads["ship-v2"]; tracked {
		t.Error("entry not dropped")
	}
}

func TestUnaddressableChangedEventIsRecreated(t *testing.T) {
	dir := t.TempDir()
	writeMeta(t, dir, "ship-v2", `{"name": "Ship v2", "priority": "P2"}`)

	gw := &fakeGateway{nextID: "evt-new"}
	st := state.New()
	st.Threads["ship-v2"] = state.Entry{EventID: calendar.UnknownEventID, Fingerprint: "stale"}

	stats, err := newReconciler(dir, gw, st).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.Created != 1 || stats.Updated != 0 {
		t.Errorf("stats = %+v, want a fresh create", stats)
	}
	if st.Threads["ship-v2"].EventID != "evt-new" {
		t.Errorf("entry = %+v, want the new event id", st.Threads["ship-v2"])
	}
}

func TestOrphanCleanup(t *testing.T) {
	dir := t.TempDir()
	writeMeta(t, dir, "alive", `{"name": "Alive", "priority": "P2"}`)

	gw := &fakeGateway{}
	st := state.New()
	st.Threads["alive"] = state.Entry{EventID: "evt-a", Fingerprint: "keep"}
	st.Threads["gone"] = state.Entry{EventID: "evt-g", Fingerprint: "x"}
	st.Threads["gone-no-id"] = state.Entry{EventID: calendar.UnknownEventID, Fingerprint: "y"}

	stats, err := newReconciler(dir, gw, st).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if stats.Deleted != 2 {
		t.Errorf("stats = %+v, want two orphan deletes", stats)
	}
	if len(gw.deleted) != 1 || gw.deleted[0] != "evt-g" {
		t.Errorf("gateway deletes = %v, want only the addressable orphan", gw.deleted)
	}
	if _, ok := st.Threads["gone"]; ok {
		t.Error("orphan entry not dropped")
	}
	if _, ok := st.Threads["gone-no-id"]; ok {
		t.Error("unaddressable orphan entry not dropped")
	}
	if _, ok := st.Threads["alive"]; !ok {
		t.Error("live entry dropped by orphan cleanup")
	}
}

func TestOrphanDeleteFailureStillDropsEntry(t *testing.T) {
	dir := t.TempDir()
	gw := &fakeGateway{deleteErr: errors.New("calendar down")}
	st := state.New()
	st.Threads["gone"] = state.Entry{EventID: "evt-g"}

	stats, err := newReconciler(dir, gw, st).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.Deleted != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if _, ok := st.Threads["gone"]; ok {
		t.Error("orphan entry must be dropped even when the delete call fails")
	}
}

func TestMalformedRecordIsIsolated(t *testing.T) {
	dir := t.TempDir()
	writeMeta(t, dir, "bad", `{broken`)
	writeMeta(t, dir, "good", `{"name": "Good", "priority": "P2"}`)

	gw := &fakeGateway{}
	st := state.New()
	stats, err := newReconciler(dir, gw, st).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if stats.Errors != 1 || stats.Created != 1 {
		t.Errorf("stats = %+v, want one error and one create", stats)
	}
	if _, ok := st.Threads["bad"]; ok {
		t.Error("malformed record must not gain a state entry")
	}
	if st.Lifetime.Errors != 1 {
		t.Errorf("lifetime errors = %d, want 1", st.Lifetime.Errors)
	}
}

func TestCreateFailure(t *testing.T) {
	dir := t.TempDir()
	writeMeta(t, dir, "ship-v2", `{"name": "Ship v2"}`)

	gw := &fakeGateway{createErr: errors.New("calendar down")}
	st := state.New()
	stats, err := newReconciler(dir, gw, st).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.Errors != 1 || stats.Created != 0 {
		t.Errorf("stats = %+v, want one error", stats)
	}
	if _, ok := st.Threads["ship-v2"]; ok {
		t.Error("failed create must not record a state entry")
	}
}

func TestDryRunMakesNoChanges(t *testing.T) {
	dir := t.TempDir()
	writeMeta(t, dir, "new-thread", `{"name": "New", "priority": "P1"}`)
	writeMeta(t, dir, "closed-thread", `{"name": "Closed", "status": "done"}`)

	gw := &fakeGateway{}
	st := state.New()
	st.Threads["closed-thread"] = state.Entry{EventID: "evt-c", Fingerprint: "x"}
	st.Threads["orphan"] = state.Entry{EventID: "evt-o", Fingerprint: "y"}

	r := newReconciler(dir, gw, st)
	r.DryRun = true
	stats, err := r.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if stats.Created != 1 || stats.Deleted != 2 {
		t.Errorf("dry-run stats = %+v, want the same decisions", stats)
	}
	if len(gw.created) != 0 || len(gw.deleted) != 0 || len(gw.updated) != 0 {
		t.Error("dry run must not call the gateway")
	}
	if len(st.Threads) != 2 {
		t.Errorf("dry run mutated state: %v", st.Keys())
	}
	if st.Lifetime != (state.Counters{}) {
		t.Errorf("dry run mutated lifetime counters: %+v", st.Lifetime)
	}
	if _, err := os.Stat(filepath.Join(dir, "new-thread", thread.MetaFileName)); err != nil {
		t.Fatal(err)
	}
	rec, err := thread.NewStore(dir).Read("new-thread")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Sync.CalendarEventID != "" {
		t.Error("dry run wrote sync fields back into the record")
	}
}

func TestUnknownIDCreateStillTracked(t *testing.T) {
	dir := t.TempDir()
	writeMeta(t, dir, "ship-v2", `{"name": "Ship v2"}`)

	gw := &fakeGateway{nextID: calendar.UnknownEventID}
	st := state.New()
	stats, err := newReconciler(dir, gw, st).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.Created != 1 {
		t.Errorf("stats = %+v", stats)
	}
	entry := st.Threads["ship-v2"]
	if entry.EventID != calendar.UnknownEventID {
		t.Errorf("entry = %+v, want the sentinel id tracked", entry)
	}

	// Unchanged on the next run: still a skip, no duplicate create.
	stats, err = newReconciler(dir, gw, st).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.Skipped != 1 || stats.Created != 0 {
		t.Errorf("second run stats = %+v, want one skip", stats)
	}
}
