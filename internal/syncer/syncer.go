// Package syncer reconciles thread records against the external calendar:
// one pass computes a create/update/delete/skip decision per thread from the
// sync state and the record's content fingerprint, and applies it through
// the calendar gateway.
package syncer

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ShawnOwen/threadcal/internal/audit"
	"github.com/ShawnOwen/threadcal/internal/calendar"
	"github.com/ShawnOwen/threadcal/internal/deadline"
	"github.com/ShawnOwen/threadcal/internal/event"
	"github.com/ShawnOwen/threadcal/internal/state"
	"github.com/ShawnOwen/threadcal/internal/thread"
)

// Stats aggregates the outcomes of a single run.
type Stats struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Deleted int `json:"deleted"`
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`
}

// action is the per-thread outcome of one pass.
type action int

const (
	actionCreated action = iota
	actionUpdated
	actionDeleted
	actionSkipped
	actionError
)

// Reconciler orchestrates one full sync pass. It owns the in-memory state
// for the run's duration; the caller persists the state afterwards.
type Reconciler struct {
	Store   *thread.Store
	Gateway calendar.Gateway
	State   *state.State
	Builder *event.Builder

	// DefaultDeadlineDays is the fallback deadline offset for threads
	// whose priority has no fixed offset.
	DefaultDeadlineDays int

	// AuditDir, when non-empty, receives a JSONL trail of mutations.
	AuditDir string

	// Log receives progress and warning lines. Nil discards them.
	Log io.Writer

	// Now supplies the resolution time; nil means time.Now.
	Now func() time.Time

	// DryRun computes decisions without gateway calls or state changes.
	DryRun bool
}

// Run executes one full pass: orphan cleanup first, then a per-thread
// decision for every record, in sorted key order. Per-thread failures are
// isolated; the returned error only reports inability to list the records.
func (r *Reconciler) Run(ctx context.Context) (Stats, error) {
	var stats Stats

	stats.Deleted += r.cleanupOrphans(ctx)

	keys, err := r.Store.Keys()
	if err != nil {
		return stats, err
	}
	r.logf("found %d threads to process", len(keys))

	for _, key := range keys {
		switch r.syncThread(ctx, key) {
		case actionCreated:
			stats.Created++
		case actionUpdated:
			stats.Updated++
		case actionDeleted:
			stats.Deleted++
		case actionSkipped:
			stats.Skipped++
		case actionError:
			stats.Errors++
		}
	}

	if !r.DryRun {
		r.State.Lifetime.Created += stats.Created
		r.State.Lifetime.Updated += stats.Updated
		r.State.Lifetime.Deleted += stats.Deleted
		r.State.Lifetime.Errors += stats.Errors
	}

	return stats, nil
}

// cleanupOrphans drops state entries whose backing thread directory no
// longer exists, with a best-effort delete of the tracked event. This pass
// runs before the main per-thread pass.
func (r *Reconciler) cleanupOrphans(ctx context.Context) int {
	var orphaned []string
	for _, key := range r.State.Keys() {
		if !r.Store.Exists(key) {
			orphaned = append(orphaned, key)
		}
	}

	for _, key := range orphaned {
		entry := r.State.Threads[key]
		if r.DryRun {
			r.logf("would clean up orphaned thread: %s", key)
			continue
		}
		if addressable(entry.EventID) {
			if err := r.Gateway.Delete(ctx, entry.EventID); err != nil {
				r.logf("warning: deleting event for orphaned thread %s: %v", key, err)
			} else {
				r.audit("deleted", key, "orphaned thread")
			}
		}
		delete(r.State.Threads, key)
		r.logf("cleaned up orphaned thread: %s", key)
	}

	return len(orphaned)
}

// syncThread applies the per-thread state machine: terminal threads get
// their event deleted, unchanged fingerprints skip, changed ones update
// when the event is addressable, and everything else creates.
func (r *Reconciler) syncThread(ctx context.Context, key string) action {
	rec, err := r.Store.Read(key)
	if err != nil {
		r.logf("error: %v", err)
		return actionError
	}

	entry, tracked := r.State.Threads[key]

	if rec.Terminal() {
		if !tracked || entry.EventID == "" {
			return actionSkipped
		}
		return r.deleteClosed(ctx, key, entry, rec)
	}

	fp := event.Fingerprint(rec)

	if tracked {
		if entry.Fingerprint == fp {
			return actionSkipped
		}
		if addressable(entry.EventID) {
			return r.updateChanged(ctx, key, entry, rec, fp)
		}
		// The tracked event cannot be addressed; fall through and
		// replace it with a fresh create.
	}

	return r.createNew(ctx, key, rec, fp)
}

// deleteClosed removes the event of a terminal thread. The state entry is
// dropped even if the delete call fails: a dangling external event is
// preferred over a stuck reconciliation state.
func (r *Reconciler) deleteClosed(ctx context.Context, key string, entry state.Entry, rec *thread.Record) action {
	if r.DryRun {
		r.logf("would delete event for closed thread: %s", rec.DisplayName(key))
		return actionDeleted
	}

	if addressable(entry.EventID) {
		if err := r.Gateway.Delete(ctx, entry.EventID); err != nil {
			r.logf("warning: deleting event for closed thread %s: %v", key, err)
		} else {
			r.logf("deleted event for closed thread: %s", rec.DisplayName(key))
			r.audit("deleted", key, "thread "+rec.Status)
		}
	}

	delete(r.State.Threads, key)
	return actionDeleted
}

func (r *Reconciler) updateChanged(ctx context.Context, key string, entry state.Entry, rec *thread.Record, fp string) action {
	content := r.desired(key, rec)

	if r.DryRun {
		r.logf("would update event: %s", content.Title)
		return actionUpdated
	}

	r.logf("thread changed, updating: %s", rec.DisplayName(key))
	if err := r.Gateway.Update(ctx, entry.EventID, content); err != nil {
		// Entry left unchanged: the stale fingerprint makes the next
		// run retry this update.
		r.logf("warning: updating event for %s: %v", key, err)
		return actionError
	}

	now := r.now().UTC()
	entry.Fingerprint = fp
	entry.UpdatedAt = &now
	entry.IssueNumber = rec.Sync.IssueNumber
	entry.Priority = rec.NormalizedPriority()
	r.State.Threads[key] = entry
	r.audit("updated", key, content.Title)
	return actionUpdated
}

func (r *Reconciler) createNew(ctx context.Context, key string, rec *thread.Record, fp string) action {
	content := r.desired(key, rec)

	if r.DryRun {
		r.logf("would create event: %s", content.Title)
		return actionCreated
	}

	r.logf("creating event: %s", rec.DisplayName(key))
	id, err := r.Gateway.Create(ctx, content)
	if err != nil {
		r.logf("error: creating event for %s: %v", key, err)
		return actionError
	}

	now := r.now().UTC()
	r.State.Threads[key] = state.Entry{
		EventID:     id,
		SyncedAt:    now,
		IssueNumber: rec.Sync.IssueNumber,
		Fingerprint: fp,
		Priority:    rec.NormalizedPriority(),
	}

	// Write the event identity back into the record so other tools can
	// see it. A failed write-back is a warning, not a sync error.
	if err := r.Store.WriteSyncResult(key, id, now); err != nil {
		r.logf("warning: writing sync fields for %s: %v", key, err)
	}

	r.audit("created", key, content.Title)
	return actionCreated
}

// desired computes the full desired calendar content for a record.
func (r *Reconciler) desired(key string, rec *thread.Record) event.Content {
	due := deadline.Resolve(rec, r.now(), r.DefaultDeadlineDays)
	return r.Builder.Build(key, rec, due)
}

func (r *Reconciler) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Reconciler) logf(format string, args ...any) {
	if r.Log == nil {
		return
	}
	fmt.Fprintf(r.Log, format+"\n", args...)
}

func (r *Reconciler) audit(actionName, key, detail string) {
	if r.AuditDir == "" {
		return
	}
	audit.Record(r.AuditDir, actionName, key, detail)
}

// addressable reports whether an event id can be used for update/delete.
func addressable(id string) bool {
	return id != "" && id != calendar.UnknownEventID
}
