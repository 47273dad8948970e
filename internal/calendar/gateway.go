// Package calendar wraps the external calendar command behind a small
// mutation interface. The command is a black box: exit code zero means
// success, and the only channel for a created event's identifier is its
// combined stdout+stderr text, which may or may not embed a JSON object.
package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/ShawnOwen/threadcal/internal/event"
)

// UnknownEventID marks an event that was created but whose identifier could
// not be recovered from the command output. Such events cannot be addressed
// for updates or deletes; only a future create can replace them.
const UnknownEventID = "created_no_id"

// timestampLayout is the wall-clock format the calendar command expects for
// --start/--end. No explicit timezone.
const timestampLayout = "2006-01-02T15:04:05"

// maxDiagnosticLen bounds command output embedded in error messages.
const maxDiagnosticLen = 100

// Gateway is the mutation interface the reconciler depends on. Failures are
// reported as errors carrying a short diagnostic; nothing panics past this
// boundary.
type Gateway interface {
	// Create makes a new event and returns its identifier, or
	// UnknownEventID when the create succeeded but no identifier could be
	// extracted from the output.
	Create(ctx context.Context, ev event.Content) (string, error)
	Update(ctx context.Context, eventID string, ev event.Content) error
	Delete(ctx context.Context, eventID string) error
}

// CommandGateway invokes the external calendar CLI as a subprocess with a
// bounded per-call timeout.
type CommandGateway struct {
	argv    []string
	timeout time.Duration
}

// NewCommandGateway creates a gateway for the given command argv prefix.
func NewCommandGateway(argv []string, timeout time.Duration) *CommandGateway {
	return &CommandGateway{argv: argv, timeout: timeout}
}

// Create implements Gateway.
func (g *CommandGateway) Create(ctx context.Context, ev event.Content) (string, error) {
	out, err := g.run(ctx,
		"create", ev.Title,
		"--start", ev.Start.Format(timestampLayout),
		"--end", ev.End.Format(timestampLayout),
		"--description", ev.Description,
		"--color", ev.ColorID,
	)
	if err != nil {
		return "", err
	}

	// Identity extraction is best-effort: a create without a recoverable
	// id is still a success.
	if id, ok := extractEventID(out); ok {
		return id, nil
	}
	return UnknownEventID, nil
}

// Update implements Gateway.
func (g *CommandGateway) Update(ctx context.Context, eventID string, ev event.Content) error {
	_, err := g.run(ctx,
		"update", eventID,
		"--title", ev.Title,
		"--start", ev.Start.Format(timestampLayout),
		"--end", ev.End.Format(timestampLayout),
		"--description", ev.Description,
		"--color", ev.ColorID,
	)
	return err
}

// Delete implements Gateway.
func (g *CommandGateway) Delete(ctx context.Context, eventID string) error {
	_, err := g.run(ctx, "delete", eventID)
	return err
}

// run executes the command with the given operation arguments and returns
// its combined output. Non-zero exit, timeout, and launch failure all come
// back as errors with a truncated diagnostic.
func (g *CommandGateway) run(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	full := append(append([]string{}, g.argv[1:]...), args...)
	cmd := exec.CommandContext(ctx, g.argv[0], full...) //nolint:gosec // command argv from trusted config

	out, err := cmd.CombinedOutput()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("calendar command timed out after %s", g.timeout)
		}
		return "", fmt.Errorf("calendar command failed: %s", diagnostic(out, err))
	}
	return string(out), nil
}

// extractEventID scans combined command output for the first embedded JSON
// object and reads its "id" field.
func extractEventID(output string) (string, bool) {
	start := strings.IndexByte(output, '{')
	if start < 0 {
		return "", false
	}

	var resp struct {
		ID string `json:"id"`
	}
	dec := json.NewDecoder(strings.NewReader(output[start:]))
	if err := dec.Decode(&resp); err != nil || resp.ID == "" {
		return "", false
	}
	return resp.ID, true
}

// diagnostic builds a short error summary from command output, falling back
// to the exec error itself when the command produced nothing.
func diagnostic(out []byte, err error) string {
	msg := strings.TrimSpace(string(out))
	if msg == "" {
		msg = err.Error()
	}
	if len(msg) > maxDiagnosticLen {
		msg = msg[:maxDiagnosticLen] + "..."
	}
	return msg
}
