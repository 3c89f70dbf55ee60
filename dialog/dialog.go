package dialog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"git.skobk.in/skobkin/telegram-relay-bot/storage"
)

var (
	ErrNoDialog = errors.New("no active dialog")

	chatKeyPattern = regexp.MustCompile(`^-100\d+(#\d+)?$`)
)

// ValidationError is returned for input that is neither a forwarded message nor a -100... id.
// The dialog stays in the same state.
type ValidationError struct {
	State State
	Input string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid chat identifier %q while %s", e.Input, e.State)
}

// Creator persists the subscription collected by the dialog
type Creator interface {
	CreateSubscription(ctx context.Context, sourceID, destinationID, userID string) (*storage.Subscription, error)
}

// Input is what the user sent during the dialog.
// A non-zero ForwardedFromChatID takes precedence over Text.
type Input struct {
	ForwardedFromChatID int64
	Text                string
}

type Step int

const (
	StepSourceAccepted Step = iota + 1
	StepCompleted
)

type Result struct {
	Step         Step
	SourceID     string
	Subscription *storage.Subscription
}

// Dialog drives the two-step subscription setup: source, then destination
type Dialog struct {
	sessions SessionStore
	creator  Creator
}

func New(sessions SessionStore, creator Creator) *Dialog {
	return &Dialog{sessions: sessions, creator: creator}
}

// Start begins a new dialog, discarding any previous progress
func (d *Dialog) Start(ctx context.Context, userID int64) error {
	err := d.sessions.Save(ctx, &Session{UserID: userID, State: StateAwaitingSource})
	if err != nil {
		slog.Error("dialog: Failed to start dialog", "error", err, "user_id", userID)
		return err
	}

	slog.Debug("dialog: Dialog started", "user_id", userID)
	return nil
}

// Cancel returns the user to idle and reports whether a dialog was in progress
func (d *Dialog) Cancel(ctx context.Context, userID int64) (bool, error) {
	active, err := d.Active(ctx, userID)
	if err != nil {
		return false, err
	}

	if err := d.sessions.Delete(ctx, userID); err != nil {
		slog.Error("dialog: Failed to cancel dialog", "error", err, "user_id", userID)
		return false, err
	}

	return active, nil
}

func (d *Dialog) Active(ctx context.Context, userID int64) (bool, error) {
	session, err := d.sessions.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	return session != nil && session.State != StateIdle, nil
}

// Handle advances the dialog with the user's input
func (d *Dialog) Handle(ctx context.Context, userID int64, in Input) (Result, error) {
	session, err := d.sessions.Get(ctx, userID)
	if err != nil {
		return Result{}, err
	}
	if session == nil || session.State == StateIdle {
		return Result{}, ErrNoDialog
	}

	chatKey, ok := extractChatKey(in)
	if !ok {
		return Result{}, &ValidationError{State: session.State, Input: in.Text}
	}

	switch session.State {
	case StateAwaitingSource:
		session.SourceID = chatKey
		session.State = StateAwaitingDestination
		if err := d.sessions.Save(ctx, session); err != nil {
			slog.Error("dialog: Failed to save session", "error", err, "user_id", userID)
			return Result{}, err
		}

		slog.Debug("dialog: Source accepted", "user_id", userID, "source_id", chatKey)
		return Result{Step: StepSourceAccepted, SourceID: chatKey}, nil

	case StateAwaitingDestination:
		// The dialog ends whatever the outcome of the creation is
		if err := d.sessions.Delete(ctx, userID); err != nil {
			slog.Warn("dialog: Failed to clear session", "error", err, "user_id", userID)
		}

		owner := strconv.FormatInt(userID, 10)
		sub, err := d.creator.CreateSubscription(ctx, session.SourceID, chatKey, owner)
		if err != nil {
			return Result{}, fmt.Errorf("failed to create subscription: %w", err)
		}

		slog.Info("dialog: Subscription created", "id", sub.ID, "user_id", userID,
			"source_id", sub.SourceID, "destination_id", sub.DestinationID)
		return Result{Step: StepCompleted, SourceID: session.SourceID, Subscription: sub}, nil
	}

	return Result{}, ErrNoDialog
}

func extractChatKey(in Input) (string, bool) {
	if in.ForwardedFromChatID != 0 {
		return strconv.FormatInt(in.ForwardedFromChatID, 10), true
	}

	text := strings.TrimSpace(in.Text)
	if chatKeyPattern.MatchString(text) {
		return text, true
	}

	return "", false
}
