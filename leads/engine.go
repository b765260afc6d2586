package leads

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/trilokanam-ux/trilokana-telegram-bot/core/logger"
)

// Callback keys used for inline buttons. Option buttons carry the option
// index as payload so the control channel never collides with typed text.
const (
	CallbackOption  = "lead_opt"
	CallbackConfirm = "lead_confirm"
)

const (
	msgEnterName     = "Enter your Name:"
	msgEnterEmail    = "Enter your Email:"
	msgEnterPhone    = "Enter your Phone Number:"
	msgEnterQuery    = "Enter your Query:"
	msgBadEmail      = "That doesn't look like a valid email address. Please try again:"
	msgBadPhone      = "That doesn't look like a valid phone number. Please try again:"
	msgUseButtons    = "Please use the Confirm or Cancel buttons below."
	msgCancelled     = "Your request was cancelled. Use /start whenever you want to begin again."
	msgThanks        = "Thank you! Your details have been recorded. We will contact you soon."
	msgSinkFailure   = "Sorry, there was an error saving your data. Please try again later."
	guidancePrefix   = "Please choose a service using /start or type one of: "
	selectedTemplate = "You selected: %s\n" + msgEnterName
)

// Config tunes the dialogue engine.
type Config struct {
	// Options is the list of service categories offered on /start.
	Options []string
	// MinPhoneDigits is the phone validation threshold.
	MinPhoneDigits int
	// KeepSessionOnSinkError preserves the session after a failed
	// submission so the user can confirm again.
	KeepSessionOnSinkError bool
	// ContactLink, when set, is sent after a successful submission.
	ContactLink string
}

// Engine drives the lead-capture state machine. All event methods serialize
// per user through the store lock, so duplicate or out-of-order deliveries
// observe the already-advanced step and fall into the ordinary ignore paths.
type Engine struct {
	cfg   Config
	store Store
	coord *Coordinator
	gw    Gateway
}

// NewEngine wires the dialogue engine with its collaborators.
func NewEngine(cfg Config, store Store, coord *Coordinator, gw Gateway) *Engine {
	if cfg.MinPhoneDigits <= 0 {
		cfg.MinPhoneDigits = DefaultMinPhoneDigits
	}
	return &Engine{cfg: cfg, store: store, coord: coord, gw: gw}
}

// Options returns the configured service categories.
func (e *Engine) Options() []string {
	return e.cfg.Options
}

// KnownOption matches free text against the configured options and returns
// the canonical label.
func (e *Engine) KnownOption(text string) (string, bool) {
	text = strings.TrimSpace(text)
	for _, opt := range e.cfg.Options {
		if opt == text {
			return opt, true
		}
	}
	return "", false
}

// InProgress reports whether the user has an active session.
func (e *Engine) InProgress(userID int64) bool {
	_, ok := e.store.Get(userID)
	return ok
}

// Option handles a service selection, from a button press or typed option
// text alike. A fresh session starts at the name step; if a session already
// exists the current prompt is repeated and no second session is created.
func (e *Engine) Option(ctx context.Context, userID int64, option string) error {
	defer e.store.Lock(userID)()

	if sess, ok := e.store.Get(userID); ok {
		logger.Debug(ctx, "dialog", "option.ignored",
			slog.String("status", "skip"),
			slog.Int64("user_id", userID),
			slog.String("step", sess.Step.String()),
		)
		return e.prompt(ctx, &sess)
	}

	e.store.Put(Session{UserID: userID, Option: option, Step: StepName})
	logger.Info(ctx, "dialog", "session.start",
		slog.String("status", "ok"),
		slog.Int64("user_id", userID),
		slog.String("option", option),
	)
	return e.gw.SendText(ctx, userID, fmt.Sprintf(selectedTemplate, option))
}

// Text handles free text. With no active session a recognized option label
// starts one; anything else yields guidance. Mid-dialogue the text feeds
// the current step and either advances it or re-prompts on validation
// failure, leaving the session untouched.
func (e *Engine) Text(ctx context.Context, userID int64, text string) error {
	text = strings.TrimSpace(text)

	if !e.InProgress(userID) {
		if opt, ok := e.KnownOption(text); ok {
			return e.Option(ctx, userID, opt)
		}
		logger.Debug(ctx, "dialog", "text.no_session",
			slog.String("status", "skip"),
			slog.Int64("user_id", userID),
		)
		return e.gw.SendText(ctx, userID, guidancePrefix+strings.Join(e.cfg.Options, ", "))
	}

	defer e.store.Lock(userID)()
	sess, ok := e.store.Get(userID)
	if !ok {
		// Session expired between the check and the lock.
		return e.gw.SendText(ctx, userID, guidancePrefix+strings.Join(e.cfg.Options, ", "))
	}

	switch sess.Step {
	case StepName:
		if text == "" {
			return e.gw.SendText(ctx, userID, msgEnterName)
		}
		sess.Name = text
		return e.advance(ctx, sess, StepEmail, msgEnterEmail)
	case StepEmail:
		if !ValidEmail(text) {
			return e.rejected(ctx, sess, msgBadEmail)
		}
		sess.Email = text
		return e.advance(ctx, sess, StepPhone, msgEnterPhone)
	case StepPhone:
		if !ValidPhone(text, e.cfg.MinPhoneDigits) {
			return e.rejected(ctx, sess, msgBadPhone)
		}
		sess.Phone = text
		return e.advance(ctx, sess, StepQuery, msgEnterQuery)
	case StepQuery:
		if text == "" {
			return e.gw.SendText(ctx, userID, msgEnterQuery)
		}
		sess.Query = text
		sess.Step = StepConfirm
		e.store.Put(sess)
		logger.Info(ctx, "dialog", "step.advance",
			slog.String("status", "ok"),
			slog.Int64("user_id", userID),
			slog.String("step", sess.Step.String()),
		)
		return e.gw.SendChoices(ctx, userID, summary(&sess), confirmChoices())
	case StepConfirm:
		// Field entry while awaiting confirmation: neutral re-prompt,
		// session untouched.
		return e.gw.SendChoices(ctx, userID, msgUseButtons, confirmChoices())
	}
	return nil
}

// Confirm resolves the confirmation step. Events arriving outside the
// confirm step are ignored. The session survives until the sink call
// returns; a duplicate confirm waits on the user lock and then finds the
// session gone.
func (e *Engine) Confirm(ctx context.Context, userID int64, yes bool) error {
	defer e.store.Lock(userID)()

	sess, ok := e.store.Get(userID)
	if !ok || sess.Step != StepConfirm {
		logger.Debug(ctx, "dialog", "confirm.ignored",
			slog.String("status", "skip"),
			slog.Int64("user_id", userID),
			slog.Bool("in_session", ok),
		)
		return nil
	}

	if !yes {
		e.store.Delete(userID)
		logger.Info(ctx, "dialog", "session.cancelled",
			slog.String("status", "ok"),
			slog.Int64("user_id", userID),
		)
		return e.gw.SendText(ctx, userID, msgCancelled)
	}

	rec := sess.Snapshot(time.Now())
	if err := e.coord.Submit(ctx, rec); err != nil {
		if !e.cfg.KeepSessionOnSinkError {
			e.store.Delete(userID)
		}
		return e.gw.SendText(ctx, userID, msgSinkFailure)
	}

	e.store.Delete(userID)
	if err := e.gw.SendText(ctx, userID, msgThanks); err != nil {
		return err
	}
	if e.cfg.ContactLink != "" {
		return e.gw.SendText(ctx, userID, "Contact us via WhatsApp: "+e.cfg.ContactLink)
	}
	return nil
}

// Cancel drops the user's session regardless of step, for /cancel.
func (e *Engine) Cancel(ctx context.Context, userID int64) error {
	defer e.store.Lock(userID)()

	if _, ok := e.store.Get(userID); !ok {
		return e.gw.SendText(ctx, userID, "Nothing to cancel. Use /start to begin.")
	}
	e.store.Delete(userID)
	logger.Info(ctx, "dialog", "session.cancelled",
		slog.String("status", "ok"),
		slog.Int64("user_id", userID),
	)
	return e.gw.SendText(ctx, userID, msgCancelled)
}

func (e *Engine) advance(ctx context.Context, sess Session, next Step, promptText string) error {
	sess.Step = next
	e.store.Put(sess)
	logger.Info(ctx, "dialog", "step.advance",
		slog.String("status", "ok"),
		slog.Int64("user_id", sess.UserID),
		slog.String("step", next.String()),
	)
	return e.gw.SendText(ctx, sess.UserID, promptText)
}

func (e *Engine) rejected(ctx context.Context, sess Session, promptText string) error {
	logger.Debug(ctx, "dialog", "field.rejected",
		slog.String("status", "skip"),
		slog.Int64("user_id", sess.UserID),
		slog.String("step", sess.Step.String()),
	)
	return e.gw.SendText(ctx, sess.UserID, promptText)
}

func (e *Engine) prompt(ctx context.Context, sess *Session) error {
	switch sess.Step {
	case StepName:
		return e.gw.SendText(ctx, sess.UserID, msgEnterName)
	case StepEmail:
		return e.gw.SendText(ctx, sess.UserID, msgEnterEmail)
	case StepPhone:
		return e.gw.SendText(ctx, sess.UserID, msgEnterPhone)
	case StepQuery:
		return e.gw.SendText(ctx, sess.UserID, msgEnterQuery)
	case StepConfirm:
		return e.gw.SendChoices(ctx, sess.UserID, summary(sess), confirmChoices())
	}
	return nil
}

func confirmChoices() []Choice {
	return []Choice{
		{Label: "✅ Confirm", Key: CallbackConfirm, Data: "yes"},
		{Label: "❌ Cancel", Key: CallbackConfirm, Data: "no"},
	}
}

func summary(sess *Session) string {
	var b strings.Builder
	b.WriteString("Please confirm your details:\n\n")
	fmt.Fprintf(&b, "Service: %s\n", sess.Option)
	fmt.Fprintf(&b, "Name: %s\n", sess.Name)
	fmt.Fprintf(&b, "Email: %s\n", sess.Email)
	fmt.Fprintf(&b, "Phone: %s\n", sess.Phone)
	fmt.Fprintf(&b, "Query: %s", sess.Query)
	return b.String()
}
