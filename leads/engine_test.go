package leads

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	mu      sync.Mutex
	texts   []string
	choices []string
}

func (g *fakeGateway) SendText(_ context.Context, _ int64, text string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.texts = append(g.texts, text)
	return nil
}

func (g *fakeGateway) SendChoices(_ context.Context, _ int64, text string, _ []Choice) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.choices = append(g.choices, text)
	return nil
}

func (g *fakeGateway) lastText() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.texts) == 0 {
		return ""
	}
	return g.texts[len(g.texts)-1]
}

func (g *fakeGateway) lastChoices() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.choices) == 0 {
		return ""
	}
	return g.choices[len(g.choices)-1]
}

type fakeSink struct {
	mu      sync.Mutex
	records []Record
	err     error
}

func (f *fakeSink) Append(_ context.Context, rec Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

func (f *fakeSink) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

var testOptions = []string{"SEO", "Paid Marketing"}

func newTestEngine(t *testing.T, cfg Config) (*Engine, *MemoryStore, *fakeGateway, *fakeSink) {
	t.Helper()
	if cfg.Options == nil {
		cfg.Options = testOptions
	}
	store := NewMemoryStore(0)
	t.Cleanup(store.Close)
	gw := &fakeGateway{}
	fs := &fakeSink{}
	coord := NewCoordinator(fs, time.Second)
	return NewEngine(cfg, store, coord, gw), store, gw, fs
}

func runToConfirm(t *testing.T, e *Engine, userID int64) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, e.Option(ctx, userID, "SEO"))
	require.NoError(t, e.Text(ctx, userID, "Jane"))
	require.NoError(t, e.Text(ctx, userID, "jane@example.com"))
	require.NoError(t, e.Text(ctx, userID, "9876543210"))
	require.NoError(t, e.Text(ctx, userID, "Need an audit"))
}

func TestOptionStartsSession(t *testing.T) {
	e, store, gw, _ := newTestEngine(t, Config{})
	ctx := context.Background()

	require.NoError(t, e.Option(ctx, 1, "SEO"))

	sess, ok := store.Get(1)
	require.True(t, ok)
	assert.Equal(t, StepName, sess.Step)
	assert.Equal(t, "SEO", sess.Option)
	assert.Equal(t, fmt.Sprintf(selectedTemplate, "SEO"), gw.lastText())
}

func TestDuplicateOptionReprompts(t *testing.T) {
	e, store, gw, _ := newTestEngine(t, Config{})
	ctx := context.Background()

	require.NoError(t, e.Option(ctx, 1, "SEO"))
	require.NoError(t, e.Option(ctx, 1, "Paid Marketing"))

	sess, ok := store.Get(1)
	require.True(t, ok)
	assert.Equal(t, "SEO", sess.Option, "first selection wins")
	assert.Equal(t, StepName, sess.Step)
	assert.Equal(t, msgEnterName, gw.lastText())
}

func TestEmailValidation(t *testing.T) {
	e, store, gw, _ := newTestEngine(t, Config{})
	ctx := context.Background()

	require.NoError(t, e.Option(ctx, 1, "SEO"))
	require.NoError(t, e.Text(ctx, 1, "Jane"))

	sess, _ := store.Get(1)
	require.Equal(t, StepEmail, sess.Step)

	// Invalid input re-prompts without advancing.
	require.NoError(t, e.Text(ctx, 1, "not-an-email"))
	sess, _ = store.Get(1)
	assert.Equal(t, StepEmail, sess.Step)
	assert.Equal(t, msgBadEmail, gw.lastText())

	require.NoError(t, e.Text(ctx, 1, "jane@example.com"))
	sess, _ = store.Get(1)
	assert.Equal(t, StepPhone, sess.Step)
	assert.Equal(t, "jane@example.com", sess.Email)
	assert.Equal(t, msgEnterPhone, gw.lastText())
}

func TestPhoneValidation(t *testing.T) {
	e, store, gw, _ := newTestEngine(t, Config{})
	ctx := context.Background()

	require.NoError(t, e.Option(ctx, 1, "SEO"))
	require.NoError(t, e.Text(ctx, 1, "Jane"))
	require.NoError(t, e.Text(ctx, 1, "jane@example.com"))

	require.NoError(t, e.Text(ctx, 1, "12345"))
	sess, _ := store.Get(1)
	assert.Equal(t, StepPhone, sess.Step)
	assert.Equal(t, msgBadPhone, gw.lastText())

	require.NoError(t, e.Text(ctx, 1, "+91 98765 43210"))
	sess, _ = store.Get(1)
	assert.Equal(t, StepQuery, sess.Step)
	assert.Equal(t, "+91 98765 43210", sess.Phone)
}

func TestConfirmYesSubmitsOnce(t *testing.T) {
	e, store, gw, fs := newTestEngine(t, Config{ContactLink: "https://wa.me/1234567890"})
	ctx := context.Background()

	runToConfirm(t, e, 1)

	sess, ok := store.Get(1)
	require.True(t, ok)
	require.Equal(t, StepConfirm, sess.Step)
	assert.Contains(t, gw.lastChoices(), "Please confirm your details:")
	assert.Contains(t, gw.lastChoices(), "jane@example.com")

	require.NoError(t, e.Confirm(ctx, 1, true))

	require.Equal(t, 1, fs.count())
	rec := fs.records[0]
	assert.NotEmpty(t, rec.ID)
	assert.False(t, rec.CapturedAt.IsZero())
	assert.Equal(t, "SEO", rec.Option)
	assert.Equal(t, "Jane", rec.Name)
	assert.Equal(t, "jane@example.com", rec.Email)
	assert.Equal(t, "9876543210", rec.Phone)
	assert.Equal(t, "Need an audit", rec.Query)

	_, ok = store.Get(1)
	assert.False(t, ok, "session removed after submission")
	assert.Contains(t, gw.lastText(), "https://wa.me/1234567890")

	// A duplicate confirm finds no session and submits nothing.
	require.NoError(t, e.Confirm(ctx, 1, true))
	assert.Equal(t, 1, fs.count())
}

func TestConfirmNoCancels(t *testing.T) {
	e, store, gw, fs := newTestEngine(t, Config{})
	ctx := context.Background()

	runToConfirm(t, e, 1)
	require.NoError(t, e.Confirm(ctx, 1, false))

	assert.Equal(t, 0, fs.count())
	_, ok := store.Get(1)
	assert.False(t, ok)
	assert.Equal(t, msgCancelled, gw.lastText())
}

func TestConfirmIgnoredOutsideConfirmStep(t *testing.T) {
	e, store, gw, fs := newTestEngine(t, Config{})
	ctx := context.Background()

	require.NoError(t, e.Option(ctx, 1, "SEO"))
	sent := len(gw.texts)

	require.NoError(t, e.Confirm(ctx, 1, true))

	assert.Equal(t, 0, fs.count())
	sess, ok := store.Get(1)
	require.True(t, ok)
	assert.Equal(t, StepName, sess.Step)
	assert.Len(t, gw.texts, sent, "no message for an ignored confirm")
}

func TestTextDuringConfirmReprompts(t *testing.T) {
	e, store, gw, fs := newTestEngine(t, Config{})
	ctx := context.Background()

	runToConfirm(t, e, 1)
	require.NoError(t, e.Text(ctx, 1, "yes please"))

	sess, ok := store.Get(1)
	require.True(t, ok)
	assert.Equal(t, StepConfirm, sess.Step)
	assert.Equal(t, "Need an audit", sess.Query, "typed text does not overwrite fields")
	assert.Equal(t, msgUseButtons, gw.lastChoices())
	assert.Equal(t, 0, fs.count())
}

func TestUnrecognizedTextWithoutSession(t *testing.T) {
	e, store, gw, _ := newTestEngine(t, Config{})
	ctx := context.Background()

	require.NoError(t, e.Text(ctx, 1, "hello"))

	_, ok := store.Get(1)
	assert.False(t, ok)
	assert.Contains(t, gw.lastText(), guidancePrefix)
	assert.Contains(t, gw.lastText(), "SEO")
}

func TestTypedOptionStartsSession(t *testing.T) {
	e, store, _, _ := newTestEngine(t, Config{})
	ctx := context.Background()

	require.NoError(t, e.Text(ctx, 1, "  SEO  "))

	sess, ok := store.Get(1)
	require.True(t, ok)
	assert.Equal(t, "SEO", sess.Option)
	assert.Equal(t, StepName, sess.Step)
}

func TestSinkErrorDropsSessionByDefault(t *testing.T) {
	e, store, gw, fs := newTestEngine(t, Config{})
	ctx := context.Background()

	fs.setErr(errors.New("append failed"))
	runToConfirm(t, e, 1)
	require.NoError(t, e.Confirm(ctx, 1, true))

	assert.Equal(t, 0, fs.count())
	_, ok := store.Get(1)
	assert.False(t, ok)
	assert.Equal(t, msgSinkFailure, gw.lastText())
}

func TestSinkErrorKeepsSessionWhenConfigured(t *testing.T) {
	e, store, gw, fs := newTestEngine(t, Config{KeepSessionOnSinkError: true})
	ctx := context.Background()

	fs.setErr(errors.New("append failed"))
	runToConfirm(t, e, 1)
	require.NoError(t, e.Confirm(ctx, 1, true))

	sess, ok := store.Get(1)
	require.True(t, ok)
	assert.Equal(t, StepConfirm, sess.Step)
	assert.Equal(t, msgSinkFailure, gw.lastText())

	// Retry after the sink recovers.
	fs.setErr(nil)
	require.NoError(t, e.Confirm(ctx, 1, true))
	assert.Equal(t, 1, fs.count())
	_, ok = store.Get(1)
	assert.False(t, ok)
	assert.Equal(t, msgThanks, gw.lastText())
}

func TestCancelCommand(t *testing.T) {
	e, store, gw, _ := newTestEngine(t, Config{})
	ctx := context.Background()

	require.NoError(t, e.Cancel(ctx, 1))
	assert.Equal(t, "Nothing to cancel. Use /start to begin.", gw.lastText())

	require.NoError(t, e.Option(ctx, 1, "SEO"))
	require.NoError(t, e.Cancel(ctx, 1))
	_, ok := store.Get(1)
	assert.False(t, ok)
	assert.Equal(t, msgCancelled, gw.lastText())
}

func TestConcurrentUsersIsolated(t *testing.T) {
	e, store, _, fs := newTestEngine(t, Config{})
	ctx := context.Background()

	var wg sync.WaitGroup
	for id := int64(1); id <= 8; id++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			_ = e.Option(ctx, userID, "SEO")
			_ = e.Text(ctx, userID, "Jane")
			_ = e.Text(ctx, userID, "jane@example.com")
			_ = e.Text(ctx, userID, "9876543210")
			_ = e.Text(ctx, userID, "Need an audit")
			_ = e.Confirm(ctx, userID, true)
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 8, fs.count())
	assert.Equal(t, 0, store.Active())
}

func TestCoordinatorCounters(t *testing.T) {
	fs := &fakeSink{}
	coord := NewCoordinator(fs, time.Second)
	ctx := context.Background()

	require.NoError(t, coord.Submit(ctx, Record{ID: "a"}))
	fs.setErr(errors.New("down"))
	require.Error(t, coord.Submit(ctx, Record{ID: "b"}))

	assert.Equal(t, uint64(1), coord.Submitted())
	assert.Equal(t, uint64(1), coord.Failed())
}
