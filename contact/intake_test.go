package contact

import (
	"context"
	"errors"
	"io"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/wa-psh/committee/content"
	"github.com/wa-psh/committee/limiter"
	"github.com/wa-psh/committee/metastore"
)

type recordingStore struct {
	mu    sync.Mutex
	added []content.Submission
}

func (r *recordingStore) Add(_ context.Context, s content.Submission) (content.Submission, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.ID = content.ID(strconv.Itoa(len(r.added) + 1))
	s.Status = content.StatusNew
	r.added = append(r.added, s)
	return s, true
}

func (r *recordingStore) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.added)
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestIntake(t *testing.T) (*Intake, *recordingStore, *clock) {
	t.Helper()
	clk := &clock{t: time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)}
	store := &recordingStore{}
	lim := limiter.New(DefaultLimit, DefaultWindow, limiter.WithClock(clk.now))
	return NewIntake(store, lim, nil), store, clk
}

func validForm() Form {
	return Form{
		Name:         "Jordan Lee",
		Email:        "jordan@example.org",
		Organization: "  Housing Alliance ",
		Interest:     "membership",
		Message:      "I would like to attend the next meeting.",
	}
}

func TestSubmitStoresValidForm(t *testing.T) {
	in, store, _ := newTestIntake(t)

	rec, err := in.Submit(context.Background(), "203.0.113.5", validForm())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if rec.Discarded || !rec.Durable {
		t.Errorf("receipt = %+v", rec)
	}
	if store.count() != 1 {
		t.Fatalf("stored %d submissions", store.count())
	}
	got := store.added[0]
	if got.Organization != "Housing Alliance" || got.IP != "203.0.113.5" {
		t.Errorf("stored = %+v", got)
	}
}

func TestHoneypotIsNeverPersisted(t *testing.T) {
	in, store, _ := newTestIntake(t)
	f := validForm()
	f.Honeypot = "http://bot.example"

	rec, err := in.Submit(context.Background(), "203.0.113.6", f)
	if err != nil {
		t.Fatalf("honeypot must look like success, got %v", err)
	}
	if !rec.Discarded {
		t.Error("receipt should be marked discarded")
	}
	if store.count() != 0 {
		t.Error("honeypot submission was stored")
	}
}

func TestHoneypotBypassesRateLimit(t *testing.T) {
	in, _, _ := newTestIntake(t)
	f := validForm()
	f.Honeypot = "x"
	for i := 0; i < DefaultLimit+3; i++ {
		if _, err := in.Submit(context.Background(), "203.0.113.7", f); err != nil {
			t.Fatalf("attempt %d: %v", i+1, err)
		}
	}
	if !in.Limiter().Check("203.0.113.7") {
		t.Error("honeypot attempts should not consume the quota")
	}
}

func TestSixthSubmissionIsRateLimited(t *testing.T) {
	in, store, clk := newTestIntake(t)
	ctx := context.Background()
	ip := "198.51.100.20"

	for i := 0; i < DefaultLimit; i++ {
		if _, err := in.Submit(ctx, ip, validForm()); err != nil {
			t.Fatalf("submission %d: %v", i+1, err)
		}
		clk.t = clk.t.Add(time.Minute)
	}
	if _, err := in.Submit(ctx, ip, validForm()); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("6th submission: expected ErrRateLimited, got %v", err)
	}

	// Other clients are unaffected.
	if _, err := in.Submit(ctx, "198.51.100.21", validForm()); err != nil {
		t.Errorf("other ip: %v", err)
	}

	clk.t = clk.t.Add(DefaultWindow)
	if _, err := in.Submit(ctx, ip, validForm()); err != nil {
		t.Errorf("submission after window: %v", err)
	}
	if store.count() != DefaultLimit+2 {
		t.Errorf("stored %d submissions", store.count())
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Form)
		want   string
	}{
		{"missing name", func(f *Form) { f.Name = "  " }, "Name, email, and message are required"},
		{"missing email", func(f *Form) { f.Email = "" }, "Name, email, and message are required"},
		{"missing message", func(f *Form) { f.Message = "" }, "Name, email, and message are required"},
		{"bad email", func(f *Form) { f.Email = "jordan@example" }, "Invalid email address"},
		{"email with spaces", func(f *Form) { f.Email = "jo rdan@example.org" }, "Invalid email address"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, store, _ := newTestIntake(t)
			f := validForm()
			tt.mutate(&f)

			_, err := in.Submit(context.Background(), "192.0.2.1", f)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Message != tt.want {
				t.Errorf("message = %q, want %q", verr.Message, tt.want)
			}
			if store.count() != 0 {
				t.Error("invalid submission was stored")
			}
		})
	}
}

func TestSpamIsDiscardedSilently(t *testing.T) {
	messages := []string{
		"Cheap VIAGRA here",
		"Best online casino",
		"You won the lottery",
		"Visit https://spam.example/now",
		"see www.spam.example",
		"Call me at 5551234",
	}
	for _, msg := range messages {
		t.Run(msg, func(t *testing.T) {
			in, store, _ := newTestIntake(t)
			f := validForm()
			f.Message = msg

			rec, err := in.Submit(context.Background(), "192.0.2.2", f)
			if err != nil {
				t.Fatalf("spam must look like success, got %v", err)
			}
			if !rec.Discarded || store.count() != 0 {
				t.Errorf("spam was stored: receipt=%+v", rec)
			}
		})
	}
}

func TestSpamInName(t *testing.T) {
	in, store, _ := newTestIntake(t)
	f := validForm()
	f.Name = "Casino Bot"

	if rec, err := in.Submit(context.Background(), "192.0.2.3", f); err != nil || !rec.Discarded {
		t.Fatalf("receipt=%+v err=%v", rec, err)
	}
	if store.count() != 0 {
		t.Error("spam was stored")
	}
}

func TestValidEmail(t *testing.T) {
	good := []string{"a@b.co", "First.Last+tag@sub.example.org", "UPPER@EXAMPLE.COM"}
	bad := []string{"", "plain", "a@b", "a@b.c", "@example.org", "a@@example.org"}
	for _, s := range good {
		if !ValidEmail(s) {
			t.Errorf("ValidEmail(%q) = false", s)
		}
	}
	for _, s := range bad {
		if ValidEmail(s) {
			t.Errorf("ValidEmail(%q) = true", s)
		}
	}
}

func TestSubmitWithMetastore(t *testing.T) {
	l := log.New("test")
	l.SetOutput(io.Discard)
	subs, err := metastore.New(content.SubmissionKind(), nil, metastore.WithLogger[content.Submission](l))
	if err != nil {
		t.Fatal(err)
	}
	in := NewIntake(subs, nil, nil)
	ctx := context.Background()

	rec, err := in.Submit(ctx, "192.0.2.9", validForm())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	all := subs.All(ctx)
	if len(all) != 1 || all[0].ID != rec.Submission.ID {
		t.Fatalf("All = %+v", all)
	}
	if all[0].Status != content.StatusNew || all[0].Read || all[0].SubmittedAt == "" {
		t.Errorf("stored = %+v", all[0])
	}
}
