// Package contact accepts public contact-form submissions, filtering bots
// and spam before they reach the submissions store.
package contact

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/wa-psh/committee/content"
	"github.com/wa-psh/committee/limiter"
)

// Submission limits per client IP.
const (
	DefaultLimit  = 5
	DefaultWindow = 15 * time.Minute
)

// ErrRateLimited is returned when the client exceeded its submission quota.
var ErrRateLimited = errors.New("contact: rate limit exceeded")

// ValidationError carries a message suitable for display to the submitter.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Form is the raw contact form as posted.
type Form struct {
	Name         string `json:"name" form:"name"`
	Email        string `json:"email" form:"email"`
	Organization string `json:"organization" form:"organization"`
	Interest     string `json:"interest" form:"interest"`
	Message      string `json:"message" form:"message"`
	Honeypot     string `json:"honeypot" form:"honeypot"`
}

// Receipt describes the outcome of an accepted submission. Discarded
// submissions (bots, spam) get an outwardly identical receipt but were never
// stored.
type Receipt struct {
	Submission content.Submission
	Discarded  bool
	Durable    bool // false when the store only kept it in memory
}

// Store is where accepted submissions go.
type Store interface {
	Add(ctx context.Context, s content.Submission) (content.Submission, bool)
}

// Logger is the subset of the echo logger the intake writes to.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
}

// Intake validates and stores contact submissions.
type Intake struct {
	store   Store
	limiter *limiter.Limiter
	logger  Logger
}

// NewIntake returns an Intake writing to store and rate-limited by lim. A
// nil lim uses DefaultLimit per DefaultWindow; a nil logger discards.
func NewIntake(store Store, lim *limiter.Limiter, logger Logger) *Intake {
	if lim == nil {
		lim = limiter.New(DefaultLimit, DefaultWindow)
	}
	if logger == nil {
		l := log.New("contact")
		l.SetOutput(io.Discard)
		logger = l
	}
	return &Intake{store: store, limiter: lim, logger: logger}
}

// Limiter returns the intake's rate limiter.
func (in *Intake) Limiter() *limiter.Limiter { return in.limiter }

// Submit runs the checks in order: honeypot, rate limit, required fields,
// email format, spam heuristics, then persists. ip keys the rate limit and
// is stored with the submission.
func (in *Intake) Submit(ctx context.Context, ip string, f Form) (Receipt, error) {
	if strings.TrimSpace(f.Honeypot) != "" {
		in.logger.Warnf("contact: honeypot triggered from %s", ip)
		return Receipt{Discarded: true}, nil
	}

	if !in.limiter.Allow(ip) {
		return Receipt{}, ErrRateLimited
	}

	name := strings.TrimSpace(f.Name)
	email := strings.TrimSpace(f.Email)
	message := strings.TrimSpace(f.Message)
	if name == "" || email == "" || message == "" {
		return Receipt{}, &ValidationError{Message: "Name, email, and message are required"}
	}
	if !ValidEmail(email) {
		return Receipt{}, &ValidationError{Message: "Invalid email address"}
	}

	if LooksLikeSpam(message, name) {
		in.logger.Warnf("contact: suspicious content from %s discarded", ip)
		return Receipt{Discarded: true}, nil
	}

	sub, durable := in.store.Add(ctx, content.Submission{
		Name:         name,
		Email:        email,
		Organization: strings.TrimSpace(f.Organization),
		Interest:     strings.TrimSpace(f.Interest),
		Message:      message,
		IP:           ip,
	})
	in.logger.Infof("contact: submission %s stored", sub.ID)
	return Receipt{Submission: sub, Durable: durable}, nil
}
