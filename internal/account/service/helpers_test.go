package service_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/pharmacy/internal/account/domain"
	"github.com/aussiebroadwan/pharmacy/internal/account/mailer"
	"github.com/aussiebroadwan/pharmacy/internal/account/service"
	"github.com/aussiebroadwan/pharmacy/internal/account/store/drivers/sqlite"
	"github.com/aussiebroadwan/pharmacy/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "pharmacy-service-test")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

// outbox records sent mail, or fails every send while failWith is set.
type outbox struct {
	mu       sync.Mutex
	sent     []mailer.Message
	failWith error
}

func (o *outbox) Send(_ context.Context, m mailer.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.failWith != nil {
		return o.failWith
	}
	o.sent = append(o.sent, m)
	return nil
}

func (o *outbox) fail(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failWith = err
}

// lastCode returns the code of the most recent mail to addr.
func (o *outbox) lastCode(t *testing.T, addr string) string {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()

	for i := len(o.sent) - 1; i >= 0; i-- {
		if o.sent[i].To == addr {
			return strings.TrimPrefix(o.sent[i].Body, "Your OTP code is: ")
		}
	}
	t.Fatalf("no mail sent to %s", addr)
	return ""
}

func (o *outbox) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.sent)
}

// clock is a settable time source.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock {
	return &clock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	store    *sqlite.Store
	accounts *service.AccountService
	otp      *service.OTPService
	mail     *outbox
	clock    *clock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.EnsureSchema(context.Background()))
	t.Cleanup(func() { _ = st.Close(context.Background()) })

	f := &fixture{store: st, mail: &outbox{}, clock: newClock()}
	f.otp = &service.OTPService{Store: st, Mailer: f.mail, Now: f.clock.Now}
	f.accounts = &service.AccountService{Store: st, OTP: f.otp, Now: f.clock.Now}
	return f
}

func drSmith() domain.SignupRequest {
	return domain.SignupRequest{
		Name:           "Dr Smith",
		Username:       "drsmith",
		Email:          "smith@example.com",
		Mobile:         "555-1000",
		Hospital:       "General Hospital",
		Address:        "1 Main St",
		PasswordDoc:    "pwd1",
		PasswordPharma: "pwd2",
	}
}

func (f *fixture) signup(t *testing.T, req domain.SignupRequest) domain.User {
	t.Helper()
	u, err := f.accounts.Signup(context.Background(), req)
	require.NoError(t, err)
	return u
}
