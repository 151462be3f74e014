package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/pharmacy/internal/account/domain"
	"github.com/stretchr/testify/require"
)

func TestValidateOTPLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signup(t, drSmith())

	err := f.otp.ValidateOTP(ctx, "smith@example.com", "123456")
	require.ErrorIs(t, err, domain.ErrInvalidOrExpiredOTP, "nothing issued yet")

	require.NoError(t, f.otp.IssueOTP(ctx, "smith@example.com"))
	code := f.mail.lastCode(t, "smith@example.com")
	require.Len(t, code, 6)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	require.ErrorIs(t, f.otp.ValidateOTP(ctx, "smith@example.com", wrong), domain.ErrInvalidOrExpiredOTP)
	require.ErrorIs(t, f.otp.ValidateOTP(ctx, "smith@example.com", " "+code), domain.ErrInvalidOrExpiredOTP)

	require.NoError(t, f.otp.ValidateOTP(ctx, "SMITH@example.com", code))
	require.ErrorIs(t, f.otp.ValidateOTP(ctx, "smith@example.com", code), domain.ErrInvalidOrExpiredOTP, "single use")
}

func TestValidateOTPExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signup(t, drSmith())

	require.NoError(t, f.otp.IssueOTP(ctx, "smith@example.com"))
	code := f.mail.lastCode(t, "smith@example.com")

	f.clock.Advance(10 * time.Minute)
	require.ErrorIs(t, f.otp.ValidateOTP(ctx, "smith@example.com", code), domain.ErrInvalidOrExpiredOTP)

	require.NoError(t, f.otp.IssueOTP(ctx, "smith@example.com"))
	code = f.mail.lastCode(t, "smith@example.com")

	f.clock.Advance(10*time.Minute - time.Second)
	require.NoError(t, f.otp.ValidateOTP(ctx, "smith@example.com", code))
}

func TestIssueOTPReplacesPriorCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signup(t, drSmith())

	require.NoError(t, f.otp.IssueOTP(ctx, "smith@example.com"))
	first := f.mail.lastCode(t, "smith@example.com")
	require.NoError(t, f.otp.IssueOTP(ctx, "smith@example.com"))
	second := f.mail.lastCode(t, "smith@example.com")

	if first != second {
		require.ErrorIs(t, f.otp.ValidateOTP(ctx, "smith@example.com", first), domain.ErrInvalidOrExpiredOTP)
	}
	require.NoError(t, f.otp.ValidateOTP(ctx, "smith@example.com", second))
}

func TestIssueOTPUnknownEmail(t *testing.T) {
	f := newFixture(t)

	err := f.otp.IssueOTP(context.Background(), "nobody@example.com")
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.Zero(t, f.mail.count())
}

func TestIssueOTPDispatchFailureWithdrawsCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signup(t, drSmith())

	f.mail.fail(errors.New("smtp: connection refused"))
	err := f.otp.IssueOTP(ctx, "smith@example.com")
	require.ErrorIs(t, err, domain.ErrDispatch)
	require.Equal(t, domain.DispatchError, domain.KindOf(err))

	u, err := f.store.Users().GetByEmail(ctx, "smith@example.com")
	require.NoError(t, err)
	require.False(t, u.HasOTP(), "undelivered code must not stay valid")
}

func TestValidateOTPConcurrentUseSucceedsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signup(t, drSmith())

	require.NoError(t, f.otp.IssueOTP(ctx, "smith@example.com"))
	code := f.mail.lastCode(t, "smith@example.com")

	const n = 8
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = f.otp.ValidateOTP(ctx, "smith@example.com", code)
		}()
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		require.ErrorIs(t, err, domain.ErrInvalidOrExpiredOTP)
	}
	require.Equal(t, 1, ok)
}
