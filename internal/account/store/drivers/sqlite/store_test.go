package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/aussiebroadwan/pharmacy/internal/account/domain"
	"github.com/aussiebroadwan/pharmacy/internal/account/store"
	"github.com/aussiebroadwan/pharmacy/internal/account/store/drivers/sqlite"
	"github.com/aussiebroadwan/pharmacy/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()

	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.EnsureSchema(context.Background()))
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func testUser(username, email string) domain.User {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return domain.User{
		Name:               "Dr Smith",
		Username:           username,
		Email:              email,
		Mobile:             "555-1000",
		Hospital:           "General Hospital",
		Address:            "1 Main St",
		PasswordHashDoc:    "doc-hash",
		PasswordHashPharma: "pharma-hash",
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

func TestEnsureSchemaIdempotent(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.EnsureSchema(context.Background()))
	require.NoError(t, s.Ping(context.Background()))
}

func TestEnsureSchemaOnFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pharmacy.db")

	s, err := sqlite.NewStore("file:" + path)
	require.NoError(t, err)
	require.NoError(t, s.EnsureSchema(context.Background()))
	_, err = s.Users().Create(context.Background(), testUser("drsmith", "smith@example.com"))
	require.NoError(t, err)
	require.NoError(t, s.Close(context.Background()))

	// Reopen and find the same row.
	s, err = sqlite.NewStore("file:" + path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	require.NoError(t, s.EnsureSchema(context.Background()))

	u, err := s.Users().GetByUsername(context.Background(), "drsmith")
	require.NoError(t, err)
	require.Equal(t, "smith@example.com", u.Email)
}

func TestUsersCreateAndGet(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	in := testUser("drsmith", "smith@example.com")
	created, err := s.Users().Create(ctx, in)
	require.NoError(t, err)

	_, err = idx.Parse(created.ID)
	require.NoError(t, err, "sqlite ids are ULIDs")

	byID, err := s.Users().GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, created, byID)
	require.Nil(t, byID.OTP)
	require.Nil(t, byID.OTPExpiry)

	byName, err := s.Users().GetByUsername(ctx, "drsmith")
	require.NoError(t, err)
	require.Equal(t, created.ID, byName.ID)

	byEmail, err := s.Users().GetByEmail(ctx, "smith@example.com")
	require.NoError(t, err)
	require.Equal(t, created.ID, byEmail.ID)

	_, err = s.Users().GetByEmail(ctx, "nobody@example.com")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestUsersCreateDuplicate(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	_, err := s.Users().Create(ctx, testUser("drsmith", "smith@example.com"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		user  domain.User
		field string
	}{
		{"same email", testUser("other", "smith@example.com"), "email"},
		{"same username", testUser("drsmith", "other@example.com"), "username"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Users().Create(ctx, tt.user)
			require.ErrorIs(t, err, store.ErrAlreadyExists)

			var dup *store.DuplicateError
			require.True(t, errors.As(err, &dup))
			require.Equal(t, tt.field, dup.Field)
		})
	}
}

func TestUsersOTP(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	users := s.Users()

	_, err := users.Create(ctx, testUser("drsmith", "smith@example.com"))
	require.NoError(t, err)

	require.ErrorIs(t, users.SetOTP(ctx, "nobody@example.com", "123456", time.Now()), store.ErrNotFound)

	expiry := time.Now().Add(10 * time.Minute).UTC().Truncate(time.Millisecond)
	require.NoError(t, users.SetOTP(ctx, "smith@example.com", "123456", expiry))

	u, err := users.GetByEmail(ctx, "smith@example.com")
	require.NoError(t, err)
	require.True(t, u.HasOTP())
	require.Equal(t, "123456", *u.OTP)
	require.True(t, expiry.Equal(*u.OTPExpiry))

	// Overwrite replaces the prior code.
	require.NoError(t, users.SetOTP(ctx, "smith@example.com", "654321", expiry))
	require.ErrorIs(t, users.ClearOTP(ctx, "smith@example.com", "123456"), store.ErrNotFound)

	require.NoError(t, users.ClearOTP(ctx, "smith@example.com", "654321"))
	require.ErrorIs(t, users.ClearOTP(ctx, "smith@example.com", "654321"), store.ErrNotFound)

	u, err = users.GetByEmail(ctx, "smith@example.com")
	require.NoError(t, err)
	require.Nil(t, u.OTP)
	require.Nil(t, u.OTPExpiry)
}

func TestUsersClearExpiredOTPs(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	users := s.Users()

	for _, u := range []domain.User{testUser("a", "a@example.com"), testUser("b", "b@example.com")} {
		_, err := users.Create(ctx, u)
		require.NoError(t, err)
	}

	now := time.Now().UTC()
	require.NoError(t, users.SetOTP(ctx, "a@example.com", "111111", now.Add(-time.Minute)))
	require.NoError(t, users.SetOTP(ctx, "b@example.com", "222222", now.Add(time.Minute)))

	n, err := users.ClearExpiredOTPs(ctx, now)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	a, err := users.GetByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	require.False(t, a.HasOTP())

	b, err := users.GetByEmail(ctx, "b@example.com")
	require.NoError(t, err)
	require.True(t, b.HasOTP())
}

func TestUsersUpdatePasswordHash(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	u, err := s.Users().Create(ctx, testUser("drsmith", "smith@example.com"))
	require.NoError(t, err)

	require.NoError(t, s.Users().UpdatePasswordHash(ctx, u.ID, domain.RoleDoctor, "new-doc"))

	got, err := s.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "new-doc", got.PasswordHashDoc)
	require.Equal(t, "pharma-hash", got.PasswordHashPharma)

	require.NoError(t, s.Users().UpdatePasswordHash(ctx, u.ID, domain.RolePharmacy, "new-pharma"))
	got, err = s.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "new-doc", got.PasswordHashDoc)
	require.Equal(t, "new-pharma", got.PasswordHashPharma)

	require.ErrorIs(t, s.Users().UpdatePasswordHash(ctx, "missing", domain.RoleDoctor, "x"), store.ErrNotFound)
}

func TestUsersGetByMalformedID(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	_, err := s.Users().Create(ctx, testUser("drsmith", "smith@example.com"))
	require.NoError(t, err)

	for _, id := range []string{"", "not-an-id", "507f1f77bcf86cd799439011"} {
		_, err := s.Users().GetByID(ctx, id)
		require.ErrorIs(t, err, store.ErrNotFound, "id %q", id)
	}
}

func TestUsersUpdateProfile(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	u, err := s.Users().Create(ctx, testUser("drsmith", "smith@example.com"))
	require.NoError(t, err)

	hospital, address := "City Clinic", "2 High St"
	require.NoError(t, s.Users().UpdateProfile(ctx, u.ID, domain.ProfilePatch{Hospital: &hospital, Address: &address}))

	got, err := s.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "City Clinic", got.Hospital)
	require.Equal(t, "2 High St", got.Address)
	require.Equal(t, "Dr Smith", got.Name)
	require.Equal(t, "555-1000", got.Mobile)
	require.False(t, got.UpdatedAt.Before(u.UpdatedAt))

	require.ErrorIs(t, s.Users().UpdateProfile(ctx, "missing", domain.ProfilePatch{Hospital: &hospital}), store.ErrNotFound)
}

func TestPendingSignups(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	pending := s.PendingSignups()

	now := time.Now().UTC().Truncate(time.Millisecond)
	p := domain.PendingSignup{
		Email:     "smith@example.com",
		Username:  "drsmith",
		OTP:       "123456",
		OTPExpiry: now.Add(10 * time.Minute),
		CreatedAt: now,
	}
	require.NoError(t, pending.Upsert(ctx, p))

	got, err := pending.Get(ctx, p.Email)
	require.NoError(t, err)
	require.Equal(t, p, got)

	// A second request for the same email replaces the code.
	p.OTP = "654321"
	require.NoError(t, pending.Upsert(ctx, p))
	require.ErrorIs(t, pending.Consume(ctx, p.Email, "123456"), store.ErrNotFound)

	require.NoError(t, pending.Consume(ctx, p.Email, "654321"))
	_, err = pending.Get(ctx, p.Email)
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, pending.Delete(ctx, p.Email), "deleting a missing row is not an error")
}

func TestPendingSignupsDeleteExpired(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	pending := s.PendingSignups()

	now := time.Now().UTC()
	require.NoError(t, pending.Upsert(ctx, domain.PendingSignup{
		Email: "old@example.com", Username: "old", OTP: "1", OTPExpiry: now.Add(-time.Second), CreatedAt: now,
	}))
	require.NoError(t, pending.Upsert(ctx, domain.PendingSignup{
		Email: "new@example.com", Username: "new", OTP: "2", OTPExpiry: now.Add(time.Minute), CreatedAt: now,
	}))

	n, err := pending.DeleteExpired(ctx, now)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	_, err = pending.Get(ctx, "new@example.com")
	require.NoError(t, err)
}
