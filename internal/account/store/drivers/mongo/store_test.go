package mongo_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aussiebroadwan/pharmacy/internal/account/domain"
	"github.com/aussiebroadwan/pharmacy/internal/account/store"
	"github.com/aussiebroadwan/pharmacy/internal/account/store/drivers/mongo"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// setupMongo starts a throwaway MongoDB and returns a store on a fresh
// database. Skipped in -short mode or when Docker is not available.
func setupMongo(t *testing.T) *mongo.Store {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping MongoDB container test in short mode")
	}

	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor: wait.ForListeningPort("27017/tcp").
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("Skipping MongoDB container test, docker unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "27017")
	require.NoError(t, err)

	uri := fmt.Sprintf("mongodb://%s:%s", host, port.Port())
	s, err := mongo.NewStore(ctx, uri, "users_db_test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(ctx) })

	require.NoError(t, s.Ping(ctx))
	require.NoError(t, s.EnsureSchema(ctx))
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

func TestMongoStore(t *testing.T) {
	s := setupMongo(t)
	ctx := context.Background()
	users := s.Users()

	// Schema creation must be repeatable on every start.
	require.NoError(t, s.EnsureSchema(ctx))

	var created domain.User

	t.Run("create assigns object id", func(t *testing.T) {
		var err error
		created, err = users.Create(ctx, testUser("drsmith", "smith@example.com"))
		require.NoError(t, err)

		_, err = primitive.ObjectIDFromHex(created.ID)
		require.NoError(t, err)

		got, err := users.GetByID(ctx, created.ID)
		require.NoError(t, err)
		require.Equal(t, created, got)
	})

	t.Run("lookups", func(t *testing.T) {
		got, err := users.GetByUsername(ctx, "drsmith")
		require.NoError(t, err)
		require.Equal(t, created.ID, got.ID)

		got, err = users.GetByEmail(ctx, "smith@example.com")
		require.NoError(t, err)
		require.Equal(t, created.ID, got.ID)

		_, err = users.GetByEmail(ctx, "nobody@example.com")
		require.ErrorIs(t, err, store.ErrNotFound)

		_, err = users.GetByID(ctx, "not-an-object-id")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("unique indexes", func(t *testing.T) {
		_, err := users.Create(ctx, testUser("other", "smith@example.com"))
		var dup *store.DuplicateError
		require.True(t, errors.As(err, &dup))
		require.Equal(t, "email", dup.Field)

		_, err = users.Create(ctx, testUser("drsmith", "other@example.com"))
		require.True(t, errors.As(err, &dup))
		require.Equal(t, "username", dup.Field)
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})

	t.Run("otp set and conditional clear", func(t *testing.T) {
		expiry := time.Now().Add(10 * time.Minute).UTC().Truncate(time.Millisecond)
		require.NoError(t, users.SetOTP(ctx, "smith@example.com", "123456", expiry))
		require.ErrorIs(t, users.SetOTP(ctx, "nobody@example.com", "1", expiry), store.ErrNotFound)

		got, err := users.GetByEmail(ctx, "smith@example.com")
		require.NoError(t, err)
		require.True(t, got.HasOTP())
		require.Equal(t, "123456", *got.OTP)
		require.True(t, expiry.Equal(*got.OTPExpiry))

		require.ErrorIs(t, users.ClearOTP(ctx, "smith@example.com", "000000"), store.ErrNotFound)
		require.NoError(t, users.ClearOTP(ctx, "smith@example.com", "123456"))
		require.ErrorIs(t, users.ClearOTP(ctx, "smith@example.com", "123456"), store.ErrNotFound)

		got, err = users.GetByEmail(ctx, "smith@example.com")
		require.NoError(t, err)
		require.False(t, got.HasOTP())
	})

	t.Run("expired otps are cleared", func(t *testing.T) {
		require.NoError(t, users.SetOTP(ctx, "smith@example.com", "123456", time.Now().Add(-time.Minute)))

		n, err := users.ClearExpiredOTPs(ctx, time.Now())
		require.NoError(t, err)
		require.Equal(t, int64(1), n)
	})

	t.Run("password hash per role", func(t *testing.T) {
		require.NoError(t, users.UpdatePasswordHash(ctx, created.ID, domain.RoleDoctor, "new-doc"))

		got, err := users.GetByID(ctx, created.ID)
		require.NoError(t, err)
		require.Equal(t, "new-doc", got.PasswordHashDoc)
		require.Equal(t, "pharma-hash", got.PasswordHashPharma)
	})

	t.Run("profile patch", func(t *testing.T) {
		hospital := "City Clinic"
		require.NoError(t, users.UpdateProfile(ctx, created.ID, domain.ProfilePatch{Hospital: &hospital}))

		got, err := users.GetByID(ctx, created.ID)
		require.NoError(t, err)
		require.Equal(t, "City Clinic", got.Hospital)
		require.Equal(t, "1 Main St", got.Address)
	})

	t.Run("pending signups", func(t *testing.T) {
		pending := s.PendingSignups()
		now := time.Now().UTC().Truncate(time.Millisecond)

		p := domain.PendingSignup{
			Email: "new@example.com", Username: "newbie", OTP: "111111",
			OTPExpiry: now.Add(10 * time.Minute), CreatedAt: now,
		}
		require.NoError(t, pending.Upsert(ctx, p))
		p.OTP = "222222"
		require.NoError(t, pending.Upsert(ctx, p))

		got, err := pending.Get(ctx, p.Email)
		require.NoError(t, err)
		require.Equal(t, p, got)

		require.ErrorIs(t, pending.Consume(ctx, p.Email, "111111"), store.ErrNotFound)
		require.NoError(t, pending.Consume(ctx, p.Email, "222222"))

		require.NoError(t, pending.Upsert(ctx, domain.PendingSignup{
			Email: "old@example.com", Username: "old", OTP: "3", OTPExpiry: now.Add(-time.Minute), CreatedAt: now,
		}))
		n, err := pending.DeleteExpired(ctx, now)
		require.NoError(t, err)
		require.LessOrEqual(t, n, int64(1), "the TTL monitor may already have removed it")

		_, err = pending.Get(ctx, "old@example.com")
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}
