package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/pharmacy/internal/account/domain"
)

type pendingSignupsRepo struct {
	db *sql.DB
}

func (r *pendingSignupsRepo) Upsert(ctx context.Context, p domain.PendingSignup) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO pending_signups (email, username, otp, otp_expiry, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (email) DO UPDATE SET
			username   = excluded.username,
			otp        = excluded.otp,
			otp_expiry = excluded.otp_expiry,
			created_at = excluded.created_at`,
		p.Email, p.Username, p.OTP, toMillis(p.OTPExpiry), toMillis(p.CreatedAt),
	)
	return err
}

func (r *pendingSignupsRepo) Get(ctx context.Context, email string) (domain.PendingSignup, error) {
	var (
		p                    domain.PendingSignup
		otpExpiry, createdAt int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT email, username, otp, otp_expiry, created_at FROM pending_signups WHERE email = ?`, email,
	).Scan(&p.Email, &p.Username, &p.OTP, &otpExpiry, &createdAt)
	if err != nil {
		return domain.PendingSignup{}, mapNotFound(err)
	}

	p.OTPExpiry = fromMillis(otpExpiry)
	p.CreatedAt = fromMillis(createdAt)
	return p, nil
}

func (r *pendingSignupsRepo) Consume(ctx context.Context, email, code string) error {
	return requireAffected(r.db.ExecContext(ctx,
		`DELETE FROM pending_signups WHERE email = ? AND otp = ?`, email, code,
	))
}

func (r *pendingSignupsRepo) Delete(ctx context.Context, email string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM pending_signups WHERE email = ?`, email)
	return err
}

func (r *pendingSignupsRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM pending_signups WHERE otp_expiry <= ?`, toMillis(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
