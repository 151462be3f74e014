package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/aussiebroadwan/pharmacy/internal/account/domain"
	"github.com/aussiebroadwan/pharmacy/internal/account/store"
	"github.com/aussiebroadwan/pharmacy/pkg/idx"
)

type usersRepo struct {
	db *sql.DB
}

const userColumns = `id, name, username, email, mobile, hospital, address,
	password_hash_doc, password_hash_pharma, otp, otp_expiry, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (domain.User, error) {
	var (
		u                    domain.User
		otp                  sql.NullString
		otpExpiry            sql.NullInt64
		createdAt, updatedAt int64
	)
	err := row.Scan(
		&u.ID, &u.Name, &u.Username, &u.Email, &u.Mobile, &u.Hospital, &u.Address,
		&u.PasswordHashDoc, &u.PasswordHashPharma, &otp, &otpExpiry, &createdAt, &updatedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}

	u.OTP = mapNullStringPtr(otp)
	u.OTPExpiry = mapNullMillisPtr(otpExpiry)
	u.CreatedAt = fromMillis(createdAt)
	u.UpdatedAt = fromMillis(updatedAt)
	return u, nil
}

func (r *usersRepo) getBy(ctx context.Context, column, value string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+column+` = ?`, value)
	return scanUser(row)
}

func (r *usersRepo) GetByID(ctx context.Context, id string) (domain.User, error) {
	if _, err := idx.Parse(id); err != nil {
		return domain.User{}, store.ErrNotFound
	}
	return r.getBy(ctx, "id", id)
}

func (r *usersRepo) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	return r.getBy(ctx, "username", username)
}

func (r *usersRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.getBy(ctx, "email", email)
}

func (r *usersRepo) Create(ctx context.Context, u domain.User) (domain.User, error) {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = u.CreatedAt
	}
	u.ID = idx.NewAt(u.CreatedAt).String()

	var (
		otp       sql.NullString
		otpExpiry sql.NullInt64
	)
	if u.HasOTP() {
		otp = sql.NullString{String: *u.OTP, Valid: true}
		otpExpiry = sql.NullInt64{Int64: toMillis(*u.OTPExpiry), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Username, u.Email, u.Mobile, u.Hospital, u.Address,
		u.PasswordHashDoc, u.PasswordHashPharma, otp, otpExpiry,
		toMillis(u.CreatedAt), toMillis(u.UpdatedAt),
	)
	if err != nil {
		return domain.User{}, mapConstraint(err)
	}
	return u, nil
}

func (r *usersRepo) SetOTP(ctx context.Context, email, code string, expiry time.Time) error {
	return requireAffected(r.db.ExecContext(ctx,
		`UPDATE users SET otp = ?, otp_expiry = ?, updated_at = ? WHERE email = ?`,
		code, toMillis(expiry), toMillis(time.Now()), email,
	))
}

func (r *usersRepo) ClearOTP(ctx context.Context, email, code string) error {
	return requireAffected(r.db.ExecContext(ctx,
		`UPDATE users SET otp = NULL, otp_expiry = NULL, updated_at = ? WHERE email = ? AND otp = ?`,
		toMillis(time.Now()), email, code,
	))
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID string, role domain.Role, hash string) error {
	column := "password_hash_pharma"
	if role == domain.RoleDoctor {
		column = "password_hash_doc"
	}
	return requireAffected(r.db.ExecContext(ctx,
		`UPDATE users SET `+column+` = ?, updated_at = ? WHERE id = ?`,
		hash, toMillis(time.Now()), userID,
	))
}

func (r *usersRepo) UpdateProfile(ctx context.Context, userID string, patch domain.ProfilePatch) error {
	var (
		sets []string
		args []any
	)
	add := func(column string, v *string) {
		if v != nil {
			sets = append(sets, column+" = ?")
			args = append(args, *v)
		}
	}
	add("name", patch.Name)
	add("mobile", patch.Mobile)
	add("hospital", patch.Hospital)
	add("address", patch.Address)
	if len(sets) == 0 {
		return nil
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, toMillis(time.Now()), userID)

	return requireAffected(r.db.ExecContext(ctx,
		`UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...,
	))
}

func (r *usersRepo) ClearExpiredOTPs(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET otp = NULL, otp_expiry = NULL WHERE otp_expiry IS NOT NULL AND otp_expiry <= ?`,
		toMillis(now),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
