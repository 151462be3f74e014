package mongo

import (
	"context"
	"time"

	"github.com/aussiebroadwan/pharmacy/internal/account/domain"
	"github.com/aussiebroadwan/pharmacy/internal/account/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type pendingSignupsRepo struct {
	c *mongo.Collection
}

// pendingDoc is keyed by email, so at most one registration per address can
// be awaiting verification.
type pendingDoc struct {
	Email     string    `bson:"_id"`
	Username  string    `bson:"username"`
	OTP       string    `bson:"otp"`
	OTPExpiry time.Time `bson:"otp_expiry"`
	CreatedAt time.Time `bson:"created_at"`
}

func (r *pendingSignupsRepo) Upsert(ctx context.Context, p domain.PendingSignup) error {
	d := pendingDoc{
		Email:     p.Email,
		Username:  p.Username,
		OTP:       p.OTP,
		OTPExpiry: p.OTPExpiry.UTC(),
		CreatedAt: p.CreatedAt.UTC(),
	}
	_, err := r.c.ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: p.Email}},
		d,
		options.Replace().SetUpsert(true),
	)
	return err
}

func (r *pendingSignupsRepo) Get(ctx context.Context, email string) (domain.PendingSignup, error) {
	var d pendingDoc
	if err := r.c.FindOne(ctx, bson.D{{Key: "_id", Value: email}}).Decode(&d); err != nil {
		return domain.PendingSignup{}, mapNotFound(err)
	}
	return domain.PendingSignup{
		Email:     d.Email,
		Username:  d.Username,
		OTP:       d.OTP,
		OTPExpiry: d.OTPExpiry.UTC(),
		CreatedAt: d.CreatedAt.UTC(),
	}, nil
}

func (r *pendingSignupsRepo) Consume(ctx context.Context, email, code string) error {
	res, err := r.c.DeleteOne(ctx, bson.D{{Key: "_id", Value: email}, {Key: "otp", Value: code}})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *pendingSignupsRepo) Delete(ctx context.Context, email string) error {
	_, err := r.c.DeleteOne(ctx, bson.D{{Key: "_id", Value: email}})
	return err
}

func (r *pendingSignupsRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.c.DeleteMany(ctx, bson.D{{Key: "otp_expiry", Value: bson.D{{Key: "$lte", Value: now.UTC()}}}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
