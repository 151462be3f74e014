package mongo

import (
	"context"
	"time"

	"github.com/aussiebroadwan/pharmacy/internal/account/domain"
	"github.com/aussiebroadwan/pharmacy/internal/account/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type usersRepo struct {
	c *mongo.Collection
}

// userDoc is the stored shape of a user. Field names match the documents
// written by earlier releases of the desktop app.
type userDoc struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty"`
	Name               string             `bson:"name"`
	Username           string             `bson:"username"`
	Email              string             `bson:"email"`
	Mobile             string             `bson:"mobile"`
	Hospital           string             `bson:"hospital"`
	Address            string             `bson:"address"`
	PasswordHashDoc    string             `bson:"password_hash_doc"`
	PasswordHashPharma string             `bson:"password_hash_pharma"`
	OTP                *string            `bson:"otp,omitempty"`
	OTPExpiry          *time.Time         `bson:"otp_expiry,omitempty"`
	CreatedAt          time.Time          `bson:"created_at"`
	UpdatedAt          time.Time          `bson:"updated_at"`
}

func (d userDoc) toDomain() domain.User {
	u := domain.User{
		ID:                 d.ID.Hex(),
		Name:               d.Name,
		Username:           d.Username,
		Email:              d.Email,
		Mobile:             d.Mobile,
		Hospital:           d.Hospital,
		Address:            d.Address,
		PasswordHashDoc:    d.PasswordHashDoc,
		PasswordHashPharma: d.PasswordHashPharma,
		OTP:                d.OTP,
		CreatedAt:          d.CreatedAt.UTC(),
		UpdatedAt:          d.UpdatedAt.UTC(),
	}
	if d.OTPExpiry != nil {
		t := d.OTPExpiry.UTC()
		u.OTPExpiry = &t
	}
	return u
}

func (r *usersRepo) findOne(ctx context.Context, filter bson.D) (domain.User, error) {
	var d userDoc
	if err := r.c.FindOne(ctx, filter).Decode(&d); err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return d.toDomain(), nil
}

func (r *usersRepo) GetByID(ctx context.Context, id string) (domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.User{}, store.ErrNotFound
	}
	return r.findOne(ctx, bson.D{{Key: "_id", Value: oid}})
}

func (r *usersRepo) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	return r.findOne(ctx, bson.D{{Key: "username", Value: username}})
}

func (r *usersRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.findOne(ctx, bson.D{{Key: "email", Value: email}})
}

func (r *usersRepo) Create(ctx context.Context, u domain.User) (domain.User, error) {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = u.CreatedAt
	}

	d := userDoc{
		Name:               u.Name,
		Username:           u.Username,
		Email:              u.Email,
		Mobile:             u.Mobile,
		Hospital:           u.Hospital,
		Address:            u.Address,
		PasswordHashDoc:    u.PasswordHashDoc,
		PasswordHashPharma: u.PasswordHashPharma,
		CreatedAt:          u.CreatedAt,
		UpdatedAt:          u.UpdatedAt,
	}
	if u.HasOTP() {
		d.OTP, d.OTPExpiry = u.OTP, u.OTPExpiry
	}

	res, err := r.c.InsertOne(ctx, d)
	if err != nil {
		return domain.User{}, mapDuplicate(err)
	}

	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		u.ID = oid.Hex()
	}
	return u, nil
}

func (r *usersRepo) SetOTP(ctx context.Context, email, code string, expiry time.Time) error {
	return requireMatched(r.c.UpdateOne(ctx,
		bson.D{{Key: "email", Value: email}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "otp", Value: code},
			{Key: "otp_expiry", Value: expiry.UTC()},
			{Key: "updated_at", Value: time.Now().UTC()},
		}}},
	))
}

func (r *usersRepo) ClearOTP(ctx context.Context, email, code string) error {
	return requireMatched(r.c.UpdateOne(ctx,
		bson.D{{Key: "email", Value: email}, {Key: "otp", Value: code}},
		bson.D{
			{Key: "$unset", Value: bson.D{{Key: "otp", Value: ""}, {Key: "otp_expiry", Value: ""}}},
			{Key: "$set", Value: bson.D{{Key: "updated_at", Value: time.Now().UTC()}}},
		},
	))
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID string, role domain.Role, hash string) error {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return store.ErrNotFound
	}

	field := "password_hash_pharma"
	if role == domain.RoleDoctor {
		field = "password_hash_doc"
	}

	return requireMatched(r.c.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: oid}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: field, Value: hash},
			{Key: "updated_at", Value: time.Now().UTC()},
		}}},
	))
}

func (r *usersRepo) UpdateProfile(ctx context.Context, userID string, patch domain.ProfilePatch) error {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return store.ErrNotFound
	}

	set := bson.D{}
	add := func(field string, v *string) {
		if v != nil {
			set = append(set, bson.E{Key: field, Value: *v})
		}
	}
	add("name", patch.Name)
	add("mobile", patch.Mobile)
	add("hospital", patch.Hospital)
	add("address", patch.Address)
	if len(set) == 0 {
		return nil
	}
	set = append(set, bson.E{Key: "updated_at", Value: time.Now().UTC()})

	return requireMatched(r.c.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: oid}},
		bson.D{{Key: "$set", Value: set}},
	))
}

func (r *usersRepo) ClearExpiredOTPs(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.c.UpdateMany(ctx,
		bson.D{{Key: "otp_expiry", Value: bson.D{{Key: "$lte", Value: now.UTC()}}}},
		bson.D{{Key: "$unset", Value: bson.D{{Key: "otp", Value: ""}, {Key: "otp_expiry", Value: ""}}}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
