// Package mongodb stores users in a MongoDB collection.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ayofalola240/Okra-assessment/internal/domain/user"
	"github.com/ayofalola240/Okra-assessment/internal/observability"
)

const (
	collectionName = "users"
	// optimistic update attempts before giving up with ErrConcurrentUpdate
	maxUpdateAttempts = 5
)

type addressDoc struct {
	LGA   string `bson:"lga"`
	City  string `bson:"city"`
	State string `bson:"state"`
}

type userDoc struct {
	ID          string     `bson:"_id"`
	Email       string     `bson:"email"`
	FirstName   string     `bson:"firstName"`
	LastName    string     `bson:"lastName"`
	UserName    string     `bson:"userName"`
	PhoneNumber string     `bson:"phoneNumber"`
	Gender      string     `bson:"gender"`
	Roles       []string   `bson:"roles"`
	DOB         time.Time  `bson:"dob"`
	Age         int        `bson:"age"`
	Address     addressDoc `bson:"address"`
	CreatedAt   time.Time  `bson:"createdAt"`
	UpdatedAt   time.Time  `bson:"updatedAt"`
	Version     int64      `bson:"version"`
}

type UsersRepo struct {
	client *mongo.Client
	coll   *mongo.Collection
	prom   *observability.Prom
	now    func() time.Time
}

func NewUsersRepo(client *mongo.Client, database string, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{
		client: client,
		coll:   client.Database(database).Collection(collectionName),
		prom:   prom,
		// BSON datetimes carry milliseconds
		now: func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

// Connect dials and pings, so a bad URI fails at boot.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return client, nil
}

// EnsureIndexes creates the unique email index and the listing index.
func (r *UsersRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("users_email_unique"),
		},
		{
			Keys:    bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("users_created_at_id"),
		},
	})
	if err != nil {
		return fmt.Errorf("ensure users indexes: %w", err)
	}

	return nil
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	return translate(op, r.prom.ObserveDB(op, fn))
}

func (r *UsersRepo) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, nil)
}

func (r *UsersRepo) FindByEmail(ctx context.Context, email string) (user.User, error) {
	var doc userDoc

	err := r.observe("users.find_by_email", func() error {
		return r.coll.FindOne(ctx, bson.M{"email": email}).Decode(&doc)
	})
	if err != nil {
		return user.User{}, err
	}

	return doc.toUser(), nil
}

func (r *UsersRepo) Insert(ctx context.Context, u user.User) (user.User, error) {
	now := r.now()

	doc := fromUser(u)
	doc.ID = uuid.NewString()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	doc.Version = 1

	err := r.observe("users.insert", func() error {
		_, err := r.coll.InsertOne(ctx, doc)
		return err
	})
	if err != nil {
		return user.User{}, err
	}

	return doc.toUser(), nil
}

func (r *UsersRepo) FindByID(ctx context.Context, id string) (user.User, error) {
	doc, err := r.findDoc(ctx, id)
	if err != nil {
		return user.User{}, err
	}

	return doc.toUser(), nil
}

func (r *UsersRepo) findDoc(ctx context.Context, id string) (userDoc, error) {
	var doc userDoc

	err := r.observe("users.find_by_id", func() error {
		return r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	})

	return doc, err
}

// Update is read-modify-write guarded by the version field. A lost race is
// retried on fresh state a few times.
func (r *UsersRepo) Update(ctx context.Context, id string, mutate func(user.User) user.User) (user.User, error) {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		current, err := r.findDoc(ctx, id)
		if err != nil {
			return user.User{}, err
		}

		next := fromUser(mutate(current.toUser()))
		next.ID = current.ID
		next.Email = current.Email
		next.Roles = current.Roles
		next.DOB = current.DOB
		next.CreatedAt = current.CreatedAt
		next.UpdatedAt = r.now()
		next.Version = current.Version + 1

		if next.UpdatedAt.Before(current.UpdatedAt) {
			next.UpdatedAt = current.UpdatedAt
		}

		var res *mongo.UpdateResult

		err = r.observe("users.update", func() error {
			var err error
			res, err = r.coll.UpdateOne(ctx,
				bson.M{"_id": id, "version": current.Version},
				bson.M{"$set": bson.M{
					"firstName":   next.FirstName,
					"lastName":    next.LastName,
					"userName":    next.UserName,
					"phoneNumber": next.PhoneNumber,
					"gender":      next.Gender,
					"age":         next.Age,
					"address":     next.Address,
					"updatedAt":   next.UpdatedAt,
					"version":     next.Version,
				}},
			)
			return err
		})
		if err != nil {
			return user.User{}, err
		}

		if res.MatchedCount == 1 {
			return next.toUser(), nil
		}
	}

	return user.User{}, user.ErrConcurrentUpdate
}

func (r *UsersRepo) Delete(ctx context.Context, id string) (user.User, error) {
	var doc userDoc

	err := r.observe("users.delete", func() error {
		return r.coll.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&doc)
	})
	if err != nil {
		return user.User{}, err
	}

	return doc.toUser(), nil
}

func (r *UsersRepo) ListPage(ctx context.Context, offset, limit int) ([]user.User, int, error) {
	var total int64

	err := r.observe("users.count", func() error {
		var err error
		total, err = r.coll.CountDocuments(ctx, bson.D{})
		return err
	})
	if err != nil {
		return nil, 0, err
	}

	out := make([]user.User, 0, limit)

	err = r.observe("users.list_page", func() error {
		opts := options.Find().
			SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}).
			SetSkip(int64(offset)).
			SetLimit(int64(limit))

		cur, err := r.coll.Find(ctx, bson.D{}, opts)
		if err != nil {
			return err
		}
		defer cur.Close(ctx)

		for cur.Next(ctx) {
			var doc userDoc
			if err := cur.Decode(&doc); err != nil {
				return err
			}
			out = append(out, doc.toUser())
		}

		return cur.Err()
	})
	if err != nil {
		return nil, 0, err
	}

	return out, int(total), nil
}

type summaryDoc struct {
	Name   string `bson:"name"`
	Gender string `bson:"gender"`
	Age    int    `bson:"age"`
}

type cityGroupDoc struct {
	City       *string      `bson:"_id"`
	AverageAge float64      `bson:"averageAge"`
	TotalUsers int          `bson:"totalUsers"`
	Users      []summaryDoc `bson:"users"`
}

// cityPipeline groups by city with missing and empty folded into null.
// Mongo sorts null first; the report engine applies the final order.
var cityPipeline = mongo.Pipeline{
	{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}}},
	{{Key: "$group", Value: bson.D{
		{Key: "_id", Value: bson.M{"$cond": bson.A{
			bson.M{"$eq": bson.A{bson.M{"$ifNull": bson.A{"$address.city", ""}}, ""}},
			nil,
			"$address.city",
		}}},
		{Key: "averageAge", Value: bson.M{"$avg": "$age"}},
		{Key: "totalUsers", Value: bson.M{"$sum": 1}},
		{Key: "users", Value: bson.M{"$push": bson.M{
			"name":   bson.M{"$concat": bson.A{"$firstName", " ", "$lastName"}},
			"gender": "$gender",
			"age":    "$age",
		}}},
	}}},
	{{Key: "$sort", Value: bson.D{{Key: "totalUsers", Value: -1}, {Key: "_id", Value: 1}}}},
}

func (r *UsersRepo) AggregateByCity(ctx context.Context) ([]user.CityStat, error) {
	out := []user.CityStat{}

	err := r.observe("users.aggregate_by_city", func() error {
		cur, err := r.coll.Aggregate(ctx, cityPipeline)
		if err != nil {
			return err
		}
		defer cur.Close(ctx)

		for cur.Next(ctx) {
			var g cityGroupDoc
			if err := cur.Decode(&g); err != nil {
				return err
			}

			stat := user.CityStat{
				City:       g.City,
				AverageAge: g.AverageAge,
				TotalUsers: g.TotalUsers,
				Users:      make([]user.UserSummary, 0, len(g.Users)),
			}

			for _, s := range g.Users {
				stat.Users = append(stat.Users, user.UserSummary{
					FullName: s.Name,
					City:     g.City,
					Gender:   user.Gender(s.Gender),
					Age:      s.Age,
				})
			}

			out = append(out, stat)
		}

		return cur.Err()
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

func fromUser(u user.User) userDoc {
	roles := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		roles = append(roles, string(r))
	}

	return userDoc{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		UserName:    u.UserName,
		PhoneNumber: u.PhoneNumber,
		Gender:      string(u.Gender),
		Roles:       roles,
		DOB:         u.DOB,
		Age:         u.Age,
		Address:     addressDoc{LGA: u.Address.LGA, City: u.Address.City, State: u.Address.State},
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func (d userDoc) toUser() user.User {
	roles := make([]user.Role, 0, len(d.Roles))
	for _, r := range d.Roles {
		roles = append(roles, user.Role(r))
	}

	return user.User{
		ID:          d.ID,
		Email:       d.Email,
		FirstName:   d.FirstName,
		LastName:    d.LastName,
		UserName:    d.UserName,
		PhoneNumber: d.PhoneNumber,
		Gender:      user.Gender(d.Gender),
		Roles:       roles,
		DOB:         d.DOB.UTC(),
		Age:         d.Age,
		Address:     user.Address{LGA: d.Address.LGA, City: d.Address.City, State: d.Address.State},
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
}

func isUnavailable(err error) bool {
	return mongo.IsTimeout(err) ||
		mongo.IsNetworkError(err) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, mongo.ErrClientDisconnected)
}

func translate(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return user.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return user.ErrDuplicateEmail
	case isUnavailable(err):
		return fmt.Errorf("%s: %w: %v", op, user.ErrStoreUnavailable, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
