package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"co2monitor/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	UsersCollection  = "users"
	AlertsCollection = "alerts"

	compensationTimeout = 5 * time.Second
)

type userDocument struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty"`
	FullName  string               `bson:"fullName"`
	Email     string               `bson:"email"`
	Password  string               `bson:"password,omitempty"`
	Alerts    []primitive.ObjectID `bson:"alerts"`
	CreatedAt time.Time            `bson:"createdAt"`
}

type alertDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Topic     string             `bson:"topic"`
	Port      int                `bson:"port"`
	CO2Limit  float64            `bson:"co2Limit"`
	Broker    string             `bson:"broker"`
	CreatedAt time.Time          `bson:"createdAt"`
}

// EnsureMongoIndexes creates the unique email index the user repository relies on.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(UsersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("email_unique"),
	})
	if err != nil {
		return fmt.Errorf("failed to create users.email index: %w", err)
	}
	return nil
}

// MongoUserRepository is a MongoDB implementation of UserRepository.
type MongoUserRepository struct {
	users *mongo.Collection
}

// NewMongoUserRepository creates a new instance of MongoUserRepository.
func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{users: db.Collection(UsersCollection)}
}

// Create inserts a new user document.
func (r *MongoUserRepository) Create(ctx context.Context, user *models.User) error {
	doc, err := newUserDocument(user)
	if err != nil {
		return err
	}
	if _, err := r.users.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateEmail, user.Email)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	*user = doc.toModel()
	return nil
}

// GetByEmail retrieves a user by email.
func (r *MongoUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email}, email)
}

// GetByID retrieves a user by its ObjectID hex string.
func (r *MongoUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return r.findOne(ctx, bson.M{"_id": oid}, id)
}

// GetProfile retrieves a user by ID, projecting the password away.
func (r *MongoUserRepository) GetProfile(ctx context.Context, id string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return r.findOne(ctx, bson.M{"_id": oid}, id, options.FindOne().SetProjection(bson.M{"password": 0}))
}

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.M, key string, opts ...*options.FindOneOptions) (*models.User, error) {
	var doc userDocument
	if err := r.users.FindOne(ctx, filter, opts...).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("user %s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user %s: %w", key, err)
	}
	user := doc.toModel()
	return &user, nil
}

// MongoAlertRepository is a MongoDB implementation of AlertRepository.
type MongoAlertRepository struct {
	users  *mongo.Collection
	alerts *mongo.Collection
}

// NewMongoAlertRepository creates a new instance of MongoAlertRepository.
func NewMongoAlertRepository(db *mongo.Database) *MongoAlertRepository {
	return &MongoAlertRepository{
		users:  db.Collection(UsersCollection),
		alerts: db.Collection(AlertsCollection),
	}
}

// AttachToUser inserts the alert and pushes its id onto the user's alerts array.
// Standalone servers have no multi-document transactions, so a failed push is
// compensated by deleting the alert again.
func (r *MongoAlertRepository) AttachToUser(ctx context.Context, userID string, alert *models.Alert) error {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}

	owners, err := r.users.CountDocuments(ctx, bson.M{"_id": oid}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("failed to look up user %s: %w", userID, err)
	}
	if owners == 0 {
		return fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}

	doc, err := newAlertDocument(alert)
	if err != nil {
		return err
	}
	if _, err := r.alerts.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}

	res, err := r.users.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$push": bson.M{"alerts": doc.ID}})
	switch {
	case err != nil:
		err = fmt.Errorf("failed to link alert %s to user %s: %w", doc.ID.Hex(), userID, err)
	case res.MatchedCount == 0:
		err = fmt.Errorf("user %s: %w", userID, ErrNotFound)
	default:
		*alert = doc.toModel()
		return nil
	}

	if cerr := r.deleteAlert(ctx, doc.ID); cerr != nil {
		return errors.Join(err, cerr)
	}
	return err
}

// deleteAlert removes an alert left behind by a failed attach. It runs even when
// the request context is already done.
func (r *MongoAlertRepository) deleteAlert(ctx context.Context, id primitive.ObjectID) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()
	if _, err := r.alerts.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("failed to remove unlinked alert %s: %w", id.Hex(), err)
	}
	return nil
}

// GetByID retrieves an alert by its ObjectID hex string.
func (r *MongoAlertRepository) GetByID(ctx context.Context, id string) (*models.Alert, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("alert %s: %w", id, ErrNotFound)
	}
	var doc alertDocument
	if err := r.alerts.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("alert %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get alert by ID %s: %w", id, err)
	}
	alert := doc.toModel()
	return &alert, nil
}

func newUserDocument(user *models.User) (userDocument, error) {
	doc := userDocument{
		ID:        primitive.NewObjectID(),
		FullName:  user.FullName,
		Email:     user.Email,
		Password:  user.Password,
		Alerts:    []primitive.ObjectID{}, // $push needs an array, not null
		CreatedAt: user.CreatedAt,
	}
	if user.ID != "" {
		oid, err := primitive.ObjectIDFromHex(user.ID)
		if err != nil {
			return userDocument{}, fmt.Errorf("invalid user id %q: %w", user.ID, err)
		}
		doc.ID = oid
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	return doc, nil
}

func (d userDocument) toModel() models.User {
	alerts := make([]string, 0, len(d.Alerts))
	for _, id := range d.Alerts {
		alerts = append(alerts, id.Hex())
	}
	return models.User{
		ID:        d.ID.Hex(),
		FullName:  d.FullName,
		Email:     d.Email,
		Password:  d.Password,
		Alerts:    alerts,
		CreatedAt: d.CreatedAt,
	}
}

func newAlertDocument(alert *models.Alert) (alertDocument, error) {
	doc := alertDocument{
		ID:        primitive.NewObjectID(),
		Topic:     alert.Topic,
		Port:      alert.Port,
		CO2Limit:  alert.CO2Limit,
		Broker:    alert.Broker,
		CreatedAt: alert.CreatedAt,
	}
	if alert.ID != "" {
		oid, err := primitive.ObjectIDFromHex(alert.ID)
		if err != nil {
			return alertDocument{}, fmt.Errorf("invalid alert id %q: %w", alert.ID, err)
		}
		doc.ID = oid
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	return doc, nil
}

func (d alertDocument) toModel() models.Alert {
	return models.Alert{
		ID:        d.ID.Hex(),
		Topic:     d.Topic,
		Port:      d.Port,
		CO2Limit:  d.CO2Limit,
		Broker:    d.Broker,
		CreatedAt: d.CreatedAt,
	}
}
