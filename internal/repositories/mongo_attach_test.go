package repositories_test

import (
	"context"
	"testing"

	"co2monitor/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/event"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func userCount(mt *mtest.T, n int) bson.D {
	ns := mt.DB.Name() + "." + repositories.UsersCollection
	return mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "n", Value: n}})
}

func updated(n int) bson.D {
	return mtest.CreateSuccessResponse(bson.E{Key: "n", Value: n}, bson.E{Key: "nModified", Value: n})
}

func commandNames(mt *mtest.T) []string {
	var names []string
	for _, evt := range mt.GetAllStartedEvents() {
		names = append(names, evt.CommandName)
	}
	return names
}

func startedEvent(mt *mtest.T, name string) *event.CommandStartedEvent {
	for _, evt := range mt.GetAllStartedEvents() {
		if evt.CommandName == name {
			return evt
		}
	}
	return nil
}

// insertedAlertID returns the _id of the alert document sent with the insert command.
func insertedAlertID(mt *mtest.T) primitive.ObjectID {
	insert := startedEvent(mt, "insert")
	require.NotNil(mt, insert)
	return insert.Command.Lookup("documents", "0", "_id").ObjectID()
}

func TestMongoAlertRepository_AttachToUser(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()
	userID := primitive.NewObjectID().Hex()

	mt.Run("success", func(mt *mtest.T) {
		repo := repositories.NewMongoAlertRepository(mt.DB)
		mt.AddMockResponses(
			userCount(mt, 1),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
			updated(1),
		)

		alert := kitchenAlert()
		require.NoError(mt, repo.AttachToUser(ctx, userID, alert))
		assert.Equal(mt, insertedAlertID(mt).Hex(), alert.ID)
		assert.Equal(mt, "co2/kitchen", alert.Topic)
		assert.Equal(mt, []string{"aggregate", "insert", "update"}, commandNames(mt))

		update := startedEvent(mt, "update")
		pushed := update.Command.Lookup("updates", "0", "u", "$push", "alerts").ObjectID()
		assert.Equal(mt, alert.ID, pushed.Hex())
	})

	mt.Run("user removed before push", func(mt *mtest.T) {
		repo := repositories.NewMongoAlertRepository(mt.DB)
		mt.AddMockResponses(
			userCount(mt, 1),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
			updated(0),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
		)

		alert := kitchenAlert()
		err := repo.AttachToUser(ctx, userID, alert)
		assert.ErrorIs(mt, err, repositories.ErrNotFound)
		assert.Empty(mt, alert.ID)
		assert.Equal(mt, []string{"aggregate", "insert", "update", "delete"}, commandNames(mt))

		del := startedEvent(mt, "delete")
		assert.Equal(mt, insertedAlertID(mt), del.Command.Lookup("deletes", "0", "q", "_id").ObjectID())
		assert.Equal(mt, repositories.AlertsCollection, del.Command.Lookup("delete").StringValue())
	})

	mt.Run("push fails", func(mt *mtest.T) {
		repo := repositories.NewMongoAlertRepository(mt.DB)
		mt.AddMockResponses(
			userCount(mt, 1),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
			mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 2, Name: "BadValue", Message: "push rejected"}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
		)

		err := repo.AttachToUser(ctx, userID, kitchenAlert())
		require.Error(mt, err)
		assert.NotErrorIs(mt, err, repositories.ErrNotFound)
		assert.Contains(mt, err.Error(), "push rejected")

		del := startedEvent(mt, "delete")
		require.NotNil(mt, del)
		assert.Equal(mt, insertedAlertID(mt), del.Command.Lookup("deletes", "0", "q", "_id").ObjectID())
	})

	mt.Run("cleanup fails too", func(mt *mtest.T) {
		repo := repositories.NewMongoAlertRepository(mt.DB)
		mt.AddMockResponses(
			userCount(mt, 1),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
			updated(0),
			mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 2, Name: "BadValue", Message: "delete rejected"}),
		)

		err := repo.AttachToUser(ctx, userID, kitchenAlert())
		assert.ErrorIs(mt, err, repositories.ErrNotFound)
		assert.Contains(mt, err.Error(), "delete rejected")
	})

	mt.Run("unknown user", func(mt *mtest.T) {
		repo := repositories.NewMongoAlertRepository(mt.DB)
		ns := mt.DB.Name() + "." + repositories.UsersCollection
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		err := repo.AttachToUser(ctx, userID, kitchenAlert())
		assert.ErrorIs(mt, err, repositories.ErrNotFound)
		assert.Equal(mt, []string{"aggregate"}, commandNames(mt))
	})

	mt.Run("malformed user id", func(mt *mtest.T) {
		repo := repositories.NewMongoAlertRepository(mt.DB)

		err := repo.AttachToUser(ctx, "not-an-object-id", kitchenAlert())
		assert.ErrorIs(mt, err, repositories.ErrNotFound)
		assert.Empty(mt, commandNames(mt))
	})
}

func TestMongoUserRepository_Create(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("success", func(mt *mtest.T) {
		repo := repositories.NewMongoUserRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))

		user := newUser("ada@example.com")
		require.NoError(mt, repo.Create(ctx, user))
		assert.True(mt, primitive.IsValidObjectID(user.ID))
		assert.Equal(mt, []string{}, user.Alerts)

		insert := startedEvent(mt, "insert")
		require.NotNil(mt, insert)
		assert.Equal(mt, "ada@example.com", insert.Command.Lookup("documents", "0", "email").StringValue())
	})

	mt.Run("duplicate email", func(mt *mtest.T) {
		repo := repositories.NewMongoUserRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error collection: users index: email_unique",
		}))

		err := repo.Create(ctx, newUser("ada@example.com"))
		assert.ErrorIs(mt, err, repositories.ErrDuplicateEmail)
	})

	mt.Run("other write error", func(mt *mtest.T) {
		repo := repositories.NewMongoUserRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 121, Message: "Document failed validation"}))

		err := repo.Create(ctx, newUser("ada@example.com"))
		require.Error(mt, err)
		assert.NotErrorIs(mt, err, repositories.ErrDuplicateEmail)
	})
}

func TestMongoUserRepository_GetProfile(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("projects password away", func(mt *mtest.T) {
		repo := repositories.NewMongoUserRepository(mt.DB)
		oid := primitive.NewObjectID()
		alertID := primitive.NewObjectID()
		ns := mt.DB.Name() + "." + repositories.UsersCollection
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: oid},
			{Key: "fullName", Value: "Ada Lovelace"},
			{Key: "email", Value: "ada@example.com"},
			{Key: "alerts", Value: bson.A{alertID}},
		}))

		user, err := repo.GetProfile(ctx, oid.Hex())
		require.NoError(mt, err)
		assert.Equal(mt, oid.Hex(), user.ID)
		assert.Equal(mt, []string{alertID.Hex()}, user.Alerts)
		assert.Empty(mt, user.Password)

		find := startedEvent(mt, "find")
		require.NotNil(mt, find)
		assert.Equal(mt, int32(0), find.Command.Lookup("projection", "password").Int32())
	})

	mt.Run("missing", func(mt *mtest.T) {
		repo := repositories.NewMongoUserRepository(mt.DB)
		ns := mt.DB.Name() + "." + repositories.UsersCollection
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		_, err := repo.GetProfile(ctx, primitive.NewObjectID().Hex())
		assert.ErrorIs(mt, err, repositories.ErrNotFound)
	})
}
