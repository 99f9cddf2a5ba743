package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/333Kunal/E-com/internal/models"
)

func TestDecrementStockFilter(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("applies only when stock covers the quantity", func(mt *mtest.T) {
		store := NewProductStore(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))

		require.NoError(mt, store.DecrementStock(context.Background(), primitive.NewObjectID(), 2))

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		assert.Equal(mt, "update", started.CommandName)
		assert.EqualValues(mt, 2, started.Command.Lookup("updates", "0", "q", "stock", "$gte").AsInt64())
		assert.EqualValues(mt, -2, started.Command.Lookup("updates", "0", "u", "$inc", "stock").AsInt64())
	})

	mt.Run("short stock", func(mt *mtest.T) {
		store := NewProductStore(mt.DB)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
			mtest.CreateCursorResponse(0, "shop.products", mtest.FirstBatch, bson.D{{Key: "n", Value: int32(1)}}),
		)

		err := store.DecrementStock(context.Background(), primitive.NewObjectID(), 5)
		assert.ErrorIs(mt, err, ErrInsufficientStock)
	})

	mt.Run("missing product", func(mt *mtest.T) {
		store := NewProductStore(mt.DB)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
			mtest.CreateCursorResponse(0, "shop.products", mtest.FirstBatch),
		)

		err := store.DecrementStock(context.Background(), primitive.NewObjectID(), 1)
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("rejects non-positive quantity before querying", func(mt *mtest.T) {
		store := NewProductStore(mt.DB)
		assert.Error(mt, store.DecrementStock(context.Background(), primitive.NewObjectID(), 0))
		assert.Nil(mt, mt.GetStartedEvent())
	})
}

func TestTransitionPaymentFilter(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	transition := PaymentTransition{
		OrderStatus: models.OrderConfirmed,
		PaymentDetails: models.PaymentDetails{
			TransactionID: "ABCDEFGHIJKL",
			PaymentStatus: models.PaymentSuccess,
		},
	}

	mt.Run("only moves pending orders", func(mt *mtest.T) {
		store := NewOrderStore(mt.DB)
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{
			{Key: "_id", Value: id},
			{Key: "orderStatus", Value: string(models.OrderConfirmed)},
		}}))

		order, err := store.TransitionPayment(context.Background(), id, transition)
		require.NoError(mt, err)
		assert.Equal(mt, models.OrderConfirmed, order.OrderStatus)

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		assert.Equal(mt, "findAndModify", started.CommandName)
		query := started.Command.Lookup("query").Document()
		assert.Equal(mt, string(models.OrderProcessing), query.Lookup("orderStatus").StringValue())
		assert.Equal(mt, string(models.PaymentPending), query.Lookup("paymentDetails.paymentStatus").StringValue())
		assert.Equal(mt, string(models.OrderConfirmed), started.Command.Lookup("update", "$set", "orderStatus").StringValue())
	})

	mt.Run("already processed", func(mt *mtest.T) {
		store := NewOrderStore(mt.DB)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}),
			mtest.CreateCursorResponse(0, "shop.orders", mtest.FirstBatch, bson.D{{Key: "n", Value: int32(1)}}),
		)

		_, err := store.TransitionPayment(context.Background(), primitive.NewObjectID(), transition)
		assert.ErrorIs(mt, err, ErrConflict)
	})

	mt.Run("unknown order", func(mt *mtest.T) {
		store := NewOrderStore(mt.DB)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}),
			mtest.CreateCursorResponse(0, "shop.orders", mtest.FirstBatch),
		)

		_, err := store.TransitionPayment(context.Background(), primitive.NewObjectID(), transition)
		assert.ErrorIs(mt, err, ErrNotFound)
	})
}
