package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/01moynul/orderdesk/internal/apperr"
	"github.com/01moynul/orderdesk/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func makeNewOrder(userID primitive.ObjectID, total string) *models.NewOrder {
	return &models.NewOrder{
		UserID: userID,
		OrderItems: []models.OrderItem{
			{Product: primitive.NewObjectID(), Name: "Airpods Wireless", Quantity: 1, Price: dec("89.99"), Image: "/images/airpods.jpg"},
			{Product: primitive.NewObjectID(), Name: "Logitech Mouse", Quantity: 2, Price: dec("5.00"), Image: "/images/mouse.jpg"},
		},
		ShippingAddress: models.ShippingAddress{Address: "221B Baker St", City: "London", PostalCode: "NW1", Country: "UK"},
		PaymentMethod:   "PayPal",
		ItemsPrice:      decimal.NewNullDecimal(dec("99.99")),
		TaxPrice:        decimal.NewNullDecimal(dec("0.01")),
		ShippingPrice:   decimal.NewNullDecimal(decimal.Zero),
		TotalPrice:      decimal.NewNullDecimal(dec(total)),
	}
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "want %s, got %s %v", want, got, msgAndArgs)
}

// runStoreContract exercises the behaviour every Store backend must share.
func runStoreContract(t *testing.T, s Store) {
	ctx := context.Background()

	t.Run("create keeps submitted values", func(t *testing.T) {
		owner := primitive.NewObjectID()
		in := makeNewOrder(owner, "100.00")

		created, err := s.CreateOrder(ctx, in)
		require.NoError(t, err)
		assert.False(t, created.IsPaid)
		assert.False(t, created.IsDelivered)
		assert.Equal(t, models.PaymentNone, created.PaymentState)

		got, err := s.GetOrder(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, owner, got.UserID)
		assert.False(t, got.IsPaid)
		assert.Nil(t, got.PaidAt)
		assert.False(t, got.IsDelivered)
		assert.Nil(t, got.DeliveredAt)
		assert.Equal(t, in.ShippingAddress, got.ShippingAddress)
		assert.Equal(t, "PayPal", got.PaymentMethod)
		assertDecimal(t, "99.99", got.ItemsPrice)
		assertDecimal(t, "0.01", got.TaxPrice)
		assertDecimal(t, "0", got.ShippingPrice)
		assertDecimal(t, "100.00", got.TotalPrice)

		require.Len(t, got.OrderItems, 2)
		for i, item := range got.OrderItems {
			want := in.OrderItems[i]
			assert.Equal(t, want.Product, item.Product)
			assert.Equal(t, want.Name, item.Name)
			assert.Equal(t, want.Quantity, item.Quantity)
			assert.Equal(t, want.Image, item.Image)
			assertDecimal(t, want.Price.String(), item.Price, i)
		}
	})

	t.Run("create rejects missing fields", func(t *testing.T) {
		in := makeNewOrder(primitive.NewObjectID(), "1")
		in.OrderItems = nil
		in.TotalPrice = decimal.NullDecimal{}

		_, err := s.CreateOrder(ctx, in)
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.KindValidation))
		assert.Len(t, apperr.FieldsOf(err), 2)
	})

	t.Run("create rejects sub-cent prices", func(t *testing.T) {
		in := makeNewOrder(primitive.NewObjectID(), "19.999")
		in.OrderItems[0].Price = dec("89.995")

		_, err := s.CreateOrder(ctx, in)
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.KindValidation))

		var got []string
		for _, f := range apperr.FieldsOf(err) {
			got = append(got, f.Field)
		}
		assert.ElementsMatch(t, []string{"cartItems[0].price", "totalPrice"}, got)
	})

	t.Run("get unknown order", func(t *testing.T) {
		_, err := s.GetOrder(ctx, primitive.NewObjectID())
		assert.True(t, apperr.Is(err, apperr.KindNotFound))
	})

	t.Run("list mine and list all", func(t *testing.T) {
		alice, bob := primitive.NewObjectID(), primitive.NewObjectID()
		a1, err := s.CreateOrder(ctx, makeNewOrder(alice, "10"))
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)
		a2, err := s.CreateOrder(ctx, makeNewOrder(alice, "20"))
		require.NoError(t, err)
		b1, err := s.CreateOrder(ctx, makeNewOrder(bob, "30"))
		require.NoError(t, err)

		mine, err := s.ListOrdersByUser(ctx, alice)
		require.NoError(t, err)
		require.Len(t, mine, 2)
		assert.Equal(t, a2.ID, mine[0].ID)
		assert.Equal(t, a1.ID, mine[1].ID)
		assert.Len(t, mine[0].OrderItems, 2)

		all, err := s.ListOrders(ctx)
		require.NoError(t, err)
		ids := map[primitive.ObjectID]bool{}
		for _, o := range all {
			ids[o.ID] = true
		}
		assert.True(t, ids[a1.ID] && ids[a2.ID] && ids[b1.ID])

		none, err := s.ListOrdersByUser(ctx, primitive.NewObjectID())
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("mark paid is a single transition", func(t *testing.T) {
		o, err := s.CreateOrder(ctx, makeNewOrder(primitive.NewObjectID(), "100.00"))
		require.NoError(t, err)

		start := time.Now().Add(-time.Second)
		paid, err := s.MarkPaid(ctx, o.ID, models.PaymentResult{ID: "CAP-1", Status: "COMPLETED", EmailAddress: "buyer@example.com"})
		require.NoError(t, err)
		assert.True(t, paid.IsPaid)
		require.NotNil(t, paid.PaidAt)
		assert.WithinRange(t, *paid.PaidAt, start, time.Now().Add(time.Second))
		assert.Equal(t, models.PaymentPaid, paid.PaymentState)
		require.NotNil(t, paid.PaymentResult)
		assert.Equal(t, "CAP-1", paid.PaymentResult.ID)

		again, err := s.MarkPaid(ctx, o.ID, models.PaymentResult{ID: "CAP-2", Status: "COMPLETED"})
		require.NoError(t, err)
		assert.True(t, again.IsPaid)
		assert.True(t, paid.PaidAt.Equal(*again.PaidAt))
		assert.Equal(t, "CAP-1", again.PaymentResult.ID)
	})

	t.Run("concurrent mark paid shows one transition", func(t *testing.T) {
		o, err := s.CreateOrder(ctx, makeNewOrder(primitive.NewObjectID(), "5"))
		require.NoError(t, err)

		var wg sync.WaitGroup
		results := make([]*models.Order, 4)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				got, err := s.MarkPaid(ctx, o.ID, models.PaymentResult{ID: "CAP", Status: "COMPLETED"})
				if assert.NoError(t, err) {
					results[i] = got
				}
			}(i)
		}
		wg.Wait()

		final, err := s.GetOrder(ctx, o.ID)
		require.NoError(t, err)
		for _, r := range results {
			if r != nil {
				assert.True(t, final.PaidAt.Equal(*r.PaidAt))
			}
		}
	})

	t.Run("mark paid without provider details", func(t *testing.T) {
		o, err := s.CreateOrder(ctx, makeNewOrder(primitive.NewObjectID(), "5"))
		require.NoError(t, err)

		paid, err := s.MarkPaid(ctx, o.ID, models.PaymentResult{})
		require.NoError(t, err)
		assert.True(t, paid.IsPaid)
		assert.Nil(t, paid.PaymentResult)

		got, err := s.GetOrder(ctx, o.ID)
		require.NoError(t, err)
		assert.Nil(t, got.PaymentResult)
	})

	t.Run("mark paid unknown order", func(t *testing.T) {
		_, err := s.MarkPaid(ctx, primitive.NewObjectID(), models.PaymentResult{})
		assert.True(t, apperr.Is(err, apperr.KindNotFound))
	})

	t.Run("mark delivered does not require payment", func(t *testing.T) {
		o, err := s.CreateOrder(ctx, makeNewOrder(primitive.NewObjectID(), "5"))
		require.NoError(t, err)

		got, err := s.MarkDelivered(ctx, o.ID)
		require.NoError(t, err)
		assert.True(t, got.IsDelivered)
		assert.NotNil(t, got.DeliveredAt)
		assert.False(t, got.IsPaid)

		_, err = s.MarkDelivered(ctx, primitive.NewObjectID())
		assert.True(t, apperr.Is(err, apperr.KindNotFound))
	})

	t.Run("capture pending until paid", func(t *testing.T) {
		o, err := s.CreateOrder(ctx, makeNewOrder(primitive.NewObjectID(), "42"))
		require.NoError(t, err)

		pending, err := s.BeginCapture(ctx, o.ID, "5O190127TN364715T")
		require.NoError(t, err)
		assert.Equal(t, models.PaymentCapturePending, pending.PaymentState)
		assert.Equal(t, "5O190127TN364715T", pending.RemoteOrderID)
		assert.False(t, pending.IsPaid)

		list, err := s.ListCapturePending(ctx)
		require.NoError(t, err)
		assert.Contains(t, orderIDs(list), o.ID)

		_, err = s.MarkPaid(ctx, o.ID, models.PaymentResult{ID: "CAP-9", Status: "COMPLETED"})
		require.NoError(t, err)

		list, err = s.ListCapturePending(ctx)
		require.NoError(t, err)
		assert.NotContains(t, orderIDs(list), o.ID)

		// A paid order is never moved back to pending.
		again, err := s.BeginCapture(ctx, o.ID, "OTHER")
		require.NoError(t, err)
		assert.Equal(t, models.PaymentPaid, again.PaymentState)
		assert.Equal(t, "5O190127TN364715T", again.RemoteOrderID)

		_, err = s.BeginCapture(ctx, primitive.NewObjectID(), "X")
		assert.True(t, apperr.Is(err, apperr.KindNotFound))
	})

	t.Run("users", func(t *testing.T) {
		u := &models.User{Name: "Admin", Email: " Admin@Example.com ", PasswordHash: "hash", IsAdmin: true}
		require.NoError(t, s.SaveUser(ctx, u))
		require.False(t, u.ID.IsZero())

		got, err := s.GetUserByEmail(ctx, "admin@example.com")
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)
		assert.True(t, got.IsAdmin)

		u2 := &models.User{Name: "Renamed", Email: "admin@example.com", PasswordHash: "hash2"}
		require.NoError(t, s.SaveUser(ctx, u2))
		assert.Equal(t, u.ID, u2.ID)

		byID, err := s.GetUser(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, "Renamed", byID.Name)
		assert.False(t, byID.IsAdmin)

		_, err = s.GetUser(ctx, primitive.NewObjectID())
		assert.True(t, apperr.Is(err, apperr.KindNotFound))
	})
}

func orderIDs(orders []models.Order) []primitive.ObjectID {
	ids := make([]primitive.ObjectID, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	return ids
}
