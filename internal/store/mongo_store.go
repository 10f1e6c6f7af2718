package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/01moynul/orderdesk/internal/apperr"
	"github.com/01moynul/orderdesk/internal/models"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore keeps orders and users as documents in two collections.
type MongoStore struct {
	client *mongo.Client
	orders *mongo.Collection
	users  *mongo.Collection
}

// NewMongoStore uses database dbName of an already connected client.
func NewMongoStore(client *mongo.Client, dbName string) *MongoStore {
	db := client.Database(dbName)
	return &MongoStore{
		client: client,
		orders: db.Collection("orders"),
		users:  db.Collection("users"),
	}
}

// EnsureIndexes creates the indexes the queries rely on.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.orders.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "paymentState", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create order indexes: %w", err)
	}
	_, err = s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

type orderDoc struct {
	ID              primitive.ObjectID   `bson:"_id"`
	User            primitive.ObjectID   `bson:"user"`
	OrderItems      []orderItemDoc       `bson:"orderItems"`
	ShippingAddress addressDoc           `bson:"shippingAddress"`
	PaymentMethod   string               `bson:"paymentMethod"`
	ItemsPrice      primitive.Decimal128 `bson:"itemsPrice"`
	TaxPrice        primitive.Decimal128 `bson:"taxPrice"`
	ShippingPrice   primitive.Decimal128 `bson:"shippingPrice"`
	TotalPrice      primitive.Decimal128 `bson:"totalPrice"`
	IsPaid          bool                 `bson:"isPaid"`
	PaidAt          *time.Time           `bson:"paidAt,omitempty"`
	PaymentState    string               `bson:"paymentState"`
	RemoteOrderID   string               `bson:"remoteOrderId,omitempty"`
	PaymentResult   *paymentResultDoc    `bson:"paymentResult,omitempty"`
	IsDelivered     bool                 `bson:"isDelivered"`
	DeliveredAt     *time.Time           `bson:"deliveredAt,omitempty"`
	CreatedAt       time.Time            `bson:"createdAt"`
	UpdatedAt       time.Time            `bson:"updatedAt"`
}

type orderItemDoc struct {
	Product primitive.ObjectID   `bson:"product"`
	Name    string               `bson:"name"`
	Qty     int                  `bson:"qty"`
	Price   primitive.Decimal128 `bson:"price"`
	Image   string               `bson:"image"`
}

type addressDoc struct {
	Address    string `bson:"address"`
	City       string `bson:"city"`
	PostalCode string `bson:"postalCode"`
	Country    string `bson:"country"`
}

type paymentResultDoc struct {
	ID           string `bson:"id"`
	Status       string `bson:"status"`
	UpdateTime   string `bson:"update_time"`
	EmailAddress string `bson:"email_address"`
}

type userDoc struct {
	ID           primitive.ObjectID `bson:"_id"`
	Name         string             `bson:"name"`
	Email        string             `bson:"email"`
	PasswordHash string             `bson:"password"`
	IsAdmin      bool               `bson:"isAdmin"`
	CreatedAt    time.Time          `bson:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt"`
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	return primitive.ParseDecimal128(d.String())
}

func fromDecimal128(v primitive.Decimal128) (decimal.Decimal, error) {
	return decimal.NewFromString(v.String())
}

func toOrderDoc(o *models.Order) (orderDoc, error) {
	doc := orderDoc{
		ID:   o.ID,
		User: o.UserID,
		ShippingAddress: addressDoc{
			Address:    o.ShippingAddress.Address,
			City:       o.ShippingAddress.City,
			PostalCode: o.ShippingAddress.PostalCode,
			Country:    o.ShippingAddress.Country,
		},
		PaymentMethod: o.PaymentMethod,
		IsPaid:        o.IsPaid,
		PaidAt:        o.PaidAt,
		PaymentState:  o.PaymentState,
		RemoteOrderID: o.RemoteOrderID,
		IsDelivered:   o.IsDelivered,
		DeliveredAt:   o.DeliveredAt,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}

	prices := []struct {
		dst *primitive.Decimal128
		src decimal.Decimal
	}{
		{&doc.ItemsPrice, o.ItemsPrice},
		{&doc.TaxPrice, o.TaxPrice},
		{&doc.ShippingPrice, o.ShippingPrice},
		{&doc.TotalPrice, o.TotalPrice},
	}
	for _, p := range prices {
		v, err := toDecimal128(p.src)
		if err != nil {
			return doc, fmt.Errorf("price %s: %w", p.src, err)
		}
		*p.dst = v
	}

	for _, item := range o.OrderItems {
		price, err := toDecimal128(item.Price)
		if err != nil {
			return doc, fmt.Errorf("item price %s: %w", item.Price, err)
		}
		doc.OrderItems = append(doc.OrderItems, orderItemDoc{
			Product: item.Product,
			Name:    item.Name,
			Qty:     item.Quantity,
			Price:   price,
			Image:   item.Image,
		})
	}
	return doc, nil
}

func (d *orderDoc) toModel() (*models.Order, error) {
	o := &models.Order{
		ID:     d.ID,
		UserID: d.User,
		ShippingAddress: models.ShippingAddress{
			Address:    d.ShippingAddress.Address,
			City:       d.ShippingAddress.City,
			PostalCode: d.ShippingAddress.PostalCode,
			Country:    d.ShippingAddress.Country,
		},
		PaymentMethod: d.PaymentMethod,
		IsPaid:        d.IsPaid,
		PaidAt:        utcPtr(d.PaidAt),
		PaymentState:  d.PaymentState,
		RemoteOrderID: d.RemoteOrderID,
		IsDelivered:   d.IsDelivered,
		DeliveredAt:   utcPtr(d.DeliveredAt),
		CreatedAt:     d.CreatedAt.UTC(),
		UpdatedAt:     d.UpdatedAt.UTC(),
		OrderItems:    make([]models.OrderItem, 0, len(d.OrderItems)),
	}

	prices := []struct {
		dst *decimal.Decimal
		src primitive.Decimal128
	}{
		{&o.ItemsPrice, d.ItemsPrice},
		{&o.TaxPrice, d.TaxPrice},
		{&o.ShippingPrice, d.ShippingPrice},
		{&o.TotalPrice, d.TotalPrice},
	}
	for _, p := range prices {
		v, err := fromDecimal128(p.src)
		if err != nil {
			return nil, fmt.Errorf("order %s price: %w", d.ID.Hex(), err)
		}
		*p.dst = v
	}

	for _, item := range d.OrderItems {
		price, err := fromDecimal128(item.Price)
		if err != nil {
			return nil, fmt.Errorf("order %s item price: %w", d.ID.Hex(), err)
		}
		o.OrderItems = append(o.OrderItems, models.OrderItem{
			Product:  item.Product,
			Name:     item.Name,
			Quantity: item.Qty,
			Price:    price,
			Image:    item.Image,
		})
	}

	if d.PaymentResult != nil {
		o.PaymentResult = &models.PaymentResult{
			ID:           d.PaymentResult.ID,
			Status:       d.PaymentResult.Status,
			UpdateTime:   d.PaymentResult.UpdateTime,
			EmailAddress: d.PaymentResult.EmailAddress,
		}
	}
	return o, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func (s *MongoStore) CreateOrder(ctx context.Context, in *models.NewOrder) (*models.Order, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	o := newOrderFrom(in)

	// BSON dates keep millisecond precision.
	o.CreatedAt = o.CreatedAt.Truncate(time.Millisecond)
	o.UpdatedAt = o.CreatedAt

	doc, err := toOrderDoc(o)
	if err != nil {
		return nil, apperr.Validation("Invalid price", apperr.FieldError{Field: "price", Message: err.Error()})
	}
	if _, err := s.orders.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}
	return o, nil
}

func (s *MongoStore) GetOrder(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	var doc orderDoc
	err := s.orders.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("Order not found")
		}
		return nil, fmt.Errorf("get order %s: %w", id.Hex(), err)
	}
	return doc.toModel()
}

func (s *MongoStore) ListOrdersByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	return s.find(ctx, bson.M{"user": userID})
}

func (s *MongoStore) ListOrders(ctx context.Context) ([]models.Order, error) {
	return s.find(ctx, bson.M{})
}

func (s *MongoStore) ListCapturePending(ctx context.Context) ([]models.Order, error) {
	return s.find(ctx, bson.M{"paymentState": models.PaymentCapturePending, "isPaid": false})
}

func (s *MongoStore) find(ctx context.Context, filter bson.M) ([]models.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := s.orders.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find orders: %w", err)
	}
	defer cur.Close(ctx)

	var docs []orderDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}

	orders := make([]models.Order, 0, len(docs))
	for i := range docs {
		o, err := docs[i].toModel()
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, nil
}

// update applies set to the order matching filter plus _id, then returns
// the stored order whether or not the filter matched.
func (s *MongoStore) update(ctx context.Context, id primitive.ObjectID, guard bson.M, set bson.M) (*models.Order, error) {
	filter := bson.M{"_id": id}
	for k, v := range guard {
		filter[k] = v
	}
	if _, err := s.orders.UpdateOne(ctx, filter, bson.M{"$set": set}); err != nil {
		return nil, fmt.Errorf("update order %s: %w", id.Hex(), err)
	}
	return s.GetOrder(ctx, id)
}

func (s *MongoStore) BeginCapture(ctx context.Context, id primitive.ObjectID, remoteOrderID string) (*models.Order, error) {
	return s.update(ctx, id, bson.M{"isPaid": false}, bson.M{
		"paymentState":  models.PaymentCapturePending,
		"remoteOrderId": remoteOrderID,
		"updatedAt":     now(),
	})
}

func (s *MongoStore) MarkPaid(ctx context.Context, id primitive.ObjectID, result models.PaymentResult) (*models.Order, error) {
	ts := now()
	set := bson.M{
		"isPaid":       true,
		"paidAt":       ts,
		"paymentState": models.PaymentPaid,
		"updatedAt":    ts,
	}
	if !result.IsZero() {
		set["paymentResult"] = paymentResultDoc{
			ID:           result.ID,
			Status:       result.Status,
			UpdateTime:   result.UpdateTime,
			EmailAddress: result.EmailAddress,
		}
	}
	return s.update(ctx, id, bson.M{"isPaid": false}, set)
}

func (s *MongoStore) MarkDelivered(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	ts := now()
	return s.update(ctx, id, bson.M{"isDelivered": false}, bson.M{
		"isDelivered": true,
		"deliveredAt": ts,
		"updatedAt":   ts,
	})
}

func (s *MongoStore) SaveUser(ctx context.Context, u *models.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	ts := now()

	existing, err := s.GetUserByEmail(ctx, u.Email)
	switch {
	case err == nil:
		u.ID = existing.ID
		u.CreatedAt = existing.CreatedAt
	case apperr.Is(err, apperr.KindNotFound):
		if u.ID.IsZero() {
			u.ID = primitive.NewObjectID()
		}
		u.CreatedAt = ts
	default:
		return err
	}
	u.UpdatedAt = ts

	doc := userDoc{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		IsAdmin:      u.IsAdmin,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
	_, err = s.users.ReplaceOne(ctx, bson.M{"_id": u.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

func (s *MongoStore) GetUser(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.findUser(ctx, bson.M{"_id": id})
}

func (s *MongoStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))})
}

func (s *MongoStore) findUser(ctx context.Context, filter bson.M) (*models.User, error) {
	var doc userDoc
	if err := s.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &models.User{
		ID:           doc.ID,
		Name:         doc.Name,
		Email:        doc.Email,
		PasswordHash: doc.PasswordHash,
		IsAdmin:      doc.IsAdmin,
		CreatedAt:    doc.CreatedAt.UTC(),
		UpdatedAt:    doc.UpdatedAt.UTC(),
	}, nil
}
