package events

import (
	"context"
	"fmt"
	"time"

	"catalog-service/internal/models"
	"github.com/Tesseract-Nexus/go-shared/events"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	ProductMerged          = "product.merged"
	ProductSupplierRenamed = "product.supplier_renamed"
	ProductSupplierDeleted = "product.supplier_deleted"

	defaultPublishTimeout = 10 * time.Second
	defaultNATSURL        = "nats://nats.nats.svc.cluster.local:4222"
)

// Actor identifies who triggered a catalog change.
type Actor struct {
	ID    string
	Name  string
	Email string
}

type actorKey struct{}

// WithActor attaches actor to ctx for events published further down.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the actor attached by WithActor, if any.
func ActorFromContext(ctx context.Context) Actor {
	actor, _ := ctx.Value(actorKey{}).(Actor)
	return actor
}

// Publisher wraps the go-shared events publisher for catalog events.
// A nil *Publisher is valid and publishes nothing.
type Publisher struct {
	publisher *events.Publisher
	logger    *logrus.Entry
	catalogID string
}

// NewPublisher connects to NATS and makes sure the products stream exists.
func NewPublisher(natsURL, catalogID string, logger *logrus.Logger) (*Publisher, error) {
	if natsURL == "" {
		natsURL = defaultNATSURL
	}

	config := events.DefaultPublisherConfig(natsURL)
	config.Name = "catalog-service"

	publisher, err := events.NewPublisher(config, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create events publisher: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultPublishTimeout)
	defer cancel()
	if err := publisher.EnsureStream(ctx, events.StreamProducts, []string{"product.>"}); err != nil {
		logger.WithError(err).Warn("Failed to ensure products stream (may already exist)")
	}

	return &Publisher{
		publisher: publisher,
		logger:    logger.WithField("component", "catalog-events"),
		catalogID: catalogID,
	}, nil
}

// Close closes the NATS connection
func (p *Publisher) Close() {
	if p != nil && p.publisher != nil {
		p.publisher.Close()
	}
}

func (p *Publisher) PublishProductCreated(ctx context.Context, product *models.Product) {
	if p == nil {
		return
	}
	event := p.buildProductEvent(ctx, events.ProductCreated, product)
	event.ChangeType = "created"
	p.publish(event)
}

// PublishProductUpdated publishes the new values of the changed fields.
func (p *Publisher) PublishProductUpdated(ctx context.Context, product *models.Product, changedFields []string) {
	if p == nil {
		return
	}
	event := p.buildProductEvent(ctx, events.ProductUpdated, product)
	event.ChangeType = "updated"
	event.ChangedFields = changedFields
	event.NewValue = map[string]interface{}{
		"productName":  product.ProductName,
		"fobCasePrice": product.FOBCasePrice,
		"packSize":     product.PackSize,
		"bottleSize":   product.BottleSize,
		"productType":  product.ProductType,
	}
	p.publish(event)
}

func (p *Publisher) PublishProductDeleted(ctx context.Context, product *models.Product) {
	if p == nil {
		return
	}
	event := p.buildProductEvent(ctx, events.ProductDeleted, product)
	event.ChangeType = "deleted"
	p.publish(event)
}

// PublishProductMerged announces that loserIDs were folded into winner.
func (p *Publisher) PublishProductMerged(ctx context.Context, winner *models.Product, loserIDs []string, ordersReassigned int64) {
	if p == nil {
		return
	}
	event := p.buildProductEvent(ctx, ProductMerged, winner)
	event.ChangeType = "merged"
	event.OldValue = map[string]interface{}{"productIds": loserIDs}
	event.NewValue = map[string]interface{}{"productId": winner.PublicID(), "ordersReassigned": ordersReassigned}
	p.publish(event)
}

func (p *Publisher) PublishSupplierRenamed(ctx context.Context, oldName, newName string, result models.RenameSupplierResult) {
	if p == nil {
		return
	}
	event := p.buildSupplierEvent(ctx, ProductSupplierRenamed)
	event.ChangeType = "supplier_renamed"
	event.ChangedFields = []string{"supplier"}
	event.OldValue = map[string]interface{}{"supplier": oldName}
	event.NewValue = map[string]interface{}{
		"supplier":        newName,
		"productsUpdated": result.ProductsUpdated,
		"ordersUpdated":   result.OrdersUpdated,
	}
	p.publish(event)
}

func (p *Publisher) PublishSupplierDeleted(ctx context.Context, supplier string, result models.DeleteSupplierResult) {
	if p == nil {
		return
	}
	event := p.buildSupplierEvent(ctx, ProductSupplierDeleted)
	event.ChangeType = "supplier_deleted"
	event.OldValue = map[string]interface{}{"supplier": supplier}
	event.NewValue = map[string]interface{}{
		"productsDeleted": result.ProductsDeleted,
		"danglingOrders":  result.DanglingOrders,
	}
	p.publish(event)
}

func (p *Publisher) buildProductEvent(ctx context.Context, eventType string, product *models.Product) *events.ProductEvent {
	event := p.buildSupplierEvent(ctx, eventType)
	event.ProductID = product.PublicID()
	event.ProductName = product.ProductName
	event.SKU = product.ItemCode
	event.Price = product.FOBCasePrice
	event.CategoryID = product.ProductType
	event.VendorID = product.Supplier
	return event
}

func (p *Publisher) buildSupplierEvent(ctx context.Context, eventType string) *events.ProductEvent {
	event := events.NewProductEvent(eventType, p.catalogID)
	event.SourceID = uuid.New().String()

	actor := ActorFromContext(ctx)
	event.ActorID = actor.ID
	event.ActorName = actor.Name
	event.ActorEmail = actor.Email
	return event
}

// publish sends event in the background.
func (p *Publisher) publish(event *events.ProductEvent) {
	go func() {
		pubCtx, cancel := context.WithTimeout(context.Background(), defaultPublishTimeout)
		defer cancel()

		if err := p.publisher.PublishProduct(pubCtx, event); err != nil {
			p.logger.WithFields(logrus.Fields{
				"eventType": event.EventType,
				"productID": event.ProductID,
			}).WithError(err).Error("Failed to publish catalog event")
			return
		}
		p.logger.WithFields(logrus.Fields{
			"eventType":   event.EventType,
			"productID":   event.ProductID,
			"productName": event.ProductName,
		}).Debug("Catalog event published")
	}()
}
