package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/darzi-studio/api/internal/domain"
	pfirestore "github.com/darzi-studio/api/internal/platform/firestore"
	"github.com/darzi-studio/api/internal/platform/pagination"
	"github.com/darzi-studio/api/internal/repositories"
)

const ordersCollection = "orders"

type orderDocument struct {
	OrderNumber string            `firestore:"orderNumber"`
	Status      string            `firestore:"status"`
	Customer    customerDocument  `firestore:"customer"`
	Garments    []garmentDocument `firestore:"garments"`
	Delivery    deliveryDocument  `firestore:"delivery"`
	Total       int64             `firestore:"total"`
	CreatedAt   time.Time         `firestore:"createdAt"`
	UpdatedAt   time.Time         `firestore:"updatedAt"`
}

type customerDocument struct {
	FullName      string `firestore:"fullName"`
	ContactNumber string `firestore:"contactNumber"`
	WhatsAppSame  bool   `firestore:"whatsAppSame"`
	Email         string `firestore:"email,omitempty"`
	FullAddress   string `firestore:"fullAddress"`
}

type garmentDocument struct {
	Key          string             `firestore:"key"`
	Category     string             `firestore:"category"`
	Variant      string             `firestore:"variant"`
	Quantity     int                `firestore:"quantity"`
	Unit         string             `firestore:"unit"`
	Measurements map[string]float64 `firestore:"measurements,omitempty"`
	Designs      []designDocument   `firestore:"designs"`
	Drawing      *drawingDocument   `firestore:"drawing,omitempty"`
}

type designDocument struct {
	Key             string          `firestore:"key"`
	Name            string          `firestore:"name"`
	Amount          int64           `firestore:"amount"`
	Description     string          `firestore:"description,omitempty"`
	ReferenceImages []imageDocument `firestore:"referenceImages,omitempty"`
	FabricImages    []imageDocument `firestore:"fabricImages,omitempty"`
}

// Attachments are normalised before an order is stored, so persisted
// image references always point at uploaded objects.
type imageDocument struct {
	FileName    string `firestore:"fileName,omitempty"`
	ContentType string `firestore:"contentType,omitempty"`
	URL         string `firestore:"url"`
}

type drawingDocument struct {
	Raster imageDocument `firestore:"raster"`
	Vector string        `firestore:"vector,omitempty"`
}

type deliveryDocument struct {
	DeliveryDate        time.Time `firestore:"deliveryDate"`
	Urgency             string    `firestore:"urgency,omitempty"`
	Payment             string    `firestore:"payment"`
	AdvanceAmount       int64     `firestore:"advanceAmount,omitempty"`
	SpecialInstructions string    `firestore:"specialInstructions,omitempty"`
}

// OrderRepository implements repositories.OrderRepository backed by Firestore.
type OrderRepository struct {
	provider *pfirestore.Provider
	orders   *pfirestore.BaseRepository[orderDocument]
}

var _ repositories.OrderRepository = (*OrderRepository)(nil)

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[orderDocument](provider, ordersCollection, nil, nil)
	return &OrderRepository{provider: provider, orders: base}, nil
}

// Insert creates the order document. Existing IDs are rejected as conflicts.
func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	id := strings.TrimSpace(order.ID)
	if id == "" {
		return errors.New("order repository: order id is required")
	}

	ref, err := r.orders.DocumentRef(ctx, id)
	if err != nil {
		return err
	}
	if _, err := ref.Create(ctx, toOrderDocument(order)); err != nil {
		return pfirestore.WrapError("orders.insert", err)
	}
	return nil
}

// Update overwrites the order document.
func (r *OrderRepository) Update(ctx context.Context, order domain.Order) error {
	id := strings.TrimSpace(order.ID)
	if id == "" {
		return errors.New("order repository: order id is required")
	}
	if _, err := r.orders.Set(ctx, id, toOrderDocument(order)); err != nil {
		return err
	}
	return nil
}

// FindByID fetches a single order.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	doc, err := r.orders.Get(ctx, strings.TrimSpace(orderID))
	if err != nil {
		return domain.Order{}, err
	}
	return toDomainOrder(doc.ID, doc.Data), nil
}

// List returns orders newest first, filtered and paged per the filter.
func (r *OrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) (repositories.OrderPage, error) {
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = pagination.DefaultPageSize
	}

	docs, err := r.orders.Query(ctx, func(q firestore.Query) firestore.Query {
		if len(filter.Status) > 0 {
			statuses := make([]string, 0, len(filter.Status))
			for _, s := range filter.Status {
				statuses = append(statuses, string(s))
			}
			q = q.Where("status", "in", statuses)
		}
		if filter.CreatedAfter != nil {
			q = q.Where("createdAt", ">", *filter.CreatedAfter)
		}
		q = q.OrderBy("createdAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
		if !filter.Cursor.IsZero() {
			q = q.StartAfter(filter.Cursor.CreatedAt, filter.Cursor.ID)
		}
		// one extra row decides whether another page exists
		return q.Limit(pageSize + 1)
	})
	if err != nil {
		return repositories.OrderPage{}, err
	}

	page := repositories.OrderPage{}
	hasMore := len(docs) > pageSize
	if hasMore {
		docs = docs[:pageSize]
	}
	for _, doc := range docs {
		page.Orders = append(page.Orders, toDomainOrder(doc.ID, doc.Data))
	}
	if hasMore && len(page.Orders) > 0 {
		last := page.Orders[len(page.Orders)-1]
		token, err := pagination.EncodeToken(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		if err != nil {
			return repositories.OrderPage{}, err
		}
		page.NextPageToken = token
	}
	return page, nil
}

func toOrderDocument(order domain.Order) orderDocument {
	doc := orderDocument{
		OrderNumber: order.OrderNumber,
		Status:      string(order.Status),
		Customer: customerDocument{
			FullName:      order.Customer.FullName,
			ContactNumber: order.Customer.ContactNumber,
			WhatsAppSame:  order.Customer.WhatsAppSame,
			Email:         order.Customer.Email,
			FullAddress:   order.Customer.FullAddress,
		},
		Delivery: deliveryDocument{
			DeliveryDate:        order.Delivery.DeliveryDate,
			Urgency:             string(order.Delivery.Urgency),
			Payment:             string(order.Delivery.Payment),
			AdvanceAmount:       order.Delivery.AdvanceAmount,
			SpecialInstructions: order.Delivery.SpecialInstructions,
		},
		Total:     order.Total,
		CreatedAt: order.CreatedAt,
		UpdatedAt: order.UpdatedAt,
	}
	for _, garment := range order.Garments {
		doc.Garments = append(doc.Garments, toGarmentDocument(garment))
	}
	return doc
}

func toGarmentDocument(garment domain.Garment) garmentDocument {
	doc := garmentDocument{
		Key:          garment.Key,
		Category:     garment.Category,
		Variant:      garment.Variant,
		Quantity:     garment.Quantity,
		Unit:         string(garment.Unit),
		Measurements: garment.Measurements,
	}
	for _, design := range garment.Designs {
		doc.Designs = append(doc.Designs, designDocument{
			Key:             design.Key,
			Name:            design.Name,
			Amount:          design.Amount,
			Description:     design.Description,
			ReferenceImages: toImageDocuments(design.ReferenceImages),
			FabricImages:    toImageDocuments(design.FabricImages),
		})
	}
	if garment.Drawing != nil {
		doc.Drawing = &drawingDocument{
			Raster: toImageDocument(garment.Drawing.Raster),
			Vector: garment.Drawing.Vector,
		}
	}
	return doc
}

func toImageDocuments(images []domain.ImageRef) []imageDocument {
	if len(images) == 0 {
		return nil
	}
	docs := make([]imageDocument, 0, len(images))
	for _, img := range images {
		docs = append(docs, toImageDocument(img))
	}
	return docs
}

func toImageDocument(img domain.ImageRef) imageDocument {
	return imageDocument{
		FileName:    img.FileName,
		ContentType: img.ContentType,
		URL:         img.URL,
	}
}

func toDomainOrder(id string, doc orderDocument) domain.Order {
	order := domain.Order{
		ID:          id,
		OrderNumber: doc.OrderNumber,
		Status:      domain.OrderStatus(doc.Status),
		Customer: domain.Customer{
			FullName:      doc.Customer.FullName,
			ContactNumber: doc.Customer.ContactNumber,
			WhatsAppSame:  doc.Customer.WhatsAppSame,
			Email:         doc.Customer.Email,
			FullAddress:   doc.Customer.FullAddress,
		},
		Delivery: domain.Delivery{
			DeliveryDate:        doc.Delivery.DeliveryDate,
			Urgency:             domain.Urgency(doc.Delivery.Urgency),
			Payment:             domain.PaymentMethod(doc.Delivery.Payment),
			AdvanceAmount:       doc.Delivery.AdvanceAmount,
			SpecialInstructions: doc.Delivery.SpecialInstructions,
		},
		Total:     doc.Total,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
	for _, garment := range doc.Garments {
		order.Garments = append(order.Garments, toDomainGarment(garment))
	}
	return order
}

func toDomainGarment(doc garmentDocument) domain.Garment {
	garment := domain.Garment{
		Key:          doc.Key,
		Category:     doc.Category,
		Variant:      doc.Variant,
		Quantity:     doc.Quantity,
		Unit:         domain.MeasurementUnit(doc.Unit),
		Measurements: doc.Measurements,
	}
	for _, design := range doc.Designs {
		garment.Designs = append(garment.Designs, domain.DesignRecord{
			Key:             design.Key,
			Name:            design.Name,
			Amount:          design.Amount,
			Description:     design.Description,
			ReferenceImages: toDomainImages(design.ReferenceImages),
			FabricImages:    toDomainImages(design.FabricImages),
		})
	}
	if doc.Drawing != nil {
		garment.Drawing = &domain.Drawing{
			Raster: toDomainImage(doc.Drawing.Raster),
			Vector: doc.Drawing.Vector,
		}
	}
	return garment
}

func toDomainImages(docs []imageDocument) []domain.ImageRef {
	if len(docs) == 0 {
		return nil
	}
	images := make([]domain.ImageRef, 0, len(docs))
	for _, doc := range docs {
		images = append(images, toDomainImage(doc))
	}
	return images
}

func toDomainImage(doc imageDocument) domain.ImageRef {
	return domain.ImageRef{
		State:       domain.ImageRemote,
		FileName:    doc.FileName,
		ContentType: doc.ContentType,
		URL:         doc.URL,
	}
}
