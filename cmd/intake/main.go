// Command intake drives the order-intake wizard from a JSON order file
// and submits the result to the Darzi API. Drafts persist in Redis (or a
// local file without one), so a run interrupted by a network failure
// resumes where it stopped: re-running the command retries the same
// submission instead of creating a duplicate.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/darzi-studio/api/internal/domain"
	"github.com/darzi-studio/api/internal/intake"
	"github.com/darzi-studio/api/internal/invoice"
	"github.com/darzi-studio/api/internal/pipeline"
	"github.com/darzi-studio/api/internal/snapshot"
)

const defaultSubmitTimeout = 5 * time.Minute

func main() {
	orderPath := flag.String("order", "", "path to the JSON order description")
	endpoint := flag.String("endpoint", getEnv("DARZI_API_URL", "http://localhost:8080"), "base URL of the Darzi API")
	clientID := flag.String("client", getEnv("DARZI_CLIENT_ID", "default"), "draft slot identifier; one in-progress order per slot")
	invoiceKind := flag.String("invoice", "customer", "invoice to fetch after submission: customer, tailor, both or none")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	if *orderPath == "" {
		logger.Fatal("missing required -order flag")
	}

	spec, err := loadOrderFile(*orderPath)
	if err != nil {
		logger.Fatal("failed to load order file", zap.String("path", *orderPath), zap.Error(err))
	}

	snapshots, cleanup, err := draftStore(logger, *clientID)
	if err != nil {
		logger.Fatal("failed to initialise draft store", zap.Error(err))
	}
	defer cleanup()

	submitter, err := pipeline.New(strings.TrimRight(*endpoint, "/")+"/api/v1/orders",
		pipeline.WithTimeout(defaultSubmitTimeout),
		pipeline.WithLogger(logger.Named("pipeline")))
	if err != nil {
		logger.Fatal("failed to initialise submission pipeline", zap.Error(err))
	}

	wizard, err := intake.NewWizard(intake.WizardDeps{
		Snapshots: snapshots,
		Submitter: submitter,
		Logger:    logger.Named("wizard"),
	})
	if err != nil {
		logger.Fatal("failed to initialise wizard", zap.Error(err))
	}

	ctx := context.Background()
	if err := wizard.Restore(ctx); err != nil {
		logger.Fatal("failed to restore draft", zap.Error(err))
	}
	if wizard.Step() > intake.StepCustomerInfo {
		logger.Info("resuming in-progress draft", zap.Int("step", int(wizard.Step())))
	}

	if err := runWizard(ctx, logger, wizard, spec); err != nil {
		logger.Fatal("submission failed; the draft is saved, re-run to retry", zap.Error(err))
	}

	orderID := wizard.OrderID()
	logger.Info("order submitted",
		zap.String("orderId", orderID),
		zap.String("orderNumber", orderNumber(wizard)),
		zap.Int64("total", wizard.Total()))

	if err := fetchInvoices(ctx, logger, *endpoint, orderID, *invoiceKind); err != nil {
		logger.Warn("invoice fetch failed", zap.Error(err))
	}

	wizard.StartNewOrder(ctx)
}

// draftStore picks where drafts live: Redis when REDIS_ADDR is set (any
// station can resume the draft), otherwise a JSON file under the user
// cache directory (local to this machine).
func draftStore(logger *zap.Logger, clientID string) (snapshot.Repository, func(), error) {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: os.Getenv("REDIS_PASSWORD"),
		})
		repo, err := snapshot.NewRedisRepository(client, "intake:"+clientID)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return repo, func() { _ = client.Close() }, nil
	}

	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, "darzi", "drafts", clientID+".json")
	repo, err := snapshot.NewFileRepository(path)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("storing drafts on disk; set REDIS_ADDR to share drafts across stations",
		zap.String("path", path))
	return repo, func() {}, nil
}

// runWizard pushes the order description through whichever steps the
// restored draft has not completed yet. A draft parked at delivery &
// payment goes straight to submission, reusing its idempotency key.
func runWizard(ctx context.Context, logger *zap.Logger, wizard *intake.Wizard, spec orderFile) error {
	if wizard.Step() == intake.StepConfirmation {
		logger.Info("previous order already confirmed; starting a new one",
			zap.String("orderId", wizard.OrderID()))
		wizard.StartNewOrder(ctx)
	}

	if wizard.Step() == intake.StepCustomerInfo {
		if err := wizard.SubmitCustomerInfo(ctx, spec.Customer); err != nil {
			return fmt.Errorf("customer info: %w", err)
		}
	}

	if wizard.Step() == intake.StepOrderDetails {
		if len(wizard.Garments()) == 0 {
			for i, garment := range spec.Garments {
				if err := addGarment(ctx, wizard, garment); err != nil {
					return fmt.Errorf("garment %d: %w", i+1, err)
				}
			}
		}
		if err := wizard.ContinueToDelivery(ctx); err != nil {
			return err
		}
	}

	delivery, err := spec.Delivery.toDomain()
	if err != nil {
		return fmt.Errorf("delivery: %w", err)
	}
	return wizard.SubmitOrder(ctx, delivery, func(phase pipeline.Phase) {
		logger.Info("submission progress", zap.String("phase", string(phase)))
	})
}

func addGarment(ctx context.Context, wizard *intake.Wizard, spec garmentSpec) error {
	if err := wizard.OpenGarmentForm(ctx); err != nil {
		return err
	}
	b := wizard.Builder()
	b.SelectCategory(spec.Category)
	b.SelectVariant(spec.Variant)
	if err := b.SetUnit(domain.MeasurementUnit(spec.Unit)); err != nil {
		return err
	}
	if err := b.SetQuantity(spec.Quantity); err != nil {
		return err
	}
	for field, value := range spec.Measurements {
		b.SetMeasurement(field, value)
	}
	for i, design := range spec.Designs {
		patch, err := design.toPatch()
		if err != nil {
			return fmt.Errorf("design %d: %w", i+1, err)
		}
		if err := b.UpdateDesign(i, patch); err != nil {
			return fmt.Errorf("design %d: %w", i+1, err)
		}
	}
	if spec.Drawing != "" {
		raster, err := loadImage(spec.Drawing)
		if err != nil {
			return fmt.Errorf("drawing: %w", err)
		}
		b.SetDrawing(&domain.Drawing{Raster: raster})
	}
	return wizard.CommitGarment(ctx)
}

func fetchInvoices(ctx context.Context, logger *zap.Logger, endpoint, orderID, kind string) error {
	var kinds []domain.InvoiceKind
	switch kind {
	case "none":
		return nil
	case "customer":
		kinds = []domain.InvoiceKind{domain.InvoiceCustomer}
	case "tailor":
		kinds = []domain.InvoiceKind{domain.InvoiceTailor}
	case "both":
		kinds = []domain.InvoiceKind{domain.InvoiceCustomer, domain.InvoiceTailor}
	default:
		return fmt.Errorf("unknown invoice kind %q", kind)
	}

	client, err := invoice.New(endpoint, invoice.WithLogger(logger.Named("invoice")))
	if err != nil {
		return err
	}
	for _, k := range kinds {
		document, err := client.Fetch(ctx, orderID, k)
		if err != nil {
			return err
		}
		name := fmt.Sprintf("invoice_%s_%s.html", orderID, k)
		if err := os.WriteFile(name, document, 0o644); err != nil {
			return err
		}
		logger.Info("invoice saved", zap.String("file", name))
	}
	return nil
}

// orderFile is the on-disk order description. Attachments are given as
// local file paths and loaded into the payload at build time.
type orderFile struct {
	Customer domain.Customer `json:"customer"`
	Garments []garmentSpec   `json:"garments"`
	Delivery deliverySpec    `json:"delivery"`
}

type garmentSpec struct {
	Category     string             `json:"category"`
	Variant      string             `json:"variant"`
	Unit         string             `json:"unit"`
	Quantity     int                `json:"quantity"`
	Measurements map[string]float64 `json:"measurements,omitempty"`
	Designs      []designSpec       `json:"designs"`
	Drawing      string             `json:"drawing,omitempty"`
}

type designSpec struct {
	Name            string   `json:"name"`
	Amount          int64    `json:"amount"`
	Description     string   `json:"description,omitempty"`
	ReferenceImages []string `json:"referenceImages,omitempty"`
	FabricImages    []string `json:"fabricImages,omitempty"`
}

type deliverySpec struct {
	DeliveryDate        string `json:"deliveryDate"`
	Urgency             string `json:"urgency,omitempty"`
	Payment             string `json:"payment"`
	AdvanceAmount       int64  `json:"advanceAmount,omitempty"`
	SpecialInstructions string `json:"specialInstructions,omitempty"`
}

func loadOrderFile(path string) (orderFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return orderFile{}, err
	}
	var spec orderFile
	if err := json.Unmarshal(data, &spec); err != nil {
		return orderFile{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return spec, nil
}

func (d designSpec) toPatch() (intake.DesignPatch, error) {
	name, amount, description := d.Name, d.Amount, d.Description
	patch := intake.DesignPatch{
		Name:        &name,
		Amount:      &amount,
		Description: &description,
	}
	for _, path := range d.ReferenceImages {
		ref, err := loadImage(path)
		if err != nil {
			return intake.DesignPatch{}, err
		}
		patch.AddReferenceImages = append(patch.AddReferenceImages, ref)
	}
	for _, path := range d.FabricImages {
		ref, err := loadImage(path)
		if err != nil {
			return intake.DesignPatch{}, err
		}
		patch.AddFabricImages = append(patch.AddFabricImages, ref)
	}
	return patch, nil
}

func (d deliverySpec) toDomain() (domain.Delivery, error) {
	date, err := time.Parse("2006-01-02", d.DeliveryDate)
	if err != nil {
		return domain.Delivery{}, fmt.Errorf("delivery date %q: expected YYYY-MM-DD", d.DeliveryDate)
	}
	return domain.Delivery{
		DeliveryDate:        date,
		Urgency:             domain.Urgency(d.Urgency),
		Payment:             domain.PaymentMethod(d.Payment),
		AdvanceAmount:       d.AdvanceAmount,
		SpecialInstructions: d.SpecialInstructions,
	}, nil
}

func loadImage(path string) (domain.ImageRef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.ImageRef{}, err
	}
	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return domain.UnsentImage(filepath.Base(path), contentType, data), nil
}

func orderNumber(wizard *intake.Wizard) string {
	if order := wizard.Submitted(); order != nil {
		return order.OrderNumber
	}
	return ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
