package storage

import (
	"fmt"
	"strings"
	"sync"
)

// AssetPurpose captures high-level intent for storage layout decisions.
type AssetPurpose string

const (
	PurposeGarmentDrawing  AssetPurpose = "garment-drawing"
	PurposeDesignReference AssetPurpose = "design-reference"
	PurposeDesignFabric    AssetPurpose = "design-fabric"
	PurposeInvoice         AssetPurpose = "invoice"
)

// PathParams provide required identifiers to compose storage object keys.
type PathParams struct {
	OrderID      string
	GarmentIndex int
	DesignIndex  int
	FileIndex    int
	InvoiceKind  string
	FileName     string
}

// PathBuilder composes the object path for a given asset purpose.
type PathBuilder func(PathParams) (string, error)

var (
	pathBuilders = map[AssetPurpose]PathBuilder{
		PurposeGarmentDrawing:  buildGarmentDrawingPath,
		PurposeDesignReference: buildDesignImagePath("reference"),
		PurposeDesignFabric:    buildDesignImagePath("fabric"),
		PurposeInvoice:         buildInvoicePath,
	}
	pathBuildersMu sync.RWMutex
)

// RegisterPathBuilder overrides or registers a builder for a specific purpose.
func RegisterPathBuilder(purpose AssetPurpose, builder PathBuilder) {
	pathBuildersMu.Lock()
	defer pathBuildersMu.Unlock()
	if builder == nil {
		delete(pathBuilders, purpose)
		return
	}
	pathBuilders[purpose] = builder
}

// BuildObjectPath resolves the storage object path for the given purpose.
func BuildObjectPath(purpose AssetPurpose, params PathParams) (string, error) {
	pathBuildersMu.RLock()
	builder, ok := pathBuilders[purpose]
	pathBuildersMu.RUnlock()
	if !ok {
		return "", fmt.Errorf("storage: unsupported asset purpose %q", purpose)
	}
	return builder(params)
}

func buildGarmentDrawingPath(params PathParams) (string, error) {
	orderID, err := validateSegment("orderID", params.OrderID)
	if err != nil {
		return "", err
	}
	if params.GarmentIndex < 0 {
		return "", fmt.Errorf("storage: garmentIndex must not be negative")
	}
	fileName, err := validateFileName(params.FileName)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("orders/%s/garments/%d/drawing/%s", orderID, params.GarmentIndex, fileName), nil
}

func buildDesignImagePath(slot string) PathBuilder {
	return func(params PathParams) (string, error) {
		orderID, err := validateSegment("orderID", params.OrderID)
		if err != nil {
			return "", err
		}
		if params.GarmentIndex < 0 {
			return "", fmt.Errorf("storage: garmentIndex must not be negative")
		}
		if params.DesignIndex < 0 {
			return "", fmt.Errorf("storage: designIndex must not be negative")
		}
		if params.FileIndex < 0 {
			return "", fmt.Errorf("storage: fileIndex must not be negative")
		}
		fileName, err := validateFileName(params.FileName)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("orders/%s/garments/%d/designs/%d/%s/%02d_%s",
			orderID, params.GarmentIndex, params.DesignIndex, slot, params.FileIndex, fileName), nil
	}
}

func buildInvoicePath(params PathParams) (string, error) {
	orderID, err := validateSegment("orderID", params.OrderID)
	if err != nil {
		return "", err
	}
	kind, err := validateSegment("invoiceKind", params.InvoiceKind)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("invoices/%s/%s.html", orderID, kind), nil
}

func validateSegment(name, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("storage: %s is required", name)
	}
	if strings.ContainsAny(value, "/\\") {
		return "", fmt.Errorf("storage: %s contains invalid path characters", name)
	}
	if strings.Contains(value, "..") {
		return "", fmt.Errorf("storage: %s contains invalid traversal sequence", name)
	}
	return value, nil
}

func validateFileName(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("storage: fileName is required")
	}
	if strings.ContainsAny(value, "/\\") {
		return "", fmt.Errorf("storage: fileName contains invalid path characters")
	}
	if strings.Contains(value, "..") {
		return "", fmt.Errorf("storage: fileName contains invalid traversal sequence")
	}
	return value, nil
}
