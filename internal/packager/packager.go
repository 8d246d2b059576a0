// Package packager flattens an accumulated order, attachments included,
// into the single multipart payload the order service accepts.
package packager

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strings"

	domain "github.com/darzi-studio/api/internal/domain"
)

// Part field names for the JSON sections of the payload.
const (
	FieldCustomer = "customer"
	FieldGarments = "garments"
	FieldDelivery = "delivery"
)

// Input is the read-only view of the order aggregate at the moment step
// three completes. Build never mutates it.
type Input struct {
	Customer domain.Customer
	Garments []domain.Garment
	Delivery domain.Delivery
}

// Payload is the finished multipart body plus its content type. The
// idempotency key is set by the caller and stays stable across retries
// of the same submission.
type Payload struct {
	Body           []byte
	ContentType    string
	IdempotencyKey string
}

// Report lists attachments that could not be decoded and were dropped.
// A dropped attachment degrades the submission but never blocks it.
type Report struct {
	DroppedParts []string
}

// WireImage is how one attachment appears inside the garments JSON part.
// Binary payloads travel as separate multipart parts referenced by
// PartKey; already-resolved remote attachments travel by URL only.
type WireImage struct {
	FileName    string `json:"fileName,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	URL         string `json:"url,omitempty"`
	PartKey     string `json:"partKey,omitempty"`
}

// WireDesign mirrors DesignRecord with attachments in wire form.
type WireDesign struct {
	Key             string      `json:"key"`
	Name            string      `json:"name"`
	Amount          int64       `json:"amount"`
	Description     string      `json:"designDescription,omitempty"`
	ReferenceImages []WireImage `json:"referenceImages,omitempty"`
	FabricImages    []WireImage `json:"fabricImages,omitempty"`
}

// WireGarment mirrors Garment with designs in wire form and the drawing
// carried as a part reference.
type WireGarment struct {
	Key          string                 `json:"key"`
	Category     string                 `json:"orderType"`
	Variant      string                 `json:"variant"`
	Quantity     int                    `json:"quantity"`
	Unit         domain.MeasurementUnit `json:"unit"`
	Measurements domain.MeasurementSet  `json:"measurements,omitempty"`
	Designs      []WireDesign           `json:"designs"`
	DrawingPart  string                 `json:"drawingPart,omitempty"`
	DrawingURL   string                 `json:"drawingUrl,omitempty"`
	Vector       string                 `json:"vector,omitempty"`
}

// DrawingPartKey names the binary part for a garment's freehand sketch.
func DrawingPartKey(garment int) string {
	return fmt.Sprintf("drawing_g%d", garment)
}

// ReferencePartKey names the binary part for one reference image.
func ReferencePartKey(garment, design, file int) string {
	return fmt.Sprintf("ref_g%d_d%d_%d", garment, design, file)
}

// FabricPartKey names the binary part for one fabric image.
func FabricPartKey(garment, design, file int) string {
	return fmt.Sprintf("fabric_g%d_d%d_%d", garment, design, file)
}

// Build assembles the multipart payload: JSON parts for customer,
// garments and delivery, and one binary part per pending attachment,
// keyed by garment/design/file position. Attachments that fail to
// resolve are dropped and reported; everything else still ships.
func Build(in Input) (Payload, Report, error) {
	var report Report
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	wireGarments := make([]WireGarment, 0, len(in.Garments))
	type binaryPart struct {
		key      string
		fileName string
		resolved domain.ResolvedImage
	}
	var binaries []binaryPart

	addImage := func(ref domain.ImageRef, key string) WireImage {
		resolved, err := ref.Resolve()
		if err != nil {
			report.DroppedParts = append(report.DroppedParts, key)
			return WireImage{}
		}
		if resolved.Remote() {
			return WireImage{URL: resolved.URL}
		}
		fileName := resolved.FileName
		if fileName == "" {
			fileName = key
		}
		binaries = append(binaries, binaryPart{key: key, fileName: fileName, resolved: resolved})
		return WireImage{
			FileName:    fileName,
			ContentType: resolved.ContentType,
			PartKey:     key,
		}
	}

	for gi, garment := range in.Garments {
		wire := WireGarment{
			Key:          garment.Key,
			Category:     garment.Category,
			Variant:      garment.Variant,
			Quantity:     garment.Quantity,
			Unit:         garment.Unit,
			Measurements: garment.Measurements,
			Designs:      make([]WireDesign, 0, len(garment.Designs)),
		}
		if garment.Drawing != nil && !garment.Drawing.Raster.IsZero() {
			key := DrawingPartKey(gi)
			img := addImage(garment.Drawing.Raster, key)
			wire.DrawingPart = img.PartKey
			wire.DrawingURL = img.URL
			wire.Vector = garment.Drawing.Vector
		}
		for di, design := range garment.Designs {
			wd := WireDesign{
				Key:         design.Key,
				Name:        design.Name,
				Amount:      design.Amount,
				Description: design.Description,
			}
			for fi, ref := range design.ReferenceImages {
				if img := addImage(ref, ReferencePartKey(gi, di, fi)); !imageEmpty(img) {
					wd.ReferenceImages = append(wd.ReferenceImages, img)
				}
			}
			for fi, ref := range design.FabricImages {
				if img := addImage(ref, FabricPartKey(gi, di, fi)); !imageEmpty(img) {
					wd.FabricImages = append(wd.FabricImages, img)
				}
			}
			wire.Designs = append(wire.Designs, wd)
		}
		wireGarments = append(wireGarments, wire)
	}

	if err := writeJSONPart(writer, FieldCustomer, in.Customer); err != nil {
		return Payload{}, report, err
	}
	if err := writeJSONPart(writer, FieldGarments, wireGarments); err != nil {
		return Payload{}, report, err
	}
	if err := writeJSONPart(writer, FieldDelivery, in.Delivery); err != nil {
		return Payload{}, report, err
	}

	for _, part := range binaries {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`,
			part.key, sanitizeFileName(part.fileName)))
		header.Set("Content-Type", part.resolved.ContentType)
		w, err := writer.CreatePart(header)
		if err != nil {
			return Payload{}, report, fmt.Errorf("packager: create part %s: %w", part.key, err)
		}
		if _, err := w.Write(part.resolved.Bytes); err != nil {
			return Payload{}, report, fmt.Errorf("packager: write part %s: %w", part.key, err)
		}
	}

	if err := writer.Close(); err != nil {
		return Payload{}, report, fmt.Errorf("packager: close payload: %w", err)
	}
	return Payload{Body: buf.Bytes(), ContentType: writer.FormDataContentType()}, report, nil
}

func writeJSONPart(writer *multipart.Writer, field string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("packager: encode %s: %w", field, err)
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q`, field))
	header.Set("Content-Type", "application/json")
	w, err := writer.CreatePart(header)
	if err != nil {
		return fmt.Errorf("packager: create %s part: %w", field, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("packager: write %s part: %w", field, err)
	}
	return nil
}

func imageEmpty(img WireImage) bool {
	return img.URL == "" && img.PartKey == ""
}

func sanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	if name == "" {
		name = "attachment"
	}
	return name
}
