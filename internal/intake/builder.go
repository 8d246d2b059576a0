package intake

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/darzi-studio/api/internal/catalog"
	domain "github.com/darzi-studio/api/internal/domain"
)

var (
	// ErrCategoryRequired indicates no garment category has been chosen.
	ErrCategoryRequired = errors.New("intake: garment category is required")
	// ErrVariantRequired indicates no variant has been chosen for the category.
	ErrVariantRequired = errors.New("intake: garment variant is required")
	// ErrQuantityRange indicates the quantity is outside 1..10.
	ErrQuantityRange = errors.New("intake: quantity must be between 1 and 10")
	// ErrDesignIndex indicates a design index outside the current quantity.
	ErrDesignIndex = errors.New("intake: design index out of range")
	// ErrDesignIncomplete indicates at least one design is missing its name or a positive amount.
	ErrDesignIncomplete = errors.New("intake: fill in name and amount for every design")
	// ErrImageLimit indicates an image addition would exceed the per-design cap.
	ErrImageLimit = errors.New("intake: image limit reached for this design")
)

// Builder accumulates one garment: category/variant selection, unit,
// measurements, and per-unit design records kept in lockstep with the
// quantity. Commit yields a finished Garment; until then nothing leaves
// the builder.
type Builder struct {
	category     string
	variant      string
	unit         domain.MeasurementUnit
	quantity     int
	measurements domain.MeasurementSet
	designs      []domain.DesignRecord
	drawing      *domain.Drawing
	editKey      string
}

// NewBuilder returns a builder primed for a single blank garment.
func NewBuilder() *Builder {
	b := &Builder{
		unit:         domain.UnitInches,
		quantity:     1,
		measurements: domain.MeasurementSet{},
	}
	b.resizeDesigns(1)
	return b
}

// SelectCategory chooses the garment category, resetting the variant and
// measurement-field selection. Entered values are kept; they are pruned
// against the field list once a variant is chosen again.
func (b *Builder) SelectCategory(category string) {
	b.category = strings.TrimSpace(strings.ToLower(category))
	b.variant = ""
}

// SelectVariant chooses the variant and re-derives the measurement field
// list. Values for fields that remain valid are preserved; the rest are
// dropped.
func (b *Builder) SelectVariant(variant string) {
	b.variant = strings.TrimSpace(strings.ToLower(variant))
	fields := catalog.MeasurementFields(b.category, b.variant)
	if len(fields) == 0 {
		return
	}
	valid := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		valid[f] = struct{}{}
	}
	for key := range b.measurements {
		if _, ok := valid[key]; !ok {
			delete(b.measurements, key)
		}
	}
}

// Category returns the selected category key.
func (b *Builder) Category() string { return b.category }

// Variant returns the selected variant key.
func (b *Builder) Variant() string { return b.variant }

// MeasurementFields returns the ordered field keys for the current selection.
func (b *Builder) MeasurementFields() []string {
	return catalog.MeasurementFields(b.category, b.variant)
}

// SetUnit switches the measurement unit for the whole garment.
func (b *Builder) SetUnit(unit domain.MeasurementUnit) error {
	if !unit.Valid() {
		return fmt.Errorf("intake: unknown measurement unit %q", unit)
	}
	b.unit = unit
	return nil
}

// SetMeasurement records one measurement value under the garment's unit.
func (b *Builder) SetMeasurement(field string, value float64) {
	field = strings.TrimSpace(field)
	if field == "" {
		return
	}
	if b.measurements == nil {
		b.measurements = domain.MeasurementSet{}
	}
	b.measurements[field] = value
}

// SetQuantity resizes the design list to n, preserving existing records
// at their index. Growth pads with blank records; shrinking truncates
// trailing records silently.
func (b *Builder) SetQuantity(n int) error {
	if n < domain.MinGarmentQuantity || n > domain.MaxGarmentQuantity {
		return ErrQuantityRange
	}
	b.quantity = n
	b.resizeDesigns(n)
	return nil
}

// Quantity returns the declared quantity.
func (b *Builder) Quantity() int { return b.quantity }

// Designs returns a copy of the current design records.
func (b *Builder) Designs() []domain.DesignRecord {
	return cloneDesigns(b.designs)
}

// DesignPatch carries a partial update for one design record. Nil fields
// leave the record unchanged.
type DesignPatch struct {
	Name        *string
	Amount      *int64
	Description *string

	AddReferenceImages []domain.ImageRef
	RemoveReferenceAt  *int
	AddFabricImages    []domain.ImageRef
	RemoveFabricAt     *int
}

// UpdateDesign merges a partial update into the design at index. Image
// additions beyond the per-design caps are rejected outright: the list
// is left untouched rather than truncated.
func (b *Builder) UpdateDesign(index int, patch DesignPatch) error {
	if index < 0 || index >= len(b.designs) {
		return ErrDesignIndex
	}
	record := &b.designs[index]

	// Cap checks count against the list as it will look after the
	// patch's removal, so remove-and-replace in one patch works at the
	// limit.
	refCount := len(record.ReferenceImages)
	if patch.RemoveReferenceAt != nil {
		i := *patch.RemoveReferenceAt
		if i < 0 || i >= refCount {
			return fmt.Errorf("intake: reference image index %d out of range", i)
		}
		refCount--
	}
	fabricCount := len(record.FabricImages)
	if patch.RemoveFabricAt != nil {
		i := *patch.RemoveFabricAt
		if i < 0 || i >= fabricCount {
			return fmt.Errorf("intake: fabric image index %d out of range", i)
		}
		fabricCount--
	}
	if refCount+len(patch.AddReferenceImages) > domain.MaxReferenceImages {
		return fmt.Errorf("%w: at most %d reference images", ErrImageLimit, domain.MaxReferenceImages)
	}
	if fabricCount+len(patch.AddFabricImages) > domain.MaxFabricImages {
		return fmt.Errorf("%w: at most %d fabric images", ErrImageLimit, domain.MaxFabricImages)
	}

	if patch.Name != nil {
		record.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Amount != nil {
		record.Amount = *patch.Amount
	}
	if patch.Description != nil {
		record.Description = *patch.Description
	}
	if patch.RemoveReferenceAt != nil {
		i := *patch.RemoveReferenceAt
		record.ReferenceImages = append(record.ReferenceImages[:i], record.ReferenceImages[i+1:]...)
	}
	if patch.RemoveFabricAt != nil {
		i := *patch.RemoveFabricAt
		record.FabricImages = append(record.FabricImages[:i], record.FabricImages[i+1:]...)
	}
	record.ReferenceImages = append(record.ReferenceImages, patch.AddReferenceImages...)
	record.FabricImages = append(record.FabricImages, patch.AddFabricImages...)
	return nil
}

// SetDrawing attaches or replaces the freehand sketch for the garment.
func (b *Builder) SetDrawing(drawing *domain.Drawing) {
	b.drawing = drawing
}

// Drawing returns the current freehand sketch, if any.
func (b *Builder) Drawing() *domain.Drawing { return b.drawing }

// Commit validates the accumulated garment and returns it. On failure
// the builder is left exactly as it was, so fixing the offending field
// and retrying succeeds.
func (b *Builder) Commit() (domain.Garment, error) {
	if b.category == "" {
		return domain.Garment{}, ErrCategoryRequired
	}
	if b.variant == "" || !catalog.HasVariant(b.category, b.variant) {
		return domain.Garment{}, ErrVariantRequired
	}
	if b.quantity < domain.MinGarmentQuantity {
		return domain.Garment{}, ErrQuantityRange
	}
	for i, d := range b.designs {
		if strings.TrimSpace(d.Name) == "" || d.Amount <= 0 {
			return domain.Garment{}, fmt.Errorf("%w (design %d)", ErrDesignIncomplete, i+1)
		}
	}

	key := b.editKey
	if key == "" {
		key = uuid.NewString()
	}
	garment := domain.Garment{
		Key:          key,
		Category:     b.category,
		Variant:      b.variant,
		Quantity:     b.quantity,
		Unit:         b.unit,
		Measurements: cloneMeasurements(b.measurements),
		Designs:      cloneDesigns(b.designs),
		Drawing:      cloneDrawing(b.drawing),
	}
	return garment, nil
}

// LoadForEdit rehydrates the builder from an existing garment so the
// next Commit replaces it instead of producing a new one.
func (b *Builder) LoadForEdit(garment domain.Garment) {
	b.category = garment.Category
	b.variant = garment.Variant
	b.unit = garment.Unit
	if !b.unit.Valid() {
		b.unit = domain.UnitInches
	}
	b.quantity = garment.Quantity
	if b.quantity < domain.MinGarmentQuantity {
		b.quantity = domain.MinGarmentQuantity
	}
	b.measurements = cloneMeasurements(garment.Measurements)
	if b.measurements == nil {
		b.measurements = domain.MeasurementSet{}
	}
	b.designs = cloneDesigns(garment.Designs)
	b.resizeDesigns(b.quantity)
	b.drawing = cloneDrawing(garment.Drawing)
	b.editKey = garment.Key
}

// Editing reports whether the builder was loaded from an existing garment.
func (b *Builder) Editing() bool { return b.editKey != "" }

// Reset returns the builder to its initial blank state.
func (b *Builder) Reset() {
	*b = *NewBuilder()
}

func (b *Builder) resizeDesigns(n int) {
	if n < len(b.designs) {
		b.designs = b.designs[:n]
		return
	}
	for len(b.designs) < n {
		b.designs = append(b.designs, domain.DesignRecord{Key: uuid.NewString()})
	}
}

func cloneDesigns(designs []domain.DesignRecord) []domain.DesignRecord {
	if designs == nil {
		return nil
	}
	out := make([]domain.DesignRecord, len(designs))
	copy(out, designs)
	for i := range out {
		out[i].ReferenceImages = cloneImages(designs[i].ReferenceImages)
		out[i].FabricImages = cloneImages(designs[i].FabricImages)
	}
	return out
}

func cloneImages(images []domain.ImageRef) []domain.ImageRef {
	if images == nil {
		return nil
	}
	out := make([]domain.ImageRef, len(images))
	copy(out, images)
	return out
}

func cloneMeasurements(m domain.MeasurementSet) domain.MeasurementSet {
	if m == nil {
		return nil
	}
	out := make(domain.MeasurementSet, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneDrawing(d *domain.Drawing) *domain.Drawing {
	if d == nil {
		return nil
	}
	copied := *d
	return &copied
}
