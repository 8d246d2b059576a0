package intake

import (
	"errors"
	"reflect"
	"testing"

	domain "github.com/darzi-studio/api/internal/domain"
)

func strPtr(s string) *string { return &s }

func amtPtr(v int64) *int64 { return &v }

func intPtr(v int) *int { return &v }

func readyBuilder(t *testing.T) *Builder {
	t.Helper()
	b := NewBuilder()
	b.SelectCategory("kurti_kameez")
	b.SelectVariant("straight")
	if err := b.UpdateDesign(0, DesignPatch{Name: strPtr("Design A"), Amount: amtPtr(500)}); err != nil {
		t.Fatalf("UpdateDesign: %v", err)
	}
	return b
}

func TestDesignCountTracksQuantity(t *testing.T) {
	b := NewBuilder()
	for _, n := range []int{1, 4, 10, 2, 7, 1} {
		if err := b.SetQuantity(n); err != nil {
			t.Fatalf("SetQuantity(%d): %v", n, err)
		}
		if got := len(b.Designs()); got != n {
			t.Fatalf("designs after SetQuantity(%d) = %d", n, got)
		}
	}
}

func TestSetQuantityRange(t *testing.T) {
	b := NewBuilder()
	for _, n := range []int{0, -3, 11, 100} {
		if err := b.SetQuantity(n); !errors.Is(err, ErrQuantityRange) {
			t.Fatalf("SetQuantity(%d) err = %v, want ErrQuantityRange", n, err)
		}
	}
	if got := len(b.Designs()); got != 1 {
		t.Fatalf("rejected quantities resized designs to %d", got)
	}
}

func TestQuantityDecreaseTruncatesAndPreservesPrefix(t *testing.T) {
	b := NewBuilder()
	if err := b.SetQuantity(3); err != nil {
		t.Fatalf("SetQuantity: %v", err)
	}
	names := []string{"First", "Second", "Third"}
	for i, name := range names {
		if err := b.UpdateDesign(i, DesignPatch{Name: strPtr(name), Amount: amtPtr(int64(100 * (i + 1)))}); err != nil {
			t.Fatalf("UpdateDesign(%d): %v", i, err)
		}
	}
	before := b.Designs()[:2]

	if err := b.SetQuantity(2); err != nil {
		t.Fatalf("SetQuantity(2): %v", err)
	}
	after := b.Designs()
	if len(after) != 2 {
		t.Fatalf("designs = %d, want 2", len(after))
	}
	if !reflect.DeepEqual([]domain.DesignRecord(before), after) {
		t.Fatalf("surviving designs changed:\nbefore %+v\nafter  %+v", before, after)
	}
}

func TestQuantityShrinkThenGrowYieldsBlankTail(t *testing.T) {
	b := NewBuilder()
	_ = b.SetQuantity(2)
	_ = b.UpdateDesign(1, DesignPatch{Name: strPtr("Gone"), Amount: amtPtr(999)})
	_ = b.SetQuantity(1)
	_ = b.SetQuantity(2)

	second := b.Designs()[1]
	if second.Name != "" || second.Amount != 0 {
		t.Fatalf("truncated design resurrected: %+v", second)
	}
}

func TestReferenceImageCapRejectsSixth(t *testing.T) {
	b := readyBuilder(t)
	for i := 0; i < domain.MaxReferenceImages; i++ {
		err := b.UpdateDesign(0, DesignPatch{
			AddReferenceImages: []domain.ImageRef{domain.UnsentImage("r.jpg", "image/jpeg", []byte{byte(i)})},
		})
		if err != nil {
			t.Fatalf("add reference %d: %v", i, err)
		}
	}

	err := b.UpdateDesign(0, DesignPatch{
		AddReferenceImages: []domain.ImageRef{domain.UnsentImage("extra.jpg", "image/jpeg", []byte{9})},
	})
	if !errors.Is(err, ErrImageLimit) {
		t.Fatalf("sixth reference err = %v, want ErrImageLimit", err)
	}
	if got := len(b.Designs()[0].ReferenceImages); got != domain.MaxReferenceImages {
		t.Fatalf("reference list length = %d after rejection, want %d", got, domain.MaxReferenceImages)
	}
}

func TestFabricImageCapRejectsFourth(t *testing.T) {
	b := readyBuilder(t)
	for i := 0; i < domain.MaxFabricImages; i++ {
		if err := b.UpdateDesign(0, DesignPatch{
			AddFabricImages: []domain.ImageRef{domain.UnsentImage("f.jpg", "image/jpeg", []byte{byte(i)})},
		}); err != nil {
			t.Fatalf("add fabric %d: %v", i, err)
		}
	}
	err := b.UpdateDesign(0, DesignPatch{
		AddFabricImages: []domain.ImageRef{domain.UnsentImage("f4.jpg", "image/jpeg", []byte{9})},
	})
	if !errors.Is(err, ErrImageLimit) {
		t.Fatalf("fourth fabric err = %v, want ErrImageLimit", err)
	}
	if got := len(b.Designs()[0].FabricImages); got != domain.MaxFabricImages {
		t.Fatalf("fabric list length = %d after rejection", got)
	}
}

func TestReplaceReferenceImageAtCap(t *testing.T) {
	b := readyBuilder(t)
	for i := 0; i < domain.MaxReferenceImages; i++ {
		if err := b.UpdateDesign(0, DesignPatch{
			AddReferenceImages: []domain.ImageRef{domain.UnsentImage("r.jpg", "image/jpeg", []byte{byte(i)})},
		}); err != nil {
			t.Fatalf("add reference %d: %v", i, err)
		}
	}

	// Swapping one image out for another in a single patch stays at the
	// cap, so it must be accepted.
	err := b.UpdateDesign(0, DesignPatch{
		RemoveReferenceAt:  intPtr(0),
		AddReferenceImages: []domain.ImageRef{domain.UnsentImage("swap.jpg", "image/jpeg", []byte{9})},
	})
	if err != nil {
		t.Fatalf("replace at cap: %v", err)
	}
	refs := b.Designs()[0].ReferenceImages
	if len(refs) != domain.MaxReferenceImages {
		t.Fatalf("reference list length = %d, want %d", len(refs), domain.MaxReferenceImages)
	}
	if refs[len(refs)-1].FileName != "swap.jpg" {
		t.Fatalf("last reference = %q, want swap.jpg", refs[len(refs)-1].FileName)
	}

	err = b.UpdateDesign(0, DesignPatch{
		RemoveReferenceAt: intPtr(0),
		AddReferenceImages: []domain.ImageRef{
			domain.UnsentImage("a.jpg", "image/jpeg", []byte{1}),
			domain.UnsentImage("b.jpg", "image/jpeg", []byte{2}),
		},
	})
	if !errors.Is(err, ErrImageLimit) {
		t.Fatalf("remove one add two err = %v, want ErrImageLimit", err)
	}
	if got := len(b.Designs()[0].ReferenceImages); got != domain.MaxReferenceImages {
		t.Fatalf("reference list length = %d after rejection, want %d", got, domain.MaxReferenceImages)
	}
}

func TestReplaceFabricImageAtCap(t *testing.T) {
	b := readyBuilder(t)
	for i := 0; i < domain.MaxFabricImages; i++ {
		if err := b.UpdateDesign(0, DesignPatch{
			AddFabricImages: []domain.ImageRef{domain.UnsentImage("f.jpg", "image/jpeg", []byte{byte(i)})},
		}); err != nil {
			t.Fatalf("add fabric %d: %v", i, err)
		}
	}

	if err := b.UpdateDesign(0, DesignPatch{
		RemoveFabricAt:  intPtr(1),
		AddFabricImages: []domain.ImageRef{domain.UnsentImage("swap.jpg", "image/jpeg", []byte{9})},
	}); err != nil {
		t.Fatalf("replace at cap: %v", err)
	}
	if got := len(b.Designs()[0].FabricImages); got != domain.MaxFabricImages {
		t.Fatalf("fabric list length = %d, want %d", got, domain.MaxFabricImages)
	}
}

func TestCommitRejectsIncompleteDesignAndKeepsState(t *testing.T) {
	b := readyBuilder(t)
	if err := b.SetQuantity(3); err != nil {
		t.Fatalf("SetQuantity: %v", err)
	}
	_ = b.UpdateDesign(1, DesignPatch{Name: strPtr("Design B"), Amount: amtPtr(650)})
	// Third design left blank on purpose.

	before := b.Designs()
	if _, err := b.Commit(); !errors.Is(err, ErrDesignIncomplete) {
		t.Fatalf("Commit err = %v, want ErrDesignIncomplete", err)
	}
	if !reflect.DeepEqual(before, b.Designs()) {
		t.Fatalf("failed commit mutated builder state")
	}

	// Fixing the offending design makes the retry succeed.
	if err := b.UpdateDesign(2, DesignPatch{Name: strPtr("Design C"), Amount: amtPtr(700)}); err != nil {
		t.Fatalf("UpdateDesign: %v", err)
	}
	garment, err := b.Commit()
	if err != nil {
		t.Fatalf("Commit after fix: %v", err)
	}
	if len(garment.Designs) != 3 || garment.Total() != 1850 {
		t.Fatalf("garment = %+v", garment)
	}
}

func TestCommitRequiresCategoryAndVariant(t *testing.T) {
	b := NewBuilder()
	_ = b.UpdateDesign(0, DesignPatch{Name: strPtr("X"), Amount: amtPtr(100)})
	if _, err := b.Commit(); !errors.Is(err, ErrCategoryRequired) {
		t.Fatalf("err = %v, want ErrCategoryRequired", err)
	}
	b.SelectCategory("blouse")
	if _, err := b.Commit(); !errors.Is(err, ErrVariantRequired) {
		t.Fatalf("err = %v, want ErrVariantRequired", err)
	}
	b.SelectVariant("katori")
	if _, err := b.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
}

func TestCommitRejectsNonPositiveAmount(t *testing.T) {
	b := readyBuilder(t)
	_ = b.UpdateDesign(0, DesignPatch{Amount: amtPtr(0)})
	if _, err := b.Commit(); !errors.Is(err, ErrDesignIncomplete) {
		t.Fatalf("zero amount err = %v, want ErrDesignIncomplete", err)
	}
	_ = b.UpdateDesign(0, DesignPatch{Amount: amtPtr(-50)})
	if _, err := b.Commit(); !errors.Is(err, ErrDesignIncomplete) {
		t.Fatalf("negative amount err = %v, want ErrDesignIncomplete", err)
	}
}

func TestSelectVariantPreservesStillValidMeasurements(t *testing.T) {
	b := NewBuilder()
	b.SelectCategory("salwar_suit")
	b.SelectVariant("churidar")
	b.SetMeasurement("waist", 30)
	b.SetMeasurement("hip", 38)
	b.SetMeasurement("calf", 14) // churidar-only field

	b.SelectVariant("patiala")
	garmentFields := b.MeasurementFields()
	if len(garmentFields) == 0 {
		t.Fatalf("no fields for patiala")
	}

	b.SelectVariant("churidar")
	_ = b.SetQuantity(1)
	_ = b.UpdateDesign(0, DesignPatch{Name: strPtr("Suit"), Amount: amtPtr(900)})
	garment, err := b.Commit()
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if garment.Measurements["waist"] != 30 || garment.Measurements["hip"] != 38 {
		t.Fatalf("shared measurements lost: %+v", garment.Measurements)
	}
	if _, ok := garment.Measurements["calf"]; ok {
		t.Fatalf("churidar-only field survived the variant switch away and back")
	}
}

func TestLoadForEditCommitKeepsKey(t *testing.T) {
	b := readyBuilder(t)
	original, err := b.Commit()
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	edit := NewBuilder()
	edit.LoadForEdit(original)
	if !edit.Editing() {
		t.Fatalf("builder not in editing mode after LoadForEdit")
	}
	_ = edit.UpdateDesign(0, DesignPatch{Amount: amtPtr(800)})
	updated, err := edit.Commit()
	if err != nil {
		t.Fatalf("Commit after edit: %v", err)
	}
	if updated.Key != original.Key {
		t.Fatalf("edit changed the garment key: %q vs %q", updated.Key, original.Key)
	}
	if updated.Designs[0].Amount != 800 {
		t.Fatalf("edit not applied: %+v", updated.Designs[0])
	}
}

func TestCommittedGarmentIsolatedFromBuilder(t *testing.T) {
	b := readyBuilder(t)
	garment, err := b.Commit()
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	_ = b.UpdateDesign(0, DesignPatch{Name: strPtr("Mutated")})
	if garment.Designs[0].Name != "Design A" {
		t.Fatalf("committed garment aliases builder state")
	}
}
