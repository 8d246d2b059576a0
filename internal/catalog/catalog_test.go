package catalog

import (
	"slices"
	"testing"
)

func TestVariantsKnownCategory(t *testing.T) {
	variants := Variants("kurti_kameez")
	if len(variants) == 0 {
		t.Fatalf("expected variants for kurti_kameez")
	}
	keys := make([]string, 0, len(variants))
	for _, v := range variants {
		if v.Key == "" || v.Label == "" {
			t.Fatalf("variant with empty key or label: %+v", v)
		}
		keys = append(keys, v.Key)
	}
	if !slices.Contains(keys, "straight") {
		t.Fatalf("kurti_kameez variants missing straight: %v", keys)
	}
}

func TestVariantsUnknownCategoryIsEmptyNotError(t *testing.T) {
	if got := Variants("tuxedo"); len(got) != 0 {
		t.Fatalf("Variants(tuxedo) = %v, want empty", got)
	}
	if got := MeasurementFields("tuxedo", "slim"); len(got) != 0 {
		t.Fatalf("MeasurementFields(tuxedo, slim) = %v, want empty", got)
	}
}

func TestMeasurementFieldsOrdered(t *testing.T) {
	first := MeasurementFields("blouse", "princess_cut")
	second := MeasurementFields("blouse", "princess_cut")
	if len(first) == 0 {
		t.Fatalf("expected measurement fields for blouse/princess_cut")
	}
	if !slices.Equal(first, second) {
		t.Fatalf("field order not stable: %v vs %v", first, second)
	}
}

func TestMeasurementFieldsUnknownVariant(t *testing.T) {
	if got := MeasurementFields("blouse", "bolero"); len(got) != 0 {
		t.Fatalf("expected empty fields for unknown variant, got %v", got)
	}
}

func TestMeasurementFieldsCopyIsIsolated(t *testing.T) {
	fields := MeasurementFields("shirt", "formal")
	if len(fields) == 0 {
		t.Fatalf("expected fields for shirt/formal")
	}
	fields[0] = "mutated"
	if MeasurementFields("shirt", "formal")[0] == "mutated" {
		t.Fatalf("taxonomy leaked a mutable slice")
	}
}

func TestHasVariantNormalizesInput(t *testing.T) {
	if !HasVariant(" Kurti_Kameez ", "STRAIGHT") {
		t.Fatalf("expected case-insensitive variant lookup")
	}
	if HasVariant("kurti_kameez", "mermaid") {
		t.Fatalf("mermaid should not exist under kurti_kameez")
	}
}

func TestCategoriesDeterministic(t *testing.T) {
	if !slices.Equal(Categories(), Categories()) {
		t.Fatalf("category order not stable")
	}
}
