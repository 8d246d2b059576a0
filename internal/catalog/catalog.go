// Package catalog resolves garment categories to their variant sets and
// per-variant measurement field lists. The taxonomy is static; lookups are
// pure and never fail — unknown keys yield empty results.
package catalog

import "strings"

// Variant is one selectable cut/style within a garment category.
type Variant struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

type variantSpec struct {
	variant Variant
	fields  []string
}

type categorySpec struct {
	variants []variantSpec
}

var taxonomy = map[string]categorySpec{
	"kurti_kameez": {variants: []variantSpec{
		{Variant{"straight", "Straight Cut"}, []string{"bust", "waist", "hip", "shoulder", "sleeve_length", "kurti_length", "armhole", "neck_depth"}},
		{Variant{"a_line", "A-Line"}, []string{"bust", "waist", "hip", "shoulder", "sleeve_length", "kurti_length", "flare"}},
		{Variant{"anarkali", "Anarkali"}, []string{"bust", "waist", "shoulder", "sleeve_length", "kurti_length", "flare", "yoke_length"}},
	}},
	"blouse": {variants: []variantSpec{
		{Variant{"princess_cut", "Princess Cut"}, []string{"bust", "under_bust", "shoulder", "sleeve_length", "blouse_length", "armhole", "front_neck_depth", "back_neck_depth"}},
		{Variant{"katori", "Katori"}, []string{"bust", "under_bust", "shoulder", "sleeve_length", "blouse_length", "armhole", "front_neck_depth", "back_neck_depth", "dart_point"}},
		{Variant{"lining", "Lined Blouse"}, []string{"bust", "under_bust", "shoulder", "sleeve_length", "blouse_length", "armhole"}},
	}},
	"lehenga": {variants: []variantSpec{
		{Variant{"flared", "Flared"}, []string{"waist", "hip", "lehenga_length", "flare"}},
		{Variant{"mermaid", "Mermaid"}, []string{"waist", "hip", "thigh", "knee", "lehenga_length"}},
		{Variant{"straight", "Straight"}, []string{"waist", "hip", "lehenga_length"}},
	}},
	"salwar_suit": {variants: []variantSpec{
		{Variant{"patiala", "Patiala"}, []string{"waist", "hip", "salwar_length", "ankle"}},
		{Variant{"churidar", "Churidar"}, []string{"waist", "hip", "thigh", "knee", "calf", "ankle", "salwar_length"}},
		{Variant{"palazzo", "Palazzo"}, []string{"waist", "hip", "salwar_length"}},
	}},
	"gown": {variants: []variantSpec{
		{Variant{"a_line", "A-Line Gown"}, []string{"bust", "waist", "hip", "shoulder", "sleeve_length", "gown_length"}},
		{Variant{"fit_and_flare", "Fit & Flare"}, []string{"bust", "waist", "hip", "shoulder", "sleeve_length", "gown_length", "flare"}},
	}},
	"shirt": {variants: []variantSpec{
		{Variant{"formal", "Formal"}, []string{"chest", "waist", "shoulder", "sleeve_length", "shirt_length", "collar", "cuff"}},
		{Variant{"casual", "Casual"}, []string{"chest", "waist", "shoulder", "sleeve_length", "shirt_length", "collar"}},
	}},
	"trousers": {variants: []variantSpec{
		{Variant{"slim", "Slim Fit"}, []string{"waist", "hip", "thigh", "knee", "bottom", "trouser_length", "crotch"}},
		{Variant{"regular", "Regular Fit"}, []string{"waist", "hip", "thigh", "bottom", "trouser_length", "crotch"}},
	}},
	"kids_frock": {variants: []variantSpec{
		{Variant{"party", "Party Frock"}, []string{"chest", "waist", "shoulder", "sleeve_length", "frock_length"}},
		{Variant{"casual", "Casual Frock"}, []string{"chest", "waist", "frock_length"}},
	}},
}

// categoryOrder keeps listing deterministic for UI and invoices.
var categoryOrder = []string{
	"kurti_kameez",
	"blouse",
	"lehenga",
	"salwar_suit",
	"gown",
	"shirt",
	"trousers",
	"kids_frock",
}

// Categories returns the known category keys in presentation order.
func Categories() []string {
	out := make([]string, len(categoryOrder))
	copy(out, categoryOrder)
	return out
}

// Variants returns the ordered variant set for a category. Unknown
// categories yield an empty slice.
func Variants(category string) []Variant {
	spec, ok := taxonomy[normalize(category)]
	if !ok {
		return nil
	}
	out := make([]Variant, 0, len(spec.variants))
	for _, v := range spec.variants {
		out = append(out, v.variant)
	}
	return out
}

// MeasurementFields returns the ordered measurement field keys for a
// category+variant pair. An empty result means no measurements are
// required, never an error.
func MeasurementFields(category, variant string) []string {
	spec, ok := taxonomy[normalize(category)]
	if !ok {
		return nil
	}
	variant = normalize(variant)
	for _, v := range spec.variants {
		if v.variant.Key == variant {
			out := make([]string, len(v.fields))
			copy(out, v.fields)
			return out
		}
	}
	return nil
}

// HasVariant reports whether the variant exists under the category.
func HasVariant(category, variant string) bool {
	spec, ok := taxonomy[normalize(category)]
	if !ok {
		return false
	}
	variant = normalize(variant)
	for _, v := range spec.variants {
		if v.variant.Key == variant {
			return true
		}
	}
	return false
}

func normalize(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
