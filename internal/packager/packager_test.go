package packager

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"strings"
	"testing"
	"time"

	domain "github.com/darzi-studio/api/internal/domain"
)

func testInput() Input {
	sketch := base64.StdEncoding.EncodeToString([]byte("sketch"))
	return Input{
		Customer: domain.Customer{
			FullName:      "Asha Rao",
			ContactNumber: "9876543210",
			FullAddress:   "12 MG Road, Pune",
		},
		Garments: []domain.Garment{
			{
				Key:      "g-1",
				Category: "kurti_kameez",
				Variant:  "straight",
				Quantity: 2,
				Unit:     domain.UnitInches,
				Designs: []domain.DesignRecord{
					{
						Key:    "d-1",
						Name:   "Design A",
						Amount: 500,
						ReferenceImages: []domain.ImageRef{
							domain.UnsentImage("ref1.jpg", "image/jpeg", []byte("ref-one")),
							domain.RemoteImage("https://assets.example.com/prev/ref.jpg"),
						},
						FabricImages: []domain.ImageRef{
							domain.UnsentImage("fabric.jpg", "image/jpeg", []byte("fabric-swatch")),
						},
					},
					{Key: "d-2", Name: "Design B", Amount: 650},
				},
				Drawing: &domain.Drawing{
					Raster: domain.EmbeddedImage("data:image/png;base64," + sketch),
					Vector: `{"strokes":[]}`,
				},
			},
		},
		Delivery: domain.Delivery{
			DeliveryDate: time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC),
			Payment:      domain.PaymentCash,
		},
	}
}

func parseParts(t *testing.T, payload Payload) map[string][]byte {
	t.Helper()
	_, params, err := mime.ParseMediaType(payload.ContentType)
	if err != nil {
		t.Fatalf("parse content type: %v", err)
	}
	reader := multipart.NewReader(bytes.NewReader(payload.Body), params["boundary"])
	parts := map[string][]byte{}
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("next part: %v", err)
		}
		data, err := io.ReadAll(part)
		if err != nil {
			t.Fatalf("read part %s: %v", part.FormName(), err)
		}
		parts[part.FormName()] = data
	}
	return parts
}

func TestBuildProducesIndexedParts(t *testing.T) {
	payload, report, err := Build(testInput())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(report.DroppedParts) != 0 {
		t.Fatalf("unexpected drops: %v", report.DroppedParts)
	}

	parts := parseParts(t, payload)
	for _, key := range []string{FieldCustomer, FieldGarments, FieldDelivery, "ref_g0_d0_0", "fabric_g0_d0_0", "drawing_g0"} {
		if _, ok := parts[key]; !ok {
			t.Fatalf("missing part %q; have %v", key, keys(parts))
		}
	}
	if string(parts["ref_g0_d0_0"]) != "ref-one" {
		t.Fatalf("reference bytes = %q", parts["ref_g0_d0_0"])
	}
	if string(parts["drawing_g0"]) != "sketch" {
		t.Fatalf("drawing bytes = %q", parts["drawing_g0"])
	}

	var garments []WireGarment
	if err := json.Unmarshal(parts[FieldGarments], &garments); err != nil {
		t.Fatalf("decode garments part: %v", err)
	}
	if len(garments) != 1 || len(garments[0].Designs) != 2 {
		t.Fatalf("wire garments shape wrong: %+v", garments)
	}
	if garments[0].Key != "g-1" || garments[0].Designs[0].Key != "d-1" {
		t.Fatalf("stable keys not carried: %+v", garments[0])
	}
	refs := garments[0].Designs[0].ReferenceImages
	if len(refs) != 2 {
		t.Fatalf("reference images = %d, want 2", len(refs))
	}
	if refs[0].PartKey != "ref_g0_d0_0" {
		t.Fatalf("first reference partKey = %q", refs[0].PartKey)
	}
	if refs[1].URL == "" || refs[1].PartKey != "" {
		t.Fatalf("remote reference should ship by URL only: %+v", refs[1])
	}
	if garments[0].DrawingPart != "drawing_g0" || garments[0].Vector == "" {
		t.Fatalf("drawing wiring wrong: %+v", garments[0])
	}
}

func TestBuildDoesNotMutateInput(t *testing.T) {
	in := testInput()
	before, err := json.Marshal(in.Garments)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	if _, _, err := Build(in); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, _, err := Build(in); err != nil {
		t.Fatalf("second Build: %v", err)
	}

	after, err := json.Marshal(in.Garments)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !bytes.Equal(before, after) {
		t.Fatalf("Build mutated its input")
	}
}

func TestBuildDropsUndecodableAttachment(t *testing.T) {
	in := testInput()
	in.Garments[0].Designs[1].ReferenceImages = []domain.ImageRef{
		domain.EmbeddedImage("data:image/png;base64,@@not-base64@@"),
	}

	payload, report, err := Build(in)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(report.DroppedParts) != 1 || report.DroppedParts[0] != "ref_g0_d1_0" {
		t.Fatalf("dropped = %v", report.DroppedParts)
	}

	parts := parseParts(t, payload)
	if _, ok := parts["ref_g0_d1_0"]; ok {
		t.Fatalf("undecodable part was still written")
	}
	// The healthy attachments still ship.
	if _, ok := parts["ref_g0_d0_0"]; !ok {
		t.Fatalf("healthy attachment missing")
	}
}

func TestBuildCustomerPart(t *testing.T) {
	payload, _, err := Build(testInput())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	parts := parseParts(t, payload)

	var customer domain.Customer
	if err := json.Unmarshal(parts[FieldCustomer], &customer); err != nil {
		t.Fatalf("decode customer: %v", err)
	}
	if customer.FullName != "Asha Rao" || !strings.Contains(customer.FullAddress, "Pune") {
		t.Fatalf("customer part wrong: %+v", customer)
	}
}

func keys(m map[string][]byte) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
