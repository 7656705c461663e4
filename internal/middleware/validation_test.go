package middleware

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type createProductBody struct {
	Title      string `json:"title" validate:"required,min=1,max=255"`
	PriceCents int64  `json:"priceCents" validate:"gte=0"`
	Currency   string `json:"currency" validate:"required,len=3"`
	ImageType  string `json:"imageType,omitempty" validate:"omitempty,oneof=MAIN GALLERY"`
}

func decodeBody(t *testing.T, body string) error {
	t.Helper()
	req := httptest.NewRequest("POST", "/admin/products", strings.NewReader(body))
	var v createProductBody
	return DecodeAndValidate(req, &v)
}

func TestDecodeAndValidate_AcceptsWellFormedBody(t *testing.T) {
	err := decodeBody(t, `{"title":"Signed Ball","priceCents":150000,"currency":"MXN"}`)
	assert.NoError(t, err)
}

func TestDecodeAndValidate_RejectsFractionalMinorUnits(t *testing.T) {
	// Prices are integral minor units; 10.5 must fail at decode time.
	err := decodeBody(t, `{"title":"Signed Ball","priceCents":10.5,"currency":"MXN"}`)
	assert.Error(t, err)
}

func TestDecodeAndValidate_RejectsNegativePrice(t *testing.T) {
	err := decodeBody(t, `{"title":"Signed Ball","priceCents":-50,"currency":"MXN"}`)
	require.Error(t, err)

	formatted := FormatValidationErrors(err)
	require.Len(t, formatted, 1)
	assert.Equal(t, "PriceCents", formatted[0].Field)
}

func TestDecodeAndValidate_RejectsUnknownFields(t *testing.T) {
	err := decodeBody(t, `{"title":"Signed Ball","priceCents":100,"currency":"MXN","prise":1}`)
	assert.Error(t, err)
}

func TestDecodeAndValidate_RejectsUnknownImageType(t *testing.T) {
	err := decodeBody(t, `{"title":"Signed Ball","priceCents":100,"currency":"MXN","imageType":"THUMB"}`)
	require.Error(t, err)

	formatted := FormatValidationErrors(err)
	require.Len(t, formatted, 1)
	assert.Contains(t, formatted[0].Message, "MAIN GALLERY")
}

func TestFormatValidationErrors_CollectsAllFields(t *testing.T) {
	err := decodeBody(t, `{"priceCents":-1,"currency":"MXNN"}`)
	require.Error(t, err)

	formatted := FormatValidationErrors(err)
	assert.Len(t, formatted, 3)
}
