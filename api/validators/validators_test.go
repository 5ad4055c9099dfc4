package validators

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/glowcart/glowcart-backend/pkg/errors"
)

type addItem struct {
	ProductID string `json:"productId" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,min=1,max=999"`
	SessionID string `json:"sessionId,omitempty" validate:"omitempty,session"`
}

func decode(t *testing.T, body string) (addItem, error) {
	t.Helper()
	var dest addItem
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	err := DecodeJSONBody(httptest.NewRecorder(), req, &dest)
	return dest, err
}

func details(t *testing.T, err error) map[string]string {
	t.Helper()
	var typed *pkgerrors.Error
	if !errors.As(err, &typed) {
		t.Fatalf("expected *errors.Error, got %T: %v", err, err)
	}
	if typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation code, got %s", typed.Code())
	}
	out, _ := typed.Details().(map[string]string)
	return out
}

func TestDecodeJSONBodyAcceptsValidPayload(t *testing.T) {
	got, err := decode(t, `{"productId":"7d0b3c4e-3f54-4a8c-9f6e-1c2b3d4e5f60","quantity":2,"sessionId":"sess_abc-123"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Quantity != 2 || got.SessionID != "sess_abc-123" {
		t.Fatalf("unexpected decode %+v", got)
	}
}

func TestDecodeJSONBodyReportsFieldErrors(t *testing.T) {
	_, err := decode(t, `{"productId":"nope","quantity":0,"sessionId":"has space"}`)
	fields := details(t, err)
	if fields["productId"] != "must be a valid uuid" {
		t.Fatalf("productId detail: %q", fields["productId"])
	}
	if fields["quantity"] != "is required" {
		t.Fatalf("quantity detail: %q", fields["quantity"])
	}
	if !strings.HasPrefix(fields["sessionId"], "must be 1-128") {
		t.Fatalf("sessionId detail: %q", fields["sessionId"])
	}
}

func TestDecodeJSONBodyRejectsMalformedInput(t *testing.T) {
	cases := map[string]string{
		"unknown field": `{"productId":"7d0b3c4e-3f54-4a8c-9f6e-1c2b3d4e5f60","quantity":1,"coupon":"x"}`,
		"trailing data": `{"productId":"7d0b3c4e-3f54-4a8c-9f6e-1c2b3d4e5f60","quantity":1}{}`,
		"wrong type":    `{"productId":"7d0b3c4e-3f54-4a8c-9f6e-1c2b3d4e5f60","quantity":"two"}`,
		"syntax":        `{"productId":`,
		"empty":         ``,
		"too large":     `{"productId":"` + strings.Repeat("a", MaxBodyBytes) + `"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := decode(t, body); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestQueryInt(t *testing.T) {
	bounds := IntRange{Default: 20, Min: 0, Max: 200}
	cases := []struct {
		query   string
		want    int
		wantErr bool
	}{
		{"", 20, false},
		{"recent=", 20, false},
		{"recent=0", 0, false},
		{"recent=200", 200, false},
		{"recent=201", 0, true},
		{"recent=-1", 0, true},
		{"recent=ten", 0, true},
		{"recent=1&recent=2", 0, true},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/?"+tc.query, nil)
		got, err := QueryInt(req, "recent", bounds)
		if (err != nil) != tc.wantErr {
			t.Fatalf("%q: unexpected error state %v", tc.query, err)
		}
		if !tc.wantErr && got != tc.want {
			t.Fatalf("%q: expected %d, got %d", tc.query, tc.want, got)
		}
	}
}
