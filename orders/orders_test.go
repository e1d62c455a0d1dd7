package orders

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tiffin/globals"
)

func orderRequest(role, userID, body string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	ctx := context.WithValue(r.Context(), globals.UserIDKey, userID)
	ctx = context.WithValue(ctx, globals.RoleKey, role)
	return r.WithContext(ctx)
}

func TestPlaceOrderValidation(t *testing.T) {
	h := NewHandler(nil)

	cases := []struct {
		name string
		role string
		body string
		want int
	}{
		{"vendor cannot place", "vendor", `{"vendor_id":"v1","total":100}`, http.StatusForbidden},
		{"rider cannot place", "rider", `{"vendor_id":"v1","total":100}`, http.StatusForbidden},
		{"malformed body", "customer", `{"vendor_id":`, http.StatusBadRequest},
		{"missing vendor", "customer", `{"total":100}`, http.StatusBadRequest},
		{"zero total", "customer", `{"vendor_id":"v1","total":0}`, http.StatusBadRequest},
		{"negative total", "customer", `{"vendor_id":"v1","total":-50}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		h.PlaceOrder(rec, orderRequest(tc.role, "u1", tc.body), nil)
		if rec.Code != tc.want {
			t.Errorf("%s: got %d, want %d", tc.name, rec.Code, tc.want)
		}
	}
}
