package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.mongodb.org/mongo-driver/mongo"
)

func TestIsDuplicateUsername(t *testing.T) {
	dup := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000}}}
	if !isDuplicateUsername(dup) {
		t.Fatal("duplicate-key write should map to a username conflict")
	}
	if isDuplicateUsername(errors.New("server selection timeout")) {
		t.Fatal("unrelated error misread as a username conflict")
	}
	if isDuplicateUsername(nil) {
		t.Fatal("nil error misread as a username conflict")
	}
}

func TestRegisterValidation(t *testing.T) {
	h := NewHandler(nil)

	cases := []struct {
		name string
		body string
	}{
		{"malformed body", `{"kind":`},
		{"unknown kind", `{"kind":"admin","username":"a","password":"longenough"}`},
		{"missing username", `{"kind":"customer","password":"longenough"}`},
		{"short password", `{"kind":"customer","username":"a","password":"short"}`},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(tc.body))
		h.Register(rec, r, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: got %d, want %d", tc.name, rec.Code, http.StatusBadRequest)
		}
	}
}
