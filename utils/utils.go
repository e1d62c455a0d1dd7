package utils

import (
	"net/http"
	"strconv"

	"tiffin/globals"
	"tiffin/middleware"

	"github.com/google/uuid"
)

func GetUUID() string {
	return uuid.New().String()
}

// --- Request context helpers ---

func GetUserIDFromRequest(r *http.Request) string {
	requestingUserID, ok := r.Context().Value(globals.UserIDKey).(string)
	if !ok || requestingUserID == "" {
		return ""
	}
	return requestingUserID
}

func GetRoleFromRequest(r *http.Request) string {
	role, ok := r.Context().Value(globals.RoleKey).(string)
	if !ok {
		return ""
	}
	return role
}

func GetUsernameFromRequest(r *http.Request) string {
	tokenString := r.Header.Get("Authorization")
	claims, err := middleware.ValidateJWT(tokenString)
	if err != nil {
		return ""
	}
	return claims.Username
}

// --- Pagination ---

// ParseOffsetLimit reads offset/limit query parameters with sane caps for
// "most recent first" listings.
func ParseOffsetLimit(r *http.Request) (int64, int64) {
	q := r.URL.Query()

	offset, _ := strconv.ParseInt(q.Get("offset"), 10, 64)
	if offset < 0 {
		offset = 0
	}

	limit, _ := strconv.ParseInt(q.Get("limit"), 10, 64)
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	return offset, limit
}
