package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	inErrors "github.com/Alturino/storefront/internal/errors"
)

// PathInt64 reads a positive integer path variable registered on the mux route.
func PathInt64(r *http.Request, name string) (int64, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, inErrors.Validation("%s=%s must be a positive integer", name, raw)
	}
	return id, nil
}

// QueryInt64 returns nil when the query parameter is absent.
func QueryInt64(r *http.Request, name string) (*int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, inErrors.Validation("%s=%s must be a positive integer", name, raw)
	}
	return &id, nil
}

func DecodeJson(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return inErrors.Wrap(inErrors.KindValidation, err, "invalid request body")
	}
	return nil
}
