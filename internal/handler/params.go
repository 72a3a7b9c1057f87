package handler

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"
)

const codeBadParameter = "invalid_parameter"

// pathUUID binds the UUID path parameter name. On failure it writes a 400 and
// returns false.
func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	var id openapi_types.UUID
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadParameter, fmt.Sprintf("invalid format for parameter %s: %s", name, err))
		return uuid.Nil, false
	}
	return id, true
}

// queryParam binds the optional form-style query parameter name into dest,
// which must be a pointer to a pointer. On failure it writes a 400 and
// returns false.
func queryParam(w http.ResponseWriter, r *http.Request, name string, dest any) bool {
	if err := runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), dest); err != nil {
		writeError(w, http.StatusBadRequest, codeBadParameter, fmt.Sprintf("invalid format for parameter %s: %s", name, err))
		return false
	}
	return true
}
