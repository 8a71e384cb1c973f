package handlers

import (
	"fmt"
	"net/http"

	"github.com/DanielPopoola/paytoday-gateway/internal/application"
	"github.com/oapi-codegen/runtime"
)

func orderIDParam(r *http.Request) (int64, error) {
	var id int64
	err := runtime.BindStyledParameterWithOptions("simple", "order_id", r.PathValue("order_id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Required: true})
	if err != nil {
		return 0, application.NewInvalidInputError(err)
	}
	if id <= 0 {
		return 0, application.NewInvalidInputError(fmt.Errorf("order_id must be positive"))
	}
	return id, nil
}

func queryParam(r *http.Request, name string, required bool) (string, error) {
	var value string
	if err := runtime.BindQueryParameter("form", true, required, name, r.URL.Query(), &value); err != nil {
		return "", err
	}
	return value, nil
}
