package validators

import (
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/glowcart/glowcart-backend/pkg/errors"
)

// IntRange bounds an integer query parameter. Default applies when the
// parameter is absent or blank.
type IntRange struct {
	Default int
	Min     int
	Max     int
}

func QueryInt(r *http.Request, key string, bounds IntRange) (int, error) {
	values, present := r.URL.Query()[key]
	if !present || strings.TrimSpace(values[0]) == "" {
		return bounds.Default, nil
	}
	if len(values) > 1 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter repeated").
			WithDetails(map[string]string{key: "must appear once"})
	}
	value, err := strconv.Atoi(strings.TrimSpace(values[0]))
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be an integer").
			WithDetails(map[string]string{key: "must be an integer"})
	}
	if value < bounds.Min || value > bounds.Max {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter out of range").
			WithDetails(map[string]any{key: value, "min": bounds.Min, "max": bounds.Max})
	}
	return value, nil
}
