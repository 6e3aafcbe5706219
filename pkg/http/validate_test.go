package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pageRequest struct {
	Limit int    `query:"limit" default:"10" validate:"gte=1,lte=50"`
	Sort  string `query:"sort" default:"desc" validate:"oneof=asc desc"`
}

func bind(t *testing.T, target string) any {
	t.Helper()
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
	var req pageRequest
	return ReadAndValidateRequest(c, &req)
}

func TestReadAndValidateRequestDefaults(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/trades", nil), httptest.NewRecorder())
	var req pageRequest
	require.Nil(t, ReadAndValidateRequest(c, &req))
	assert.Equal(t, pageRequest{Limit: 10, Sort: "desc"}, req)
}

func TestReadAndValidateRequestErrors(t *testing.T) {
	tests := map[string]struct {
		target string
		want   ValidationError
	}{
		"above max": {
			target: "/trades?limit=99",
			want: ValidationError{
				Code: "ERR_LTE", Field: "limit", Message: "limit must be at most 50",
				Params: map[string]any{"max": "50"},
			},
		},
		"not an option": {
			target: "/trades?sort=up",
			want: ValidationError{
				Code: "ERR_ONEOF", Field: "sort", Message: "sort must be one of: asc, desc",
				Params: map[string]any{"options": []string{"asc", "desc"}},
			},
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			errs := bind(t, tc.target)
			require.IsType(t, []ValidationError{}, errs)
			assert.Equal(t, []ValidationError{tc.want}, errs)
		})
	}
}

func TestReadAndValidateRequestBindFailure(t *testing.T) {
	errs := bind(t, "/trades?limit=abc")
	require.IsType(t, []ValidationError{}, errs)
	assert.Equal(t, "ERR_BIND", errs.([]ValidationError)[0].Code)
}

func TestFieldErrorsUsesYAMLNames(t *testing.T) {
	type cfg struct {
		Brokers []string `yaml:"brokers" validate:"required"`
	}
	err := FieldErrors(Validator().Struct(cfg{}))
	assert.ErrorContains(t, err, "brokers is required")
}
