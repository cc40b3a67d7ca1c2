package dto

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quotedeck/quote-service/internal/domain"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// recordedCtx returns a gin context backed by a response recorder with a
// plain GET request attached.
func recordedCtx(t *testing.T) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/quotes/daily", nil)

	return c, w
}

// jsonCtx returns a gin context carrying a JSON POST body.
func jsonCtx(t *testing.T, body string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/quotes/bulk", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	return c, w
}

// decodeError parses the recorded body as an error envelope.
func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	return resp
}

func TestErrorEnvelope(t *testing.T) {
	t.Run("code and message", func(t *testing.T) {
		resp := NewErrorResponse(ErrorCodeNotFound, "no quote recorded for 2026-08-01")

		assert.Equal(t, ErrorCodeNotFound, resp.Error.Code)
		assert.Equal(t, "no quote recorded for 2026-08-01", resp.Error.Message)
		assert.Nil(t, resp.Error.Details)
		assert.Empty(t, resp.TraceID)
	})

	t.Run("field details ride along", func(t *testing.T) {
		details := map[string]string{
			"count":  "must be at least 1",
			"source": "must not be empty",
		}
		resp := NewErrorResponseWithDetails(ErrorCodeValidation, "request validation failed", details)

		assert.Equal(t, ErrorCodeValidation, resp.Error.Code)
		assert.Equal(t, details, resp.Error.Details)
	})

	t.Run("trace ID chains on the same instance", func(t *testing.T) {
		resp := NewErrorResponse(ErrorCodeInternal, "an internal error occurred")
		chained := resp.WithTraceID("trace-bulk-17")

		assert.Same(t, resp, chained)
		assert.Equal(t, "trace-bulk-17", resp.TraceID)
	})
}

func TestHTTPStatusFromCode(t *testing.T) {
	for code, want := range map[string]int{
		ErrorCodeNotFound:     http.StatusNotFound,
		ErrorCodeValidation:   http.StatusBadRequest,
		ErrorCodeBadRequest:   http.StatusBadRequest,
		ErrorCodeForbidden:    http.StatusForbidden,
		ErrorCodeUnauthorized: http.StatusUnauthorized,
		ErrorCodeUnavailable:  http.StatusServiceUnavailable,
		ErrorCodeBadGateway:   http.StatusBadGateway,
		ErrorCodeTimeout:      http.StatusGatewayTimeout,
		ErrorCodeInternal:     http.StatusInternalServerError,
	} {
		assert.Equal(t, want, HTTPStatusFromCode(code), "code %s", code)
	}

	assert.Equal(t, http.StatusInternalServerError, HTTPStatusFromCode("NEVER_DEFINED"),
		"unrecognized codes map to 500")
}

func TestGetTraceID(t *testing.T) {
	t.Run("explicit context value wins over the header", func(t *testing.T) {
		c, _ := recordedCtx(t)
		c.Set("trace_id", "trace-ctx-4")
		c.Request.Header.Set("X-Request-ID", "req-hdr-9")

		assert.Equal(t, "trace-ctx-4", GetTraceID(c))
	})

	t.Run("falls back to the request ID header", func(t *testing.T) {
		c, _ := recordedCtx(t)
		c.Request.Header.Set("X-Request-ID", "req-hdr-9")

		assert.Equal(t, "req-hdr-9", GetTraceID(c))
	})

	t.Run("empty when nothing carries an ID", func(t *testing.T) {
		c, _ := recordedCtx(t)
		assert.Empty(t, GetTraceID(c))
	})

	t.Run("non-string context value yields empty", func(t *testing.T) {
		c, _ := recordedCtx(t)
		c.Set("trace_id", 4711)

		assert.Empty(t, GetTraceID(c))
	})
}

func TestMapDomainError(t *testing.T) {
	t.Run("nil passes through untouched", func(t *testing.T) {
		status, resp := MapDomainError(nil)
		assert.Equal(t, http.StatusOK, status)
		assert.Nil(t, resp)
	})

	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"missing quote", domain.NewNotFoundError("quote", "zq-901"), http.StatusNotFound, ErrorCodeNotFound},
		{"bad field", domain.NewValidationError("count", "must be at least 1"), http.StatusBadRequest, ErrorCodeValidation},
		{"guarded operation", domain.NewForbiddenError("update weights", "admin role required"), http.StatusForbidden, ErrorCodeForbidden},
		{"single source down", domain.NewProviderError("favqs", "fetching quotes", errors.New("connection refused")), http.StatusServiceUnavailable, ErrorCodeUnavailable},
		{"every source down", domain.NewAllProvidersFailedError([]string{"quotable", "zenquotes", "favqs"}), http.StatusServiceUnavailable, ErrorCodeUnavailable},
		{"unusable upstream payload", domain.NewParseError("zenquotes", "batch contained no valid quotes", nil), http.StatusBadGateway, ErrorCodeBadGateway},
		{"anything else", errors.New("slice index out of range"), http.StatusInternalServerError, ErrorCodeInternal},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, resp := MapDomainError(tc.err)

			assert.Equal(t, tc.status, status)
			require.NotNil(t, resp)
			assert.Equal(t, tc.code, resp.Error.Code)
		})
	}

	t.Run("validation errors surface their field", func(t *testing.T) {
		_, resp := MapDomainError(domain.NewValidationError("date", "must be formatted YYYY-MM-DD"))

		require.NotNil(t, resp)
		assert.Equal(t, map[string]string{"date": "must be formatted YYYY-MM-DD"}, resp.Error.Details)
	})

	t.Run("internal detail never reaches the client", func(t *testing.T) {
		_, resp := MapDomainError(errors.New("pq: connection refused on 10.0.0.3"))

		require.NotNil(t, resp)
		assert.Equal(t, "an internal error occurred", resp.Error.Message)
		assert.NotContains(t, resp.Error.Message, "10.0.0.3")
	})
}

func TestHandleError(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		status   int
		code     string
		mentions string
	}{
		{"quote not found", domain.NewNotFoundError("quote", "ql-77"), http.StatusNotFound, ErrorCodeNotFound, "quote"},
		{"invalid search term", domain.NewValidationError("q", "must not be empty"), http.StatusBadRequest, ErrorCodeValidation, "q"},
		{"weights guarded", domain.NewForbiddenError("update weights", "insufficient permissions"), http.StatusForbidden, ErrorCodeForbidden, "update weights"},
		{"source outage", domain.NewProviderError("quotable", "fetching quotes", errors.New("dial tcp: timeout")), http.StatusServiceUnavailable, ErrorCodeUnavailable, "temporarily unavailable"},
		{"unexpected failure", errors.New("nil selection"), http.StatusInternalServerError, ErrorCodeInternal, "internal error occurred"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, w := recordedCtx(t)
			c.Set("trace_id", "trace-"+tc.code)

			HandleError(c, tc.err)

			assert.Equal(t, tc.status, w.Code)

			resp := decodeError(t, w)
			assert.Equal(t, tc.code, resp.Error.Code)
			assert.Contains(t, resp.Error.Message, tc.mentions)
			assert.Equal(t, "trace-"+tc.code, resp.TraceID)
		})
	}

	t.Run("nil error writes nothing", func(t *testing.T) {
		c, w := recordedCtx(t)

		HandleError(c, nil)

		assert.Zero(t, w.Body.Len())
	})
}

func TestAbortHelpers(t *testing.T) {
	t.Run("domain error aborts with its mapped status", func(t *testing.T) {
		c, w := recordedCtx(t)

		AbortWithError(c, domain.NewValidationError("date", "must be formatted YYYY-MM-DD"))

		assert.True(t, c.IsAborted())
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, ErrorCodeValidation, decodeError(t, w).Error.Code)
	})

	t.Run("explicit code aborts with its status", func(t *testing.T) {
		for code, status := range map[string]int{
			ErrorCodeUnauthorized: http.StatusUnauthorized,
			ErrorCodeForbidden:    http.StatusForbidden,
			ErrorCodeBadRequest:   http.StatusBadRequest,
		} {
			c, w := recordedCtx(t)

			AbortWithErrorCode(c, code, "guard rejected the request")

			assert.True(t, c.IsAborted(), "code %s", code)
			assert.Equal(t, status, w.Code, "code %s", code)

			resp := decodeError(t, w)
			assert.Equal(t, code, resp.Error.Code)
			assert.Equal(t, "guard rejected the request", resp.Error.Message)
		}
	})
}

func TestRespondWithValidationErrors(t *testing.T) {
	c, w := recordedCtx(t)

	RespondWithValidationErrors(c, map[string]string{
		"count": "must be at least 1",
		"type":  "must be one of: view like save",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)

	resp := decodeError(t, w)
	assert.Equal(t, ErrorCodeValidation, resp.Error.Code)
	assert.Len(t, resp.Error.Details, 2)
}

func TestValidatorIsSingleton(t *testing.T) {
	require.NotNil(t, Validator())
	assert.Same(t, Validator(), Validator())
}

func TestValidate(t *testing.T) {
	type bulkFetch struct {
		Source string `validate:"required"`
		Day    string `validate:"daykey"`
		Count  int    `validate:"gte=1,lte=50"`
	}

	valid := bulkFetch{Source: "zenquotes", Day: "2026-08-01", Count: 25}

	cases := []struct {
		name   string
		mutate func(*bulkFetch)
		ok     bool
	}{
		{"well formed", func(*bulkFetch) {}, true},
		{"source missing", func(b *bulkFetch) { b.Source = "" }, false},
		{"day malformed", func(b *bulkFetch) { b.Day = "01.08.2026" }, false},
		{"count past the cap", func(b *bulkFetch) { b.Count = 500 }, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := valid
			tc.mutate(&input)

			err := Validate(&input)
			if tc.ok {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, ErrValidation)
			}
		})
	}
}

func TestBindAndValidate(t *testing.T) {
	type bulkBody struct {
		Count   int      `json:"count" validate:"required,gte=1"`
		Sources []string `json:"sources" validate:"omitempty,dive,notempty"`
	}

	t.Run("well formed body binds", func(t *testing.T) {
		c, _ := jsonCtx(t, `{"count":5,"sources":["quotable"]}`)

		var body bulkBody
		require.NoError(t, BindAndValidate(c, &body))
		assert.Equal(t, 5, body.Count)
		assert.Equal(t, []string{"quotable"}, body.Sources)
	})

	t.Run("malformed JSON is a binding error", func(t *testing.T) {
		c, _ := jsonCtx(t, `{count:`)

		var body bulkBody
		require.ErrorIs(t, BindAndValidate(c, &body), ErrBinding)
	})

	t.Run("zero count is a validation error", func(t *testing.T) {
		c, _ := jsonCtx(t, `{"count":0}`)

		var body bulkBody
		require.ErrorIs(t, BindAndValidate(c, &body), ErrValidation)
	})

	t.Run("blank source entry is a validation error", func(t *testing.T) {
		c, _ := jsonCtx(t, `{"count":5,"sources":["  "]}`)

		var body bulkBody
		require.ErrorIs(t, BindAndValidate(c, &body), ErrValidation)
	})
}

func TestBindQueryAndValidate(t *testing.T) {
	type searchParams struct {
		Query  string `form:"q" validate:"omitempty,notempty"`
		Source string `form:"source"`
	}

	bind := func(t *testing.T, rawQuery string) error {
		t.Helper()

		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/quotes/search"+rawQuery, nil)

		var params searchParams
		return BindQueryAndValidate(c, &params)
	}

	require.NoError(t, bind(t, "?q=wisdom&source=quotable"))
	require.NoError(t, bind(t, ""), "absent optional params are fine")
	require.ErrorIs(t, bind(t, "?q=%20%20"), ErrValidation, "whitespace-only search term")
}

func TestValidationErrors(t *testing.T) {
	type submitForm struct {
		Source string `json:"source" validate:"required"`
		Date   string `json:"date" validate:"daykey"`
		Count  int    `json:"count" validate:"gte=0,lte=50"`
	}

	t.Run("one message per failing field", func(t *testing.T) {
		err := Validate(&submitForm{Source: "", Date: "not-a-date", Count: 150})
		require.Error(t, err)

		got := ValidationErrors(err)
		require.Len(t, got, 3)
		for _, field := range []string{"source", "date", "count"} {
			assert.NotEmpty(t, got[field], "field %s", field)
		}
	})

	t.Run("passing fields stay out of the map", func(t *testing.T) {
		err := Validate(&submitForm{Source: "", Date: "2026-08-23", Count: 10})
		require.Error(t, err)

		got := ValidationErrors(err)
		require.Len(t, got, 1)
		assert.Contains(t, got, "source")
	})

	t.Run("foreign errors yield an empty map", func(t *testing.T) {
		assert.Empty(t, ValidationErrors(errors.New("disk full")))
	})
}

func TestIsValidationError(t *testing.T) {
	type form struct {
		Name string `validate:"required"`
	}

	assert.True(t, IsValidationError(Validate(&form{})))
	assert.False(t, IsValidationError(errors.New("disk full")))
	assert.False(t, IsValidationError(nil))
}

// TestValidationMessage drives every message template through a struct
// that fails all of its tags at once. The struct carries no json tags,
// so fields surface under their Go names.
func TestValidationMessage(t *testing.T) {
	type curationForm struct {
		Title  string `validate:"required"`
		Day    string `validate:"daykey"`
		Limit  int    `validate:"min=1,max=10"`
		Action string `validate:"oneof=view like save"`
		Body   string `validate:"min=5,max=100"`
		Weight int    `validate:"gte=0,lte=100"`
		Rank   int    `validate:"gt=0,lt=100"`
		Link   string `validate:"url"`
		Author string `validate:"notempty"`
	}

	err := Validator().Struct(&curationForm{
		Title:  "",
		Day:    "not-a-date",
		Limit:  20,
		Action: "burn",
		Body:   "abc",
		Weight: 150,
		Rank:   150,
		Link:   "not-a-url",
		Author: "  ",
	})
	require.Error(t, err)

	var fieldErrs validator.ValidationErrors
	require.ErrorAs(t, err, &fieldErrs)

	want := map[string]string{
		"Title":  "this field is required",
		"Day":    "must be a date formatted YYYY-MM-DD",
		"Limit":  "must be at most 10",
		"Action": "must be one of: view like save",
		"Body":   "must be at least 5 characters",
		"Weight": "must be less than or equal to 100",
		"Rank":   "must be less than 100",
		"Link":   "must be a valid URL",
		"Author": "must not be empty",
	}

	got := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		got[fe.Field()] = validationMessage(fe)
	}

	assert.Equal(t, want, got)
}

func TestMinMaxMessage(t *testing.T) {
	cases := []struct {
		tag   string
		param string
		kind  reflect.Kind
		want  string
	}{
		{"min", "5", reflect.String, "must be at least 5 characters"},
		{"max", "100", reflect.String, "must be at most 100 characters"},
		{"min", "1", reflect.Int, "must be at least 1"},
		{"max", "10", reflect.Int, "must be at most 10"},
		{"min", "0.5", reflect.Float64, "must be at least 0.5"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, minMaxMessage(tc.tag, tc.param, tc.kind), "%s=%s %v", tc.tag, tc.param, tc.kind)
	}
}

func TestDayKeyTag(t *testing.T) {
	type form struct {
		Day string `validate:"daykey"`
	}

	cases := []struct {
		day string
		ok  bool
	}{
		{"2026-08-23", true},
		{"", true},
		{"23-08-2026", false},
		{"today", false},
		{"2026-02-30", false},
	}

	for _, tc := range cases {
		err := Validator().Struct(&form{Day: tc.day})
		if tc.ok {
			assert.NoError(t, err, "day %q", tc.day)
		} else {
			assert.Error(t, err, "day %q", tc.day)
		}
	}
}

func TestNotEmptyTag(t *testing.T) {
	type form struct {
		Name string `validate:"notempty"`
	}

	cases := []struct {
		value string
		ok    bool
	}{
		{"Marcus Aurelius", true},
		{"  padded  ", true},
		{"", false},
		{"   ", false},
		{"\t \n", false},
	}

	for _, tc := range cases {
		err := Validator().Struct(&form{Name: tc.value})
		if tc.ok {
			assert.NoError(t, err, "value %q", tc.value)
		} else {
			assert.Error(t, err, "value %q", tc.value)
		}
	}
}

// providerToggle exercises the Validatable hook.
type providerToggle struct {
	Name string `validate:"required"`
}

func (p *providerToggle) Validate() error {
	if p.Name == "daily" {
		return errors.New(`"daily" is reserved and cannot name a provider`)
	}

	return nil
}

func TestValidateAll(t *testing.T) {
	var _ Validatable = (*providerToggle)(nil)

	t.Run("both layers pass", func(t *testing.T) {
		require.NoError(t, ValidateAll(&providerToggle{Name: "quotable"}))
	})

	t.Run("tag layer fails first", func(t *testing.T) {
		require.ErrorIs(t, ValidateAll(&providerToggle{}), ErrValidation)
	})

	t.Run("custom layer fails after tags pass", func(t *testing.T) {
		err := ValidateAll(&providerToggle{Name: "daily"})
		require.ErrorIs(t, err, ErrValidation)
		assert.Contains(t, err.Error(), "reserved")
	})

	t.Run("plain structs skip the custom layer", func(t *testing.T) {
		type plain struct {
			Name string `validate:"required"`
		}

		require.NoError(t, ValidateAll(&plain{Name: "zenquotes"}))
	})
}

func TestValidationMessageFallback(t *testing.T) {
	type form struct {
		Field string `validate:"curated"`
	}

	require.NoError(t, Validator().RegisterValidation("curated", func(validator.FieldLevel) bool {
		return false
	}))

	err := Validator().Struct(&form{Field: "anything"})
	require.Error(t, err)

	var fieldErrs validator.ValidationErrors
	require.ErrorAs(t, err, &fieldErrs)
	require.Len(t, fieldErrs, 1)

	assert.Equal(t, "failed validation: curated", validationMessage(fieldErrs[0]))
}
