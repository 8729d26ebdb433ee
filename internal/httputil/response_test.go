package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	connDomain "github.com/vaultcore/vaultcore/internal/connection/domain"
	apperrors "github.com/vaultcore/vaultcore/internal/errors"
)

func runHandler(t *testing.T, handle func(c *gin.Context)) (*httptest.ResponseRecorder, ErrorResponse) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	handle(c)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	return recorder, body
}

func TestHandleErrorGin(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{
			name:       "not found",
			err:        apperrors.Wrap(apperrors.ErrNotFound, "connection \"db-1\""),
			wantStatus: http.StatusNotFound,
			wantError:  "not_found",
		},
		{
			name:       "conflict",
			err:        apperrors.Wrap(apperrors.ErrConflict, "duplicate id"),
			wantStatus: http.StatusConflict,
			wantError:  "conflict",
		},
		{
			name:       "invalid input",
			err:        apperrors.Wrap(apperrors.ErrInvalidInput, "port out of range"),
			wantStatus: http.StatusUnprocessableEntity,
			wantError:  "invalid_input",
		},
		{
			name:       "unauthorized",
			err:        apperrors.Wrap(apperrors.ErrUnauthorized, "bad password"),
			wantStatus: http.StatusUnauthorized,
			wantError:  "unauthorized",
		},
		{
			name:       "exhausted",
			err:        apperrors.Wrap(apperrors.ErrExhausted, "pool full"),
			wantStatus: http.StatusTooManyRequests,
			wantError:  "exhausted",
		},
		{
			name:       "unavailable",
			err:        apperrors.Wrap(apperrors.ErrUnavailable, "refused"),
			wantStatus: http.StatusBadGateway,
			wantError:  "unavailable",
		},
		{
			name:       "unknown",
			err:        apperrors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantError:  "internal_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder, body := runHandler(t, func(c *gin.Context) {
				HandleErrorGin(c, tt.err, nil)
			})
			assert.Equal(t, tt.wantStatus, recorder.Code)
			assert.Equal(t, tt.wantError, body.Error)
		})
	}

	t.Run("connection error carries its kind", func(t *testing.T) {
		err := connDomain.NewConnectionError(connDomain.KindPoolExhausted, "db-1", "no slots", nil, nil)
		recorder, body := runHandler(t, func(c *gin.Context) {
			HandleErrorGin(c, err, nil)
		})
		assert.Equal(t, http.StatusTooManyRequests, recorder.Code)
		assert.Equal(t, "pool_exhausted", body.Kind)
	})

	t.Run("internal error hides details", func(t *testing.T) {
		_, body := runHandler(t, func(c *gin.Context) {
			HandleErrorGin(c, apperrors.New("secret detail"), nil)
		})
		assert.NotContains(t, body.Message, "secret detail")
	})
}

func TestHandleBadRequestGin(t *testing.T) {
	recorder, body := runHandler(t, func(c *gin.Context) {
		HandleBadRequestGin(c, apperrors.New("malformed json"), nil)
	})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, "bad_request", body.Error)
}

func TestHandleValidationErrorGin(t *testing.T) {
	recorder, body := runHandler(t, func(c *gin.Context) {
		HandleValidationErrorGin(c, apperrors.New("id: must not be blank"), nil)
	})
	assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
	assert.Equal(t, "validation_error", body.Error)
}
