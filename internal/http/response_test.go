package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inErrors "github.com/Alturino/storefront/internal/errors"
)

func TestWriteErrorResponse(t *testing.T) {
	tests := []struct {
		name            string
		err             error
		expectedStatus  int
		expectedMessage string
	}{
		{
			name:            "given not found should write 404 with message",
			err:             fmt.Errorf("failed finding order with error=%w", inErrors.NotFound("order id=%d not found", 3)),
			expectedStatus:  http.StatusNotFound,
			expectedMessage: "order id=3 not found",
		},
		{
			name:            "given forbidden should write 403",
			err:             inErrors.Forbidden("order does not belong to user"),
			expectedStatus:  http.StatusForbidden,
			expectedMessage: "order does not belong to user",
		},
		{
			name:            "given unknown error should write opaque 500",
			err:             errors.New("dial tcp 10.0.0.1:5432: connection refused"),
			expectedStatus:  http.StatusInternalServerError,
			expectedMessage: "Internal Server Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			WriteErrorResponse(context.Background(), recorder, tt.err)

			assert.Equal(t, tt.expectedStatus, recorder.Code)
			assert.Equal(t, ValueHeaderApplicationJson, recorder.Header().Get(KeyHeaderContentType))

			body := map[string]interface{}{}
			require.NoError(t, json.NewDecoder(recorder.Body).Decode(&body))
			assert.Equal(t, "failed", body["status"])
			assert.Equal(t, tt.expectedMessage, body["message"])
			assert.EqualValues(t, tt.expectedStatus, body["statusCode"])
		})
	}
}
