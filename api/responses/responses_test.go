package responses

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/billingsync/pkg/errors"
	"github.com/angelmondragon/billingsync/pkg/logger"
	"github.com/angelmondragon/billingsync/pkg/types"
)

func decodeError(t *testing.T, w *httptest.ResponseRecorder) types.APIError {
	t.Helper()
	var body types.ErrorEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body.Error
}

func TestWriteSuccessStatus(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccessStatus(w, http.StatusCreated, map[string]string{"session_id": "cs_1"})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"data":{"session_id":"cs_1"}}`, w.Body.String())
}

func TestWriteErrorRendering(t *testing.T) {
	cases := map[string]struct {
		err         error
		wantStatus  int
		wantCode    pkgerrors.Code
		wantMessage string
		wantDetails bool
	}{
		"validation echoes message and details": {
			err:         pkgerrors.New(pkgerrors.CodeValidation, "bad input").WithDetails(map[string]string{"price_id": "is required"}),
			wantStatus:  http.StatusBadRequest,
			wantCode:    pkgerrors.CodeValidation,
			wantMessage: "bad input",
			wantDetails: true,
		},
		"untyped errors become internal": {
			err:         errors.New("boom"),
			wantStatus:  http.StatusInternalServerError,
			wantCode:    pkgerrors.CodeInternal,
			wantMessage: "internal server error",
		},
		"store errors hide their message": {
			err:         pkgerrors.New(pkgerrors.CodeStoreWrite, "insert customers: pq: deadlock"),
			wantStatus:  http.StatusInternalServerError,
			wantCode:    pkgerrors.CodeStoreWrite,
			wantMessage: "internal server error",
		},
		"wrapped typed errors keep their code": {
			err:         fmt.Errorf("lookup: %w", pkgerrors.New(pkgerrors.CodeNotFound, "no subscription")),
			wantStatus:  http.StatusNotFound,
			wantCode:    pkgerrors.CodeNotFound,
			wantMessage: "no subscription",
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(context.Background(), nil, w, tc.err)

			assert.Equal(t, tc.wantStatus, w.Code)
			got := decodeError(t, w)
			assert.Equal(t, string(tc.wantCode), got.Code)
			assert.Equal(t, tc.wantMessage, got.Message)
			assert.Equal(t, tc.wantDetails, got.Details != nil)
		})
	}
}

func TestWriteErrorStatusOverridesMappedStatus(t *testing.T) {
	w := httptest.NewRecorder()
	WriteErrorStatus(context.Background(), nil, w, http.StatusBadRequest, pkgerrors.New(pkgerrors.CodeCustomerNotFound, "no mapping"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(pkgerrors.CodeCustomerNotFound), decodeError(t, w).Code)
}

func TestWriteErrorEchoesRequestIDAndLogs(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Output: &buf, Format: logger.FormatJSON})
	w := httptest.NewRecorder()
	w.Header().Set("X-Request-Id", "req-42")

	WriteError(context.Background(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))

	assert.Equal(t, "req-42", decodeError(t, w).RequestID)
	assert.Contains(t, buf.String(), `"message":"request.rejected"`)
	assert.Contains(t, buf.String(), `"level":"warn"`)
}
