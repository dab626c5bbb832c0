package respond

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSON(t *testing.T) {
	tests := []struct {
		name         string
		code         int
		data         any
		expectedBody string
	}{
		{
			name:         "map",
			code:         http.StatusOK,
			data:         map[string]string{"message": "success"},
			expectedBody: `{"message":"success"}`,
		},
		{
			name:         "struct",
			code:         http.StatusCreated,
			data:         struct{ ID int }{ID: 123},
			expectedBody: `{"ID":123}`,
		},
		{
			name:         "nil body",
			code:         http.StatusNoContent,
			data:         nil,
			expectedBody: "",
		},
		{
			name:         "devanagari is not escaped",
			code:         http.StatusOK,
			data:         map[string]string{"summary": "नेपाल <खबर>"},
			expectedBody: `{"summary":"नेपाल <खबर>"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			JSON(w, tt.code, tt.data)

			assert.Equal(t, tt.code, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			assert.Equal(t, tt.expectedBody, strings.TrimSpace(w.Body.String()))
		})
	}
}

func TestJSON_EncodingError(t *testing.T) {
	w := httptest.NewRecorder()
	JSON(w, http.StatusOK, make(chan int))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
}

func TestError(t *testing.T) {
	w := httptest.NewRecorder()
	Error(w, http.StatusMethodNotAllowed, errors.New("This endpoint only supports POST requests."))

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.JSONEq(t, `{"error":"This endpoint only supports POST requests."}`, w.Body.String())
}

func TestSafeError(t *testing.T) {
	tests := []struct {
		name        string
		code        int
		err         error
		expectedMsg string
	}{
		{
			name:        "required field",
			code:        http.StatusBadRequest,
			err:         errors.New("Missing required parameter: selectedLength"),
			expectedMsg: "Missing required parameter: selectedLength",
		},
		{
			name:        "invalid selection",
			code:        http.StatusBadRequest,
			err:         errors.New(`invalid selection for 'selectedModel': "model9"`),
			expectedMsg: `invalid selection for 'selectedModel': "model9"`,
		},
		{
			name:        "unrecognized 4xx message",
			code:        http.StatusUnauthorized,
			err:         errors.New("signature mismatch"),
			expectedMsg: "unauthorized",
		},
		{
			name:        "5xx is always generic",
			code:        http.StatusInternalServerError,
			err:         errors.New("required header missing upstream"),
			expectedMsg: "internal server error",
		},
		{
			name:        "5xx with secret",
			code:        http.StatusBadGateway,
			err:         errors.New("GET https://api.example/extract?apikey=abc123 failed"),
			expectedMsg: "internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			SafeError(w, tt.code, tt.err)

			assert.Equal(t, tt.code, w.Code)
			var body map[string]string
			require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
			assert.Equal(t, tt.expectedMsg, body["error"])
		})
	}
}

func TestSafeError_Nil(t *testing.T) {
	w := httptest.NewRecorder()
	SafeError(w, http.StatusBadRequest, nil)

	assert.Empty(t, w.Body.String())
}

func TestFail(t *testing.T) {
	t.Run("app error uses its own code and message", func(t *testing.T) {
		w := httptest.NewRecorder()
		cause := fmt.Errorf("backend ModelA failed: %w", errors.New("dial tcp: connection refused"))
		Fail(w, http.StatusInternalServerError, NewAppError(http.StatusServiceUnavailable, "summarization backend unavailable", cause))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.JSONEq(t, `{"error":"summarization backend unavailable"}`, w.Body.String())
	})

	t.Run("wrapped app error", func(t *testing.T) {
		w := httptest.NewRecorder()
		err := fmt.Errorf("handler: %w", NewAppError(http.StatusBadRequest, "bad input", nil))
		Fail(w, http.StatusInternalServerError, err)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"bad input"}`, w.Body.String())
	})

	t.Run("plain error falls back to SafeError", func(t *testing.T) {
		w := httptest.NewRecorder()
		Fail(w, http.StatusInternalServerError, errors.New("boom"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.JSONEq(t, `{"error":"internal server error"}`, w.Body.String())
	})
}

func TestAppError(t *testing.T) {
	cause := errors.New("root cause")
	err := NewAppError(http.StatusBadGateway, "could not fetch article", cause)

	assert.Equal(t, "root cause", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "only message", NewAppError(http.StatusBadRequest, "only message", nil).Error())
}
