package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telemetry-http-service/internal/error/code"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func run(t *testing.T, h gin.HandlerFunc) (int, map[string]interface{}) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/latest", nil)
	h(c)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestSuccessMergesFields(t *testing.T) {
	status, body := run(t, func(c *gin.Context) {
		Success(c, gin.H{"inserted_id": 7})
	})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, float64(7), body["inserted_id"])
}

func TestFailHidesCause(t *testing.T) {
	status, body := run(t, func(c *gin.Context) {
		Fail(c, code.Wrap(code.DBError, errors.New("pq: password authentication failed"), ""))
	})
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, false, body["ok"])

	e := body["error"].(map[string]interface{})
	assert.Equal(t, "DB_ERROR", e["code"])
	assert.Equal(t, "Database error", e["message"])
	assert.NotContains(t, e, "details")
}

func TestFailUnclassified(t *testing.T) {
	status, body := run(t, func(c *gin.Context) {
		Fail(c, errors.New("boom"))
	})
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "INTERNAL_ERROR", body["error"].(map[string]interface{})["code"])
}

func TestFailWithDetails(t *testing.T) {
	status, body := run(t, func(c *gin.Context) {
		Fail(c, code.WithDetails(code.InvalidPayload, "", gin.H{"fieldErrors": gin.H{"device_id": []string{"is required"}}}))
	})
	assert.Equal(t, http.StatusBadRequest, status)
	e := body["error"].(map[string]interface{})
	assert.Equal(t, "INVALID_PAYLOAD", e["code"])
	assert.Contains(t, e, "details")
}

func TestServerError(t *testing.T) {
	status, body := run(t, ServerError)
	assert.Equal(t, http.StatusInternalServerError, status)
	e := body["error"].(map[string]interface{})
	assert.Equal(t, "INTERNAL_ERROR", e["code"])
	assert.Equal(t, "Unknown error", e["message"])
}
