package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	"github.com/erp/syncengine/internal/interfaces/http/dto"
)

type retryBody struct {
	ID     string `json:"id" binding:"required"`
	Method string `json:"method" binding:"required,oneof=create update delete"`
}

func TestSetupValidator(t *testing.T) {
	SetupValidator()
	_, ok := binding.Validator.Engine().(*validator.Validate)
	assert.True(t, ok)
}

func TestHandleValidationError(t *testing.T) {
	SetupValidator()

	router := gin.New()
	router.POST("/api/v1/sync/retry", func(c *gin.Context) {
		var req retryBody
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})

	tests := []struct {
		name     string
		body     string
		status   int
		code     string
		contains []string
	}{
		{"valid", `{"id":"INV-1","method":"create"}`, http.StatusNoContent, "", nil},
		{"missing fields", `{}`, http.StatusBadRequest, dto.ErrCodeValidation, []string{"id: This field is required", "method: This field is required"}},
		{"bad method", `{"id":"INV-1","method":"upsert"}`, http.StatusBadRequest, dto.ErrCodeValidation, []string{"method: Must be one of: create update delete"}},
		{"malformed json", `{"id":`, http.StatusBadRequest, dto.ErrCodeBadRequest, []string{"Malformed request"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/retry", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.code == "" {
				return
			}
			resp := decodeError(t, w)
			assert.Equal(t, tt.code, resp.Code)
			for _, s := range tt.contains {
				assert.Contains(t, resp.ErrorMessage, s)
			}
		})
	}
}

func TestFieldMessage(t *testing.T) {
	type sample struct {
		Page  int    `json:"page" validate:"min=1"`
		Size  int    `json:"size" validate:"max=100"`
		Name  string `json:"name" validate:"min=3"`
		ID    string `json:"id" validate:"uuid"`
		Count int    `json:"count" validate:"gte=0"`
		Ref   string `json:"ref" validate:"alphanum"`
	}
	v := validator.New()
	err := v.Struct(sample{Page: 0, Size: 500, Name: "ab", ID: "nope", Count: -1, Ref: "a-b"})

	var verrs validator.ValidationErrors
	assert.ErrorAs(t, err, &verrs)
	messages := map[string]string{}
	for _, e := range verrs {
		messages[e.Field()] = fieldMessage(e)
	}
	assert.Equal(t, map[string]string{
		"Page":  "Must be at least 1",
		"Size":  "Must be at most 100",
		"Name":  "Must be at least 3 characters",
		"ID":    "Invalid UUID format",
		"Count": "Must be at least 0",
		"Ref":   "Failed the alphanum check",
	}, messages)
}
