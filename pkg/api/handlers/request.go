package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/urmzd/lanscout/pkg/api/types"
	"github.com/urmzd/lanscout/pkg/schema"
)

// bindValidated reads the request body, validates it against the named
// request schema and decodes it into dst. An empty body is treated as {}.
// On failure the error response has been written and false is returned.
func bindValidated(c *gin.Context, v *schema.Validator, name string, dst any) bool {
	body, err := c.GetRawData()
	if err != nil {
		abortBadRequest(c, "invalid_body", err)
		return false
	}
	if len(body) == 0 {
		body = []byte("{}")
	}
	if err := v.ValidateRequest(name, body); err != nil {
		abortBadRequest(c, "validation_failed", err)
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		abortBadRequest(c, "invalid_body", err)
		return false
	}
	return true
}

func abortBadRequest(c *gin.Context, code string, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, types.ErrorResponse{
		Error:   code,
		Message: err.Error(),
	})
}
