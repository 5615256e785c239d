package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/ddevcap/fontprefs/api/middleware"
	"github.com/ddevcap/fontprefs/prefs"
)

// valueRules mirrors what the native form controls enforce: a number input
// for the size and a color input for the color.
var valueRules = map[string]string{
	prefs.KeyFontSize:  "required,numeric",
	prefs.KeyFontColor: "required,hexcolor",
}

// validateValue checks a single preference value with gin's validator.
func validateValue(key, value string) error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	return v.Var(value, valueRules[key])
}

// requestID returns the request ID assigned by the middleware, if any.
func requestID(c *gin.Context) string {
	return c.GetString(middleware.ContextKeyRequestID)
}
