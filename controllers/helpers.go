package controllers

import (
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/yashrajoria/flash-sale-service/apperrors"
	"github.com/yashrajoria/flash-sale-service/logger"
	"go.uber.org/zap"
)

var validate = validator.New()

// bindJSON decodes and validates the request body into req. On failure it
// writes a 400 and returns false.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		apperrors.Respond(c, apperrors.BadRequest("Invalid JSON body"))
		return false
	}
	if err := validate.Struct(req); err != nil {
		apperrors.Respond(c, apperrors.BadRequest(validationMessage(err)))
		return false
	}
	return true
}

func validationMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return "Validation error"
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be a valid email"
	case "min", "gte":
		return fe.Field() + " must be at least " + fe.Param()
	case "gt":
		return fe.Field() + " must be greater than " + fe.Param()
	default:
		return fe.Field() + " is invalid"
	}
}

func respondSuccess(c *gin.Context, status int, message string, data interface{}) {
	body := gin.H{"success": true, "data": data}
	if message != "" {
		body["message"] = message
	}
	c.JSON(status, body)
}

// respondError logs server-side failures and writes the error envelope.
func respondError(c *gin.Context, log *zap.Logger, msg string, err error) {
	appErr := apperrors.FromError(err)
	if appErr.Code >= 500 {
		logger.FromContext(c, log).Error(msg, zap.Error(err))
	} else {
		logger.FromContext(c, log).Warn(msg, zap.Int("status", appErr.Code), zap.Error(err))
	}
	apperrors.Respond(c, appErr)
}
