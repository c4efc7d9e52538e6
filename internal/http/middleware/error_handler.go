package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/jobconnect-backend/internal/logger"
	"github.com/ignatzorin/jobconnect-backend/internal/pkg/apperror"
)

// ErrorHandler отвечает на ошибки, которые хэндлеры положили в c.Errors.
// AppError отдаёт свой статус и текст, всё остальное маскируется как 500.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		status := apperror.StatusOf(err)
		message := "внутренняя ошибка сервера"
		var appErr *apperror.AppError
		if errors.As(err, &appErr) && status < http.StatusInternalServerError {
			message = appErr.Message
		}

		entry := logger.Log.WithFields(logrus.Fields{
			"error":  err.Error(),
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
			"status": status,
		})
		if status >= http.StatusInternalServerError {
			entry.Error("http: ошибка обработки запроса")
		} else {
			entry.Debug("http: запрос отклонён")
		}

		resp := gin.H{"error": message}
		if appErr != nil {
			resp["code"] = appErr.Code
		}
		c.JSON(status, resp)
	}
}
