package apperr

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/book-catalog/internal/logging"
)

// Respond は err を {"error": message} 形式のレスポンスに変換して中断します。
// 内部エラーは原因をログに出力し、汎用メッセージのみを返します。
func Respond(c *gin.Context, log logging.Logger, err error) {
	var appErr *Error
	if !errors.As(err, &appErr) {
		appErr = Internal(err)
	}

	if appErr.Kind == KindInternal {
		if log != nil {
			log.Error(c.Request.Context(), "request failed",
				"method", c.Request.Method,
				"path", c.FullPath(),
				"error", err.Error(),
			)
		}
		c.AbortWithStatusJSON(KindInternal.Status(), gin.H{"error": InternalMessage})
		return
	}

	c.AbortWithStatusJSON(appErr.Kind.Status(), gin.H{"error": appErr.Message})
}
