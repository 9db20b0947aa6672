package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	weberrors "github.com/lk2023060901/xdooria-rates/pkg/web/errors"
)

// BindAndValidate 绑定请求参数并进行校验，失败时已写入响应
func BindAndValidate(c *gin.Context, obj any) bool {
	if err := c.ShouldBind(obj); err != nil {
		var errs validator.ValidationErrors
		if errors.As(err, &errs) {
			Error(c, http.StatusBadRequest, weberrors.CodeInvalidParams, errs.Error())
			return false
		}
		Error(c, http.StatusBadRequest, weberrors.CodeInvalidParams, "invalid request parameters: "+err.Error())
		return false
	}
	return true
}

// ParamInt64 解析路径参数为 int64，失败时已写入响应
func ParamInt64(c *gin.Context, key string) (int64, bool) {
	v, err := strconv.ParseInt(c.Param(key), 10, 64)
	if err != nil {
		Error(c, http.StatusBadRequest, weberrors.CodeInvalidParams, "invalid path parameter: "+key)
		return 0, false
	}
	return v, true
}
