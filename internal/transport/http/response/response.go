package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Resp 统一信封：HTTP 状态恒为 200，业务结果看 Code
type Resp struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data any    `json:"data"`
}

// Message 返回 code 的默认文案；未登记的 code 当作服务端错误
func Message(code int) string {
	if m, ok := CodeMsgMap[code]; ok {
		return m
	}
	return CodeMsgMap[CodeServerError]
}

// OK data 为 nil 时输出 {}，前端不用判 null
func OK(data any) Resp {
	if data == nil {
		data = struct{}{}
	}
	return Resp{Code: CodeOK, Msg: Message(CodeOK), Data: data}
}

// Error msg 为空用默认文案
func Error(code int, msg string) Resp {
	if msg == "" {
		msg = Message(code)
	}
	return Resp{Code: code, Msg: msg, Data: struct{}{}}
}

// KeyCode 写出的业务码记在 gin ctx，metrics 按它打标签
const KeyCode = "resp.code"

// JSON 写信封（HTTP 200）
func JSON(c *gin.Context, r Resp) {
	c.Set(KeyCode, r.Code)
	c.JSON(http.StatusOK, r)
}

// Abort 中间件拒绝请求时用：写错误信封并终止后续 handler
func Abort(c *gin.Context, code int, msg string) {
	c.Set(KeyCode, code)
	c.AbortWithStatusJSON(http.StatusOK, Error(code, msg))
}
