package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/unrolled/secure"

	resp "go-gin-gorm-rbac/internal/transport/http/response"
)

// SecureHeaders 安全响应头；production 下强制 HTTPS（认 X-Forwarded-Proto）
func SecureHeaders(production bool) gin.HandlerFunc {
	s := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
		SSLRedirect:        production,
		SSLProxyHeaders:    map[string]string{"X-Forwarded-Proto": "https"},
		STSSeconds:         31536000,
		IsDevelopment:      !production,
	})
	return func(c *gin.Context) {
		err := s.Process(c.Writer, c.Request)
		// SSL 重定向时 Process 已写好 3xx，同时返回 err
		if st := c.Writer.Status(); c.Writer.Written() || (st >= 300 && st < 400) {
			c.Writer.WriteHeaderNow()
			c.Abort()
			return
		}
		if err != nil {
			resp.Abort(c, resp.CodeBadRequest, "insecure request")
			return
		}
		c.Next()
	}
}
