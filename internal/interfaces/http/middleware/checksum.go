package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/ngoclaw/upstreamgw/internal/domain/entity"
	"github.com/ngoclaw/upstreamgw/internal/infrastructure/checksum"
	apperrors "github.com/ngoclaw/upstreamgw/pkg/errors"
)

// ChecksumHeader is the client-facing header carrying the request
// fingerprint validated by Checksum.
const ChecksumHeader = "X-Cursor-Checksum"

// Checksum rejects any request whose checksum header is absent or
// malformed, before it reaches a handler or any upstream call. In the
// server's route chain it runs after Auth has resolved the token.
func Checksum() gin.HandlerFunc {
	return func(c *gin.Context) {
		v := c.GetHeader(ChecksumHeader)
		if v == "" || !checksum.Validate(v) {
			abort(c, apperrors.New(entity.ErrChecksumInvalid, "missing or malformed checksum header"))
			return
		}
		c.Next()
	}
}
