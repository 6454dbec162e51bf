package security

import (
	"errors"
	"net/http"

	"github.com/noah-isme/toko-discount/internal/common"
)

// BodyLimit enforces a maximum request payload size.
type BodyLimit struct {
	Max int64
}

// Middleware rejects declared oversized payloads with HTTP 413 and caps the
// rest with http.MaxBytesReader; decoders see a *http.MaxBytesError once the
// cap is crossed.
func (b BodyLimit) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if b.Max <= 0 || r.Body == nil || r.Body == http.NoBody {
			next.ServeHTTP(w, r)
			return
		}
		if r.ContentLength > b.Max {
			writeTooLarge(w)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, b.Max)
		next.ServeHTTP(w, r)
	})
}

// IsTooLarge reports whether err came from a body exceeding the limit.
func IsTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

// TooLargeError is the AppError rendered for oversized bodies.
func TooLargeError(err error) *common.AppError {
	return common.NewAppError(common.CodeTooLarge, "request entity too large", http.StatusRequestEntityTooLarge, err)
}

func writeTooLarge(w http.ResponseWriter) {
	common.WriteError(w, TooLargeError(nil))
}
