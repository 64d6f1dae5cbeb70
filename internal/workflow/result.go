package workflow

import (
	"image"

	"magic-mirror/pkg/genapi"
)

// DecodeResult turns downloaded result bytes into an in-memory image.
func DecodeResult(data []byte) (image.Image, string, error) {
	return genapi.DecodeImage(data)
}
