package media

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
)

// previewMaxDim is the longest side of an encoded preview. The preview
// travels inline inside the push payload, so it has to stay tiny; the
// receiver scales it back up for a blurred placeholder.
const previewMaxDim = 12

// EncodePreview shrinks img to a thumbnail of at most previewMaxDim on
// its longest side, JPEG-encodes it and returns the base64 string that
// goes on the wire, along with the original dimensions.
func EncodePreview(img image.Image) (b64 string, width, height int, err error) {
	bounds := img.Bounds()
	width, height = bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return "", 0, 0, fmt.Errorf("encode preview: empty image")
	}

	tw, th := previewMaxDim, previewMaxDim
	if width > height {
		th = height * previewMaxDim / width
	} else {
		tw = width * previewMaxDim / height
	}
	if tw < 1 {
		tw = 1
	}
	if th < 1 {
		th = 1
	}

	thumb := scale(img, tw, th)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, nil); err != nil {
		return "", 0, 0, fmt.Errorf("encode preview: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), width, height, nil
}

// DecodePreview decodes an inline base64 JPEG preview and scales it
// back up to width x height, returning JPEG bytes for the preview blob.
func DecodePreview(b64 string, width, height int) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("decode preview: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode preview: %w", err)
	}
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("decode preview: bad dimensions %dx%d", width, height)
	}

	scaled := scale(img, width, height)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, scaled, nil); err != nil {
		return nil, fmt.Errorf("decode preview: %w", err)
	}
	return buf.Bytes(), nil
}

func scale(img image.Image, w, h int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return dst
}
