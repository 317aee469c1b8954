package credential

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/skip2/go-qrcode"
)

// qrSize is the rendered image edge in pixels.
const qrSize = 512

// RenderQR encodes the payload JSON as a PNG QR image. The highest
// error-correction level is used so a partially damaged print still scans.
func RenderQR(p Payload) ([]byte, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal credential payload: %w", err)
	}
	png, err := qrcode.Encode(string(raw), qrcode.Highest, qrSize)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}

// DataURL renders the payload as an inline image suitable for direct display
// in a browser.
func DataURL(p Payload) (string, error) {
	png, err := RenderQR(p)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
