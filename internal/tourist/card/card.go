// Package card renders a printable PVC-card PDF for a verified tourist. The
// output is a minimal single-page document at CR80 card size; layout and
// branding are intentionally plain.
package card

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"tourchain/internal/credential"
	"tourchain/internal/tourist"
)

// CR80 card dimensions in PDF points (85.6mm x 54mm).
const (
	pageWidth  = 243
	pageHeight = 153
)

type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

func (r *Renderer) Render(_ context.Context, payload credential.Payload, record tourist.Record) ([]byte, error) {
	expires := time.Unix(payload.ExpiresAt, 0).UTC().Format("2006-01-02")
	lines := []string{
		payload.Issuer,
		"",
		"Name:        " + record.Name,
		"Nationality: " + record.Nationality,
		"Tourist ID:  " + record.UniqueID,
		"Credential:  " + payload.CredentialRef,
		"Valid until: " + expires,
		"",
		"Verify at " + payload.VerificationURL,
	}
	return buildPDF(lines), nil
}

// buildPDF assembles a one-page PDF by hand. Offsets in the xref table must
// match the byte positions of each object exactly.
func buildPDF(lines []string) []byte {
	content := contentStream(lines)
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %d %d] /Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>", pageWidth, pageHeight),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", len(content), content),
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xrefStart := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xrefStart)
	return buf.Bytes()
}

func contentStream(lines []string) string {
	var b strings.Builder
	y := pageHeight - 20
	for _, line := range lines {
		if line != "" {
			fmt.Fprintf(&b, "BT /F1 8 Tf 14 %d Td (%s) Tj ET\n", y, escapeText(line))
		}
		y -= 13
	}
	return b.String()
}

func escapeText(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`)
	return replacer.Replace(s)
}
