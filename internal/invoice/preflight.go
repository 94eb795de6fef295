package invoice

import (
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/invoice-agent/internal/apperr"
)

// IsPDF reports whether the first bytes of r look like a PDF document.
func IsPDF(r io.Reader) (bool, error) {
	buf := make([]byte, 512)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return false, eris.Wrap(err, "invoice: read file header")
	}
	return http.DetectContentType(buf[:n]) == "application/pdf", nil
}

// Preflight checks an invoice upload before it is sent: the file must be a
// PDF and a vendor and version must be selected.
func Preflight(path, vendorCode, versionID string) error {
	if strings.TrimSpace(path) == "" {
		return apperr.New(apperr.KindValidation, "Please select a PDF file first")
	}

	f, err := os.Open(path)
	if err != nil {
		return apperr.Wrap(apperr.KindValidation, err, "Please select a valid PDF file")
	}
	defer f.Close() //nolint:errcheck

	ok, err := IsPDF(f)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.New(apperr.KindValidation, "Please select a valid PDF file")
	}

	if strings.TrimSpace(vendorCode) == "" {
		return apperr.New(apperr.KindValidation, "Please select a vendor")
	}
	if strings.TrimSpace(versionID) == "" {
		return apperr.New(apperr.KindValidation, "Please select a rate card version")
	}
	return nil
}
