package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	qrcode "github.com/skip2/go-qrcode"
	"golang.org/x/sync/singleflight"

	"campuspass/internal/storage"
	"campuspass/pkg/domain"
)

// ErrNotApproved is returned when a download is attempted before approval.
var ErrNotApproved = errors.New("request not approved")

const qrSizePixels = 256

// Renderer produces the QR image and composed PDF for an approved request,
// lazily and at most once per identifier. Artifacts are immutable once
// written: later changes to the underlying record do not regenerate them.
type Renderer struct {
	qrDir         string
	pdfDir        string
	verifyBaseURL string
	group         singleflight.Group
	archive       storage.Archiver // optional mirror, may be nil
}

// NewRenderer creates the artifact directories if missing. archive may be nil.
func NewRenderer(qrDir, pdfDir, verifyBaseURL string, archive storage.Archiver) (*Renderer, error) {
	if strings.TrimSpace(qrDir) == "" || strings.TrimSpace(pdfDir) == "" {
		return nil, errors.New("renderer requires qr and pdf directories")
	}
	if err := os.MkdirAll(qrDir, 0o755); err != nil {
		return nil, fmt.Errorf("create qr dir: %w", err)
	}
	if err := os.MkdirAll(pdfDir, 0o755); err != nil {
		return nil, fmt.Errorf("create pdf dir: %w", err)
	}
	return &Renderer{
		qrDir:         qrDir,
		pdfDir:        pdfDir,
		verifyBaseURL: strings.TrimRight(strings.TrimSpace(verifyBaseURL), "/"),
		archive:       archive,
	}, nil
}

// PDFPath returns the stable artifact path for a request identifier.
func (r *Renderer) PDFPath(id string) string {
	return filepath.Join(r.pdfDir, id+".pdf")
}

// RenderIfAbsent returns the PDF path for an approved request, rendering it
// first if no artifact exists yet. The singleflight group keyed by request id
// guarantees that two simultaneous first-downloads run a single render and
// neither observes a half-written file; the PDF itself is published with an
// atomic rename.
func (r *Renderer) RenderIfAbsent(req domain.Request, owner domain.User) (string, error) {
	if req.Status != domain.StatusApproved {
		return "", ErrNotApproved
	}
	target := r.PDFPath(req.ID)
	res, err, _ := r.group.Do(req.ID, func() (any, error) {
		if _, err := os.Stat(target); err == nil {
			return target, nil
		}
		if err := r.render(req, owner, target); err != nil {
			return nil, err
		}
		return target, nil
	})
	if err != nil {
		return "", err
	}
	return res.(string), nil
}

func (r *Renderer) render(req domain.Request, owner domain.User, target string) error {
	qrPath := filepath.Join(r.qrDir, req.ID+".png")
	verifyURL := fmt.Sprintf("%s/verify/%s", r.verifyBaseURL, req.ID)
	if err := qrcode.WriteFile(verifyURL, qrcode.Medium, qrSizePixels, qrPath); err != nil {
		return fmt.Errorf("write qr image: %w", err)
	}

	tmp := target + ".tmp"
	if err := composePDF(req, owner, qrPath, tmp); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("compose pdf: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("publish pdf: %w", err)
	}
	r.archivePDF(req.ID, target)
	return nil
}

// composePDF lays out the pass document: title, student lines, the validity
// window for gate passes, the summary block, and the QR code with a
// scan-to-verify footer.
func composePDF(req domain.Request, owner domain.User, qrPath, out string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	title := fmt.Sprintf("OFFICIAL %s DOCUMENT", strings.ToUpper(string(req.Kind)))
	pdf.CellFormat(0, 15, title, "", 1, "C", false, 0, "")
	pdf.Ln(10)

	pdf.SetFont("Arial", "", 12)
	pdf.CellFormat(0, 10, "Student Name: "+owner.Name, "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 10, "Roll Number: "+owner.Roll, "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 10, "Request Date: "+req.Date, "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 10, "Request Type: "+string(req.Kind), "", 1, "L", false, 0, "")

	if req.Kind == domain.KindGatePass && req.Window != nil {
		pdf.SetTextColor(255, 0, 0)
		validity := fmt.Sprintf("Validity: %s to %s", req.Window.ExitTime, req.Window.ReturnTime)
		pdf.CellFormat(0, 10, validity, "", 1, "L", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	}
	pdf.Ln(5)

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 10, "AI Verified Summary:", "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "I", 11)
	pdf.SetFillColor(240, 240, 240)
	pdf.MultiCell(0, 10, fmt.Sprintf("%q", req.Summary), "1", "L", true)

	pdf.Ln(15)
	pdf.ImageOptions(qrPath, 80, pdf.GetY(), 50, 0, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	pdf.SetY(pdf.GetY() + 52)
	pdf.SetFont("Arial", "B", 8)
	pdf.CellFormat(0, 10, "This is an AI-generated digital pass. Scan QR to verify authenticity.", "", 1, "C", false, 0, "")

	return pdf.OutputFileAndClose(out)
}

// archivePDF mirrors the finished document to object storage when configured.
// Failures only log: the local artifact already serves downloads.
func (r *Renderer) archivePDF(id, path string) {
	if r.archive == nil {
		return
	}
	f, err := os.Open(path)
	if err != nil {
		slog.Warn("archive open failed", "request_id", id, "err", err)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		slog.Warn("archive stat failed", "request_id", id, "err", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	key := "passes/" + id + ".pdf"
	if err := r.archive.Put(ctx, key, f, info.Size(), "application/pdf"); err != nil {
		slog.Warn("archive upload failed", "request_id", id, "err", err)
	}
}
