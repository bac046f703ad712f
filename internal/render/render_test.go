package render

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/ledongthuc/pdf"

	"campuspass/pkg/domain"
)

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	base := t.TempDir()
	r, err := NewRenderer(filepath.Join(base, "qr"), filepath.Join(base, "pdf"), "http://localhost:8080", nil)
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	return r
}

func approvedRequest() (domain.Request, domain.User) {
	req := domain.Request{
		ID:      "ab12cd34",
		OwnerID: "u1",
		Kind:    domain.KindOnDuty,
		Date:    "2025-04-01",
		Reason:  "Attending a family function in another city for two days",
		Summary: "Family function in another city",
		Status:  domain.StatusApproved,
	}
	owner := domain.User{ID: "u1", Roll: "21CS042", Name: "Asha Rao", Role: domain.RoleStudent}
	return req, owner
}

func TestRenderIfAbsentRejectsPending(t *testing.T) {
	r := newTestRenderer(t)
	req, owner := approvedRequest()
	req.Status = domain.StatusPending

	if _, err := r.RenderIfAbsent(req, owner); !errors.Is(err, ErrNotApproved) {
		t.Fatalf("expected ErrNotApproved, got %v", err)
	}
	if _, err := os.Stat(r.PDFPath(req.ID)); !os.IsNotExist(err) {
		t.Fatalf("pending request must produce no artifact")
	}
}

func TestRenderIfAbsentProducesPDFAndQR(t *testing.T) {
	r := newTestRenderer(t)
	req, owner := approvedRequest()

	path, err := r.RenderIfAbsent(req, owner)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if path != r.PDFPath(req.ID) {
		t.Fatalf("unexpected path %q", path)
	}
	head := make([]byte, 5)
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open pdf: %v", err)
	}
	defer f.Close()
	if _, err := io.ReadFull(f, head); err != nil || string(head) != "%PDF-" {
		t.Fatalf("artifact is not a PDF: %q err=%v", head, err)
	}
	if _, err := os.Stat(filepath.Join(r.qrDir, req.ID+".png")); err != nil {
		t.Fatalf("qr image missing: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind")
	}
}

func TestRenderedPDFContainsStudentDetails(t *testing.T) {
	r := newTestRenderer(t)
	req, owner := approvedRequest()

	path, err := r.RenderIfAbsent(req, owner)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	f, reader, err := pdf.Open(path)
	if err != nil {
		t.Fatalf("open rendered pdf: %v", err)
	}
	defer f.Close()
	textReader, err := reader.GetPlainText()
	if err != nil {
		t.Fatalf("extract text: %v", err)
	}
	raw, err := io.ReadAll(textReader)
	if err != nil {
		t.Fatalf("read text: %v", err)
	}
	text := string(raw)
	for _, want := range []string{owner.Name, owner.Roll, req.Date, req.Summary, "OFFICIAL ONDUTY DOCUMENT"} {
		if !strings.Contains(text, want) {
			t.Fatalf("pdf text missing %q in:\n%s", want, text)
		}
	}
}

func TestRenderedGatePassCarriesValidityWindow(t *testing.T) {
	r := newTestRenderer(t)
	req, owner := approvedRequest()
	req.ID = "ff00aa11"
	req.Kind = domain.KindGatePass
	req.Window = &domain.TimeWindow{ExitTime: "10:00", ReturnTime: "12:00"}

	path, err := r.RenderIfAbsent(req, owner)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	f, reader, err := pdf.Open(path)
	if err != nil {
		t.Fatalf("open rendered pdf: %v", err)
	}
	defer f.Close()
	textReader, err := reader.GetPlainText()
	if err != nil {
		t.Fatalf("extract text: %v", err)
	}
	raw, err := io.ReadAll(textReader)
	if err != nil {
		t.Fatalf("read text: %v", err)
	}
	if !strings.Contains(string(raw), "Validity: 10:00 to 12:00") {
		t.Fatalf("gate pass pdf missing validity line:\n%s", raw)
	}
}

func TestRenderIfAbsentIsIdempotent(t *testing.T) {
	r := newTestRenderer(t)
	req, owner := approvedRequest()

	first, err := r.RenderIfAbsent(req, owner)
	if err != nil {
		t.Fatalf("first render: %v", err)
	}
	before, err := os.Stat(first)
	if err != nil {
		t.Fatalf("stat artifact: %v", err)
	}

	second, err := r.RenderIfAbsent(req, owner)
	if err != nil {
		t.Fatalf("second render: %v", err)
	}
	if second != first {
		t.Fatalf("expected same path, got %q and %q", first, second)
	}
	after, err := os.Stat(second)
	if err != nil {
		t.Fatalf("stat artifact: %v", err)
	}
	if !after.ModTime().Equal(before.ModTime()) || after.Size() != before.Size() {
		t.Fatalf("artifact was rewritten on second call")
	}
}

func TestConcurrentFirstDownloadsRenderOnce(t *testing.T) {
	r := newTestRenderer(t)
	req, owner := approvedRequest()

	const n = 8
	paths := make([]string, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			paths[i], errs[i] = r.RenderIfAbsent(req, owner)
		}(i)
	}
	wg.Wait()
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("render %d: %v", i, errs[i])
		}
		if paths[i] != r.PDFPath(req.ID) {
			t.Fatalf("render %d returned %q", i, paths[i])
		}
	}
	if _, err := os.Stat(r.PDFPath(req.ID) + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind after concurrent renders")
	}
}
