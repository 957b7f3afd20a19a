package pdf

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	_ "golang.org/x/image/tiff"

	"pdf-layout-translator/internal/layout"
	"pdf-layout-translator/internal/logger"
)

// PageImages maps an image XObject resource name to its decoded pixels.
type PageImages map[string]image.Image

// PlaceImages finds the image XObjects painted on page index, with their
// bounding boxes in user space. Images inside form XObjects are not
// followed.
func PlaceImages(r *pdf.Reader, index int) (blocks []BlockInfo, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			blocks = nil
			err = NewPDFErrorWithPage(ErrDecodeFailed, "malformed page content", index, fmt.Errorf("%v", rec))
		}
	}()

	p := r.Page(index + 1)
	if p.V.IsNull() {
		return nil, NewPDFErrorWithPage(ErrDecodeFailed, "page object missing", index, nil)
	}
	xobjects := p.Resources().Key("XObject")

	ctm := identity
	var stack []layout.Matrix
	do := func(stk *pdf.Stack, op string) {
		switch op {
		case "q":
			stack = append(stack, ctm)
		case "Q":
			if n := len(stack); n > 0 {
				ctm = stack[n-1]
				stack = stack[:n-1]
			}
		case "cm":
			a := floats(pop(stk, 6))
			ctm = mul(layout.Matrix{a[0], a[1], a[2], a[3], a[4], a[5]}, ctm)
		case "Do":
			name := strings.TrimPrefix(pop(stk, 1)[0].Name(), "/")
			if xobjects.Key(name).Key("Subtype").Name() != "Image" {
				return
			}
			x0, y0, x1, y1 := unitSquare(ctm)
			blocks = append(blocks, BlockInfo{
				No:    len(blocks),
				Page:  index,
				Type:  BlockImage,
				X0:    x0,
				Y0:    y0,
				X1:    x1,
				Y1:    y1,
				Image: name,
			})
		}
	}
	for _, s := range contentStreams(p.V.Key("Contents")) {
		pdf.Interpret(s, do)
	}
	return blocks, nil
}

// unitSquare returns the bounding box of the unit square under m, which
// is where an image XObject is painted.
func unitSquare(m layout.Matrix) (x0, y0, x1, y1 float64) {
	x0, y0 = math.Inf(1), math.Inf(1)
	x1, y1 = math.Inf(-1), math.Inf(-1)
	for _, c := range [][2]float64{{0, 0}, {1, 0}, {0, 1}, {1, 1}} {
		x, y := apply(m, c[0], c[1])
		x0, y0 = math.Min(x0, x), math.Min(y0, y)
		x1, y1 = math.Max(x1, x), math.Max(y1, y)
	}
	return
}

// ExtractImages exports every page's image XObjects with pdfcpu and
// decodes them, keyed by zero-based page index. Images Go cannot decode,
// JPEG 2000 among them, are skipped.
func ExtractImages(path string) (map[int]PageImages, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewPDFError(ErrPDFNotFound, "file does not exist", err)
		}
		return nil, NewPDFError(ErrPDFInvalid, "cannot access file", err)
	}
	defer f.Close()

	out := make(map[int]PageImages)
	digest := func(img model.Image, _ bool, _ int) error {
		if img.Thumb || img.Name == "" {
			return nil
		}
		decoded, _, err := image.Decode(img)
		if err != nil {
			logger.Debug("image skipped",
				logger.Page(img.PageNr-1),
				logger.String("name", img.Name),
				logger.String("type", img.FileType),
				logger.Err(err))
			return nil
		}
		page := out[img.PageNr-1]
		if page == nil {
			page = make(PageImages)
			out[img.PageNr-1] = page
		}
		page[img.Name] = decoded
		return nil
	}
	if err := api.ExtractImages(f, nil, digest, nil); err != nil {
		return nil, NewPDFError(ErrDecodeFailed, "failed to extract images", err)
	}
	return out, nil
}
