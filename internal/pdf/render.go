package pdf

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
)

const (
	fontFamily      = "Helvetica"
	defaultFontSize = 10.0
	footerReserve   = 12.0
	footerSystem    = "PartPulse PDF Generation System"
)

// RenderOptions carries the per-document inputs that are not record data.
type RenderOptions struct {
	Title string
	Now   time.Time
	// Assets resolves header logo sources. Logos that cannot be read are
	// drawn as labelled boxes.
	Assets fs.FS
}

type renderer struct {
	pdf  *fpdf.Fpdf
	tpl  *Template
	data map[string]any
	opts RenderOptions
	tr   func(string) string

	y      float64
	margin float64
	pageW  float64
	pageH  float64
}

// Render draws tpl against data and returns the finished document.
func Render(tpl *Template, data map[string]any, opts RenderOptions) ([]byte, error) {
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	orientation := "P"
	if strings.EqualFold(tpl.Page.Orientation, "landscape") {
		orientation = "L"
	}
	doc := fpdf.New(orientation, "pt", tpl.Page.Size, "")
	r := &renderer{pdf: doc, tpl: tpl, data: data, opts: opts, margin: tpl.Page.Margin}
	r.tr = doc.UnicodeTranslatorFromDescriptor("")
	r.pageW, r.pageH = doc.GetPageSize()

	doc.SetMargins(r.margin, r.margin, r.margin)
	doc.SetAutoPageBreak(false, r.margin)
	doc.SetCreationDate(opts.Now)
	doc.SetCreator("PartPulse", false)
	if opts.Title != "" {
		doc.SetTitle(opts.Title, true)
	}
	doc.SetFooterFunc(r.footer)

	r.newPage()
	r.header()
	for _, s := range tpl.Sections {
		r.section(s)
		if doc.Err() {
			break
		}
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *renderer) newPage() {
	r.pdf.AddPage()
	r.y = r.margin
}

func (r *renderer) bottom() float64 {
	return r.pageH - r.margin - footerReserve
}

// ensure starts a new page when h points do not fit below the cursor.
func (r *renderer) ensure(h float64) bool {
	if r.y+h <= r.bottom() {
		return false
	}
	r.newPage()
	return true
}

func (r *renderer) contentWidth() float64 {
	return r.pageW - 2*r.margin
}

func (r *renderer) font(style string, size float64) {
	if size <= 0 {
		size = defaultFontSize
	}
	r.pdf.SetFont(fontFamily, style, size)
}

func (r *renderer) text(x, y, w, h float64, s, align string) {
	r.pdf.SetXY(x, y)
	r.pdf.CellFormat(w, h, r.tr(s), "", 0, align, false, 0, "")
}

func (r *renderer) value(binding, format string) string {
	return Format(Lookup(r.data, binding), format)
}

func (r *renderer) footer() {
	y := r.pageH - r.margin + 2
	w := r.contentWidth()
	r.pdf.SetTextColor(110, 110, 110)
	r.font("", 8)
	r.text(r.margin, y, w, 10, "Generated: "+r.opts.Now.UTC().Format(time.RFC3339), "L")
	r.text(r.margin, y, w, 10, "Page "+strconv.Itoa(r.pdf.PageNo()), "R")
	r.text(r.margin, y+10, w, 10, footerSystem, "L")
	r.pdf.SetTextColor(0, 0, 0)
}

func (r *renderer) header() {
	h := r.tpl.Header
	if h == nil {
		return
	}
	bottom := r.y
	for _, logo := range h.Logos {
		r.logo(logo)
		if end := logo.Y + logoHeight(logo); end > bottom {
			bottom = end
		}
	}
	for _, t := range []*TitleConfig{h.Title, h.Subtitle} {
		if t == nil {
			continue
		}
		if end := r.title(t); end > bottom {
			bottom = end
		}
	}
	r.y = bottom + 8
}

func logoHeight(l LogoConfig) float64 {
	if l.Height > 0 {
		return l.Height
	}
	return 40
}

func (r *renderer) logo(l LogoConfig) {
	w := l.Width
	if w <= 0 {
		w = 80
	}
	h := logoHeight(l)
	if r.opts.Assets != nil {
		if img, ok := r.loadImage(l.Src); ok {
			r.pdf.ImageOptions(l.Src, l.X, l.Y, w, h, false, img, 0, "")
			return
		}
	}
	name := strings.TrimSuffix(path.Base(l.Src), path.Ext(l.Src))
	name = strings.ToUpper(strings.ReplaceAll(name, "-", " "))
	r.pdf.SetDrawColor(160, 160, 160)
	r.pdf.Rect(l.X, l.Y, w, h, "D")
	r.pdf.SetDrawColor(0, 0, 0)
	r.font("B", 8)
	r.text(l.X, l.Y, w, h, name, "C")
}

func (r *renderer) loadImage(src string) (fpdf.ImageOptions, bool) {
	var opt fpdf.ImageOptions
	switch strings.ToLower(path.Ext(src)) {
	case ".png":
		opt.ImageType = "PNG"
	case ".jpg", ".jpeg":
		opt.ImageType = "JPG"
	default:
		return opt, false
	}
	f, err := r.opts.Assets.Open(strings.TrimPrefix(src, "/"))
	if err != nil {
		return opt, false
	}
	defer f.Close()
	raw, err := io.ReadAll(f)
	if err != nil {
		return opt, false
	}
	info := r.pdf.RegisterImageOptionsReader(src, opt, bytes.NewReader(raw))
	return opt, info != nil && r.pdf.Ok()
}

// title returns the y coordinate below the drawn line.
func (r *renderer) title(t *TitleConfig) float64 {
	size := t.FontSize
	if size <= 0 {
		size = 14
	}
	style := ""
	if t.Bold {
		style += "B"
	}
	if t.Underline {
		style += "U"
	}
	r.font(style, size)
	x, w := r.margin, r.contentWidth()
	if t.X > 0 {
		x, w = t.X, r.pageW-r.margin-t.X
	}
	y := t.Y
	if y <= 0 {
		y = r.y
	}
	r.text(x, y, w, size+4, t.Text, alignCode(t.Align))
	return y + size + 4
}

func alignCode(a string) string {
	switch strings.ToLower(a) {
	case "center":
		return "C"
	case "right":
		return "R"
	}
	return "L"
}

func (r *renderer) section(s Section) {
	if s.Y > 0 && r.pdf.PageNo() == 1 {
		r.y = s.Y
	}
	if s.Label != "" {
		r.ensure(36)
		r.font("B", 11)
		r.text(r.margin, r.y, r.contentWidth(), 16, s.Label, "L")
		r.y += 18
	}

	switch s.Type {
	case SectionFields:
		r.fields(s.Fields)
	case SectionTable:
		r.table(s.Table)
	case SectionText:
		r.textBlock(s.Text)
	case SectionCheckbox:
		r.checkbox(s.Checkbox)
	case SectionSignature:
		r.signature(s.Signature)
	case SectionStamp:
		r.stamp(s.Stamp)
	case SectionSpacer:
		r.y += s.Spacer.Height
	case SectionLine:
		r.line(s.Line)
	}
}

func (r *renderer) fields(fields []FieldConfig) {
	for _, f := range fields {
		size := f.FontSize
		if size <= 0 {
			size = defaultFontSize
		}
		rowH := size + 6
		if f.Y > 0 && r.pdf.PageNo() == 1 {
			r.y = f.Y
		} else {
			r.ensure(rowH)
		}
		x := r.margin
		if f.X > 0 {
			x = f.X
		}
		lw := f.LabelWidth
		if lw <= 0 {
			lw = 100
		}
		vw := f.Width
		if vw <= 0 {
			vw = r.pageW - r.margin - x - lw
		}

		r.font("B", size)
		r.text(x, r.y, lw, rowH, f.Label, "L")
		style := ""
		if f.Bold {
			style += "B"
		}
		if f.Underline {
			style += "U"
		}
		r.font(style, size)
		r.text(x+lw, r.y, vw, rowH, r.fit(r.value(f.Binding, f.Format), vw), "L")
		r.y += rowH
	}
}

// fit shortens s with an ellipsis until it fits in w points at the current font.
func (r *renderer) fit(s string, w float64) string {
	if r.pdf.GetStringWidth(r.tr(s)) <= w-2 {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && r.pdf.GetStringWidth(r.tr(string(runes)+"...")) > w-2 {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}

func (r *renderer) table(t *TableConfig) {
	x := r.margin
	if t.X > 0 {
		x = t.X
	}
	headerH, rowH := t.HeaderHeight, t.RowHeight
	if headerH <= 0 {
		headerH = 20
	}
	if rowH <= 0 {
		rowH = 18
	}
	size := t.FontSize
	if size <= 0 {
		size = 9
	}

	drawHeader := func() {
		r.font("B", size)
		r.pdf.SetFillColor(230, 230, 230)
		cx := x
		for _, c := range t.Columns {
			r.pdf.SetXY(cx, r.y)
			r.pdf.CellFormat(c.Width, headerH, r.tr(r.fit(c.Header, c.Width)), "1", 0, "L", true, 0, "")
			cx += c.Width
		}
		r.y += headerH
		r.font("", size)
	}

	r.ensure(headerH + rowH)
	drawHeader()

	rows, _ := Lookup(r.data, t.RowsBinding).([]any)
	if len(rows) == 0 {
		var total float64
		for _, c := range t.Columns {
			total += c.Width
		}
		r.pdf.SetXY(x, r.y)
		r.pdf.CellFormat(total, rowH, "No items", "1", 0, "C", false, 0, "")
		r.y += rowH
		return
	}
	for _, row := range rows {
		if r.ensure(rowH) {
			drawHeader()
		}
		cx := x
		for _, c := range t.Columns {
			v := r.fit(Format(Lookup(row, c.Binding), c.Format), c.Width)
			r.pdf.SetXY(cx, r.y)
			r.pdf.CellFormat(c.Width, rowH, r.tr(v), "1", 0, "L", false, 0, "")
			cx += c.Width
		}
		r.y += rowH
	}
}

func (r *renderer) textBlock(t *TextConfig) {
	content := t.Content
	if t.Binding != "" {
		content = r.value(t.Binding, FormatText)
	}
	if content == "" {
		return
	}
	x := r.margin
	if t.X > 0 {
		x = t.X
	}
	w := t.Width
	if w <= 0 {
		w = r.pageW - r.margin - x
	}
	size := t.FontSize
	if size <= 0 {
		size = defaultFontSize
	}
	lh := t.Height
	if lh <= 0 {
		lh = size + 4
	}
	r.font("", size)
	align := alignCode(t.Align)

	if !t.Multiline {
		r.ensure(lh)
		r.text(x, r.y, w, lh, r.fit(content, w), align)
		r.y += lh
		return
	}
	for _, para := range strings.Split(content, "\n") {
		lines := r.pdf.SplitText(r.tr(para), w)
		if len(lines) == 0 {
			lines = []string{""}
		}
		for _, line := range lines {
			r.ensure(lh)
			r.pdf.SetXY(x, r.y)
			r.pdf.CellFormat(w, lh, line, "", 0, align, false, 0, "")
			r.y += lh
		}
	}
}

func (r *renderer) checkbox(c *CheckboxConfig) {
	size := c.Size
	if size <= 0 {
		size = 10
	}
	r.ensure(size + 8)
	x := r.margin
	if c.X > 0 {
		x = c.X
	}
	r.pdf.SetLineWidth(0.8)
	r.pdf.Rect(x, r.y, size, size, "D")
	if truthy(Lookup(r.data, c.Binding)) {
		r.pdf.Line(x+2, r.y+2, x+size-2, r.y+size-2)
		r.pdf.Line(x+size-2, r.y+2, x+2, r.y+size-2)
	}
	r.font("", defaultFontSize)
	r.text(x+size+6, r.y, r.contentWidth()-size-6, size, c.Label, "L")
	r.y += size + 8
}

func (r *renderer) signature(s *SignatureConfig) {
	const rowH = 24.0
	r.ensure(rowH)
	x := r.margin
	if s.X > 0 {
		x = s.X
	}
	w := s.Width
	if w <= 0 {
		w = 180
	}
	label := s.Label
	if label == "" {
		label = "Signature:"
	}
	r.font("B", defaultFontSize)
	lw := r.pdf.GetStringWidth(r.tr(label)) + 8
	r.text(x, r.y, lw, 16, label, "L")

	if s.Binding != "" && truthy(Lookup(r.data, s.Binding)) {
		r.font("BI", defaultFontSize)
		r.text(x+lw, r.y, w, 16, "[SIGNED]", "L")
	} else {
		r.pdf.SetLineWidth(0.5)
		r.pdf.Line(x+lw, r.y+14, x+lw+w, r.y+14)
	}
	r.y += rowH
}

func (r *renderer) stamp(s *StampConfig) {
	if !truthy(Lookup(r.data, s.Binding)) {
		return
	}
	size := s.FontSize
	if size <= 0 {
		size = 20
	}
	boxH := size * 1.6
	r.ensure(boxH + 10)
	x := r.margin
	if s.X > 0 {
		x = s.X
	}
	red, green, blue := parseHexColor(s.Color)

	r.font("B", size)
	w := r.pdf.GetStringWidth(r.tr(s.Text)) + size
	cx, cy := x+w/2, r.y+boxH/2

	r.pdf.TransformBegin()
	r.pdf.TransformRotate(-s.Rotation, cx, cy)
	r.pdf.SetDrawColor(red, green, blue)
	r.pdf.SetTextColor(red, green, blue)
	r.pdf.SetLineWidth(2)
	r.pdf.Rect(x, r.y, w, boxH, "D")
	r.text(x, r.y, w, boxH, s.Text, "C")
	r.pdf.TransformEnd()

	r.pdf.SetDrawColor(0, 0, 0)
	r.pdf.SetTextColor(0, 0, 0)
	r.y += boxH + 10
}

func (r *renderer) line(l *LineConfig) {
	r.ensure(8)
	x1, x2, stroke := r.margin, r.pageW-r.margin, 0.5
	if l != nil {
		if l.X1 > 0 {
			x1 = l.X1
		}
		if l.X2 > 0 {
			x2 = l.X2
		}
		if l.StrokeWidth > 0 {
			stroke = l.StrokeWidth
		}
	}
	r.pdf.SetLineWidth(stroke)
	r.pdf.Line(x1, r.y+4, x2, r.y+4)
	r.y += 8
}

// parseHexColor reads #RRGGBB, falling back to a stamp red.
func parseHexColor(s string) (int, int, int) {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return 198, 40, 40
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 198, 40, 40
	}
	return int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff)
}
