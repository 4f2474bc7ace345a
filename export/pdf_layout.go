package export

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-pdf/fpdf"
)

// layout renders a document definition with the PDF core fonts. Remote
// logo images are not fetched; the header node stays in the definition.
func layout(doc *DocDefinition) ([]byte, error) {
	orientation := "P"
	if doc.PageOrientation == "landscape" {
		orientation = "L"
	}
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: orientation,
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: doc.PageSize.Width, Ht: doc.PageSize.Height},
	})
	left, top, right, bottom := doc.PageMargins[0], doc.PageMargins[1], doc.PageMargins[2], doc.PageMargins[3]
	pdf.SetMargins(left, top, right)
	pdf.SetAutoPageBreak(true, bottom)
	pdf.AliasNbPages("")
	pdf.SetTitle(doc.FooterText, true)

	l := &layouter{pdf: pdf, doc: doc, tr: pdf.UnicodeTranslatorFromDescriptor(""), font: coreFont(doc.DefaultFont)}

	bg := doc.Background
	pdf.SetHeaderFunc(func() {
		if bg == "" || strings.EqualFold(bg, "#ffffff") {
			return
		}
		w, h := pdf.GetPageSize()
		r, g, b := hexRGB(bg)
		pdf.SetFillColor(r, g, b)
		pdf.Rect(0, 0, w, h, "F")
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-bottom * 0.75)
		pdf.SetFont(l.font, "", doc.FooterSize)
		r, g, b := hexRGB(doc.Styles["metadata"].Color)
		pdf.SetTextColor(r, g, b)
		pdf.CellFormat(0, doc.FooterSize+2, l.tr(doc.footer(pdf.PageNo(), "{nb}")), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	for _, n := range doc.Content {
		l.node(n, Style{})
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

type layouter struct {
	pdf  *fpdf.Fpdf
	doc  *DocDefinition
	tr   func(string) string
	font string
}

func (l *layouter) node(n Node, inherited Style) {
	if n.PageBreak == "before" {
		l.pdf.AddPage()
	}
	st := inherited
	named := l.doc.Styles[n.Style]
	if named.FontSize > 0 {
		st.FontSize = named.FontSize
	}
	st.Bold = st.Bold || named.Bold
	st.Italic = st.Italic || named.Italic
	if named.Color != "" {
		st.Color = named.Color
	}
	if named.Background != "" {
		st.Background = named.Background
	}
	if named.Alignment != "" {
		st.Alignment = named.Alignment
	}
	if n.FontSize > 0 {
		st.FontSize = n.FontSize
	}
	if n.Alignment != "" {
		st.Alignment = n.Alignment
	}
	margin := n.Margin
	if margin == nil {
		margin = named.Margin
	}

	if len(margin) == 4 {
		l.pdf.SetY(l.pdf.GetY() + margin[1])
	}
	switch {
	case len(n.Stack) > 0:
		for _, c := range n.Stack {
			l.node(c, st)
		}
	case n.Text != "":
		l.text(n.Text, st, n.Bold)
	}
	if len(margin) == 4 {
		l.pdf.SetY(l.pdf.GetY() + margin[3])
	}

	if n.PageBreak == "after" {
		l.pdf.AddPage()
	}
}

func (l *layouter) text(s string, st Style, bold bool) {
	style := ""
	if st.Bold || bold {
		style += "B"
	}
	if st.Italic {
		style += "I"
	}
	size := st.FontSize
	if size == 0 {
		size = l.doc.DefaultSize
	}
	l.pdf.SetFont(l.font, style, size)
	r, g, b := hexRGB(st.Color)
	l.pdf.SetTextColor(r, g, b)
	fill := st.Background != ""
	if fill {
		r, g, b := hexRGB(st.Background)
		l.pdf.SetFillColor(r, g, b)
	}
	l.pdf.MultiCell(0, size*1.3, l.tr(s), "", alignCode(st.Alignment), fill)
}

func alignCode(a string) string {
	switch a {
	case "center":
		return "C"
	case "right":
		return "R"
	case "justify":
		return "J"
	}
	return "L"
}

// coreFont maps the selectable fonts onto the PDF core families.
func coreFont(name string) string {
	switch strings.ToLower(name) {
	case "times":
		return "Times"
	case "courier":
		return "Courier"
	}
	return "Helvetica"
}

// hexRGB parses #rrggbb; anything else is black.
func hexRGB(hex string) (int, int, int) {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return 0, 0, 0
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, 0, 0
	}
	return int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff)
}
