// Package services renders the printable warranty certificate as a
// standalone right-to-left A4 HTML document.
package services

import (
	"bytes"
	"html/template"
	"io"
	"strconv"
	"time"

	"github.com/magabrotheeeer/warranty-service/internal/apperr"
	"github.com/magabrotheeeer/warranty-service/internal/lib/phone"
	"github.com/magabrotheeeer/warranty-service/internal/models"
)

// DefaultPrintDelay is how long the page settles before the print dialog opens.
const DefaultPrintDelay = 300 * time.Millisecond

// Issuer is printed in the footer of every certificate.
const Issuer = "شركة السويد للسباكة التجارية"

var arabicMonths = [...]string{
	"يناير", "فبراير", "مارس", "أبريل", "مايو", "يونيو",
	"يوليو", "أغسطس", "سبتمبر", "أكتوبر", "نوفمبر", "ديسمبر",
}

// FormatDate renders t as "10 يناير 2025".
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return strconv.Itoa(t.Day()) + " " + arabicMonths[t.Month()-1] + " " + strconv.Itoa(t.Year())
}

// Options tune the rendered page.
type Options struct {
	// AutoPrint adds the script that opens the print dialog on load.
	AutoPrint  bool
	PrintDelay time.Duration
}

// Renderer renders certificates. It is safe for concurrent use.
type Renderer struct {
	tmpl *template.Template
	opts Options
}

// NewRenderer parses the certificate template.
func NewRenderer(opts Options) *Renderer {
	if opts.PrintDelay <= 0 {
		opts.PrintDelay = DefaultPrintDelay
	}
	tmpl := template.Must(template.New("certificate").Funcs(template.FuncMap{
		"date":  FormatDate,
		"phone": phone.Format,
		"inc":   func(i int) int { return i + 1 },
	}).Parse(page))
	return &Renderer{tmpl: tmpl, opts: opts}
}

type pageData struct {
	models.Certificate
	Issuer       string
	AutoPrint    bool
	PrintDelayMS int64
}

// Render writes the certificate page to w. A certificate without products
// is reported as not found.
func (r *Renderer) Render(w io.Writer, cert models.Certificate) error {
	const op = "services.certificate.Render"
	if len(cert.Products) == 0 {
		return apperr.NotFound(op, "certificate_not_found")
	}
	data := pageData{
		Certificate:  cert,
		Issuer:       Issuer,
		AutoPrint:    r.opts.AutoPrint,
		PrintDelayMS: r.opts.PrintDelay.Milliseconds(),
	}
	if err := r.tmpl.Execute(w, data); err != nil {
		return apperr.Wrap(apperr.KindServer, op, err)
	}
	return nil
}

// RenderBytes renders the page into memory so that a failure can still be
// reported before anything is written to the client.
func (r *Renderer) RenderBytes(cert models.Certificate) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.Render(&buf, cert); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

const page = `<!DOCTYPE html>
<html dir="rtl" lang="ar">
<head>
<meta charset="utf-8">
<title>شهادة الضمان</title>
<style>
@page { size: A4 portrait; margin: 0; }
* { box-sizing: border-box; }
body { margin: 0; font-family: "Tajawal", "Segoe UI", Tahoma, sans-serif; color: #1f2937; background: #fff; }
.certificate { width: 794px; height: 1123px; margin: 0 auto; padding: 32px; border: 2px solid #0033cc; display: flex; flex-direction: column; }
.brand { text-align: center; color: #0033cc; font-size: 22px; font-weight: 700; margin-bottom: 16px; }
h1 { text-align: center; color: #0033cc; font-size: 32px; margin: 0 0 24px; }
h2 { display: flex; align-items: center; gap: 8px; color: #0033cc; font-size: 18px; margin: 0 0 12px; }
h2 .step { width: 24px; height: 24px; border-radius: 50%; background: #0033cc; color: #fff; font-size: 12px; display: inline-flex; align-items: center; justify-content: center; }
section { border: 1px solid #dbe3ff; border-radius: 12px; padding: 16px; margin-bottom: 16px; }
.fields { display: grid; grid-template-columns: repeat(3, 1fr); gap: 12px; }
.label { font-size: 12px; color: #6b7280; margin: 0 0 4px; }
.value { font-size: 14px; font-weight: 700; margin: 0; }
ol.products { list-style: none; margin: 0; padding: 0; display: grid; grid-template-columns: repeat(2, 1fr); gap: 8px; }
ol.products li { display: flex; gap: 8px; align-items: flex-start; background: #f5f7ff; border-radius: 8px; padding: 8px; }
ol.products .num { min-width: 20px; height: 20px; border-radius: 50%; background: #0033cc; color: #fff; font-size: 11px; display: inline-flex; align-items: center; justify-content: center; }
ol.products .name { font-size: 14px; font-weight: 700; margin: 0; }
ol.products .desc { font-size: 12px; color: #4b5563; margin: 2px 0 0; }
.terms { display: grid; grid-template-columns: repeat(2, 1fr); gap: 12px; }
.terms .value { color: #0033cc; font-size: 18px; }
footer { margin-top: auto; text-align: center; font-size: 13px; color: #4b5563; border-top: 1px solid #dbe3ff; padding-top: 12px; }
@media print { body { -webkit-print-color-adjust: exact; print-color-adjust: exact; } }
</style>
</head>
<body>
<div class="certificate">
<div class="brand">{{.Issuer}}</div>
<h1>شهادة الضمان</h1>

<section>
<h2><span class="step">1</span>معلومات العميل</h2>
<div class="fields">
<div><p class="label">اسم العميل</p><p class="value">{{.CustomerName}}</p></div>
<div><p class="label">رقم الهاتف</p><p class="value" dir="ltr">{{phone .PhoneNumber}}</p></div>
<div><p class="label">رقم الفاتورة</p><p class="value">{{.InvoiceNumber}}</p></div>
</div>
</section>

<section>
<h2><span class="step">2</span>الشركات المشمولة</h2>
<ol class="products">
{{- range $i, $p := .Products}}
<li><span class="num">{{inc $i}}</span><div><p class="name">{{$p.Name}}</p>{{if $p.Description}}<p class="desc">{{$p.Description}}</p>{{end}}</div></li>
{{- end}}
</ol>
</section>

<section>
<h2><span class="step">3</span>معلومات الضمان</h2>
<div class="terms">
<div><p class="label">مدة الضمان</p><p class="value">{{.DurationMonths}} شهر</p></div>
<div><p class="label">تاريخ النهاية</p><p class="value">{{date .EndDate}}</p></div>
</div>
</section>

<footer>هذه الشهادة صادرة من {{.Issuer}}</footer>
</div>
{{- if .AutoPrint}}
<script>
window.addEventListener("load", function () {
  setTimeout(function () { window.print(); }, {{.PrintDelayMS}});
});
</script>
{{- end}}
</body>
</html>
`
