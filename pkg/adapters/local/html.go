package local

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/aretw0/tabula/pkg/domain"
)

const styles = `
body { font-family: system-ui, sans-serif; margin: 0; color: #1f2937; }
header { background: #250e0d; color: #fff; padding: 1rem 2rem; font-size: 2rem; }
nav { display: flex; gap: .5rem; padding: 1rem 2rem; }
nav button { border: 1px solid #250e0d; background: #fff; padding: .25rem .75rem; cursor: pointer; }
nav button.active { background: #250e0d; color: #fff; }
main { max-width: 75%; margin: 0 auto; text-align: center; }
table.tabula { border-collapse: collapse; margin: 1rem auto; font-size: .85rem; }
table.tabula th, table.tabula td { border: 1px solid #e5e7eb; padding: .25rem .5rem; text-align: left; }
table.tabula thead th { background: #f3f4f6; position: sticky; top: 0; }
.text-6xl { font-size: 3.75rem } .text-5xl { font-size: 3rem } .text-4xl { font-size: 2.25rem }
.text-3xl { font-size: 1.875rem } .text-2xl { font-size: 1.5rem } .text-xl { font-size: 1.25rem }
.text-lg { font-size: 1.125rem } .text-md { font-size: 1rem } .text-sm { font-size: .875rem }
.text-xs { font-size: .75rem }
.subtext { color: #6b7280; font-size: .875rem; }
.page-title { font-size: 4rem; padding: 3rem 0; }
.tabula-chart { display: flex; justify-content: center; padding: 1rem; }
iframe.embed { width: 100%; height: 100vh; border: 0; }
`

var tableTmpl = template.Must(template.New("table").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}).Parse(`<table class="tabula">
<thead><tr><th></th>{{range .Cols}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{- range $i, $row := .Rows}}
<tr><th>{{inc $i}}</th>{{range $row}}<td>{{.}}</td>{{end}}</tr>
{{- end}}
</tbody>
</table>
`))

var tableDocTmpl = template.Must(template.New("doc").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<style>{{.Styles}}</style>
</head>
<body>
<main>
{{.Table}}
</main>
</body>
</html>
`))

var dashboardTmpl = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<script src="https://code.highcharts.com/highcharts.js"></script>
<script src="https://code.highcharts.com/modules/exporting.js"></script>
<style>{{.Styles}}</style>
</head>
<body>
<header>{{.Title}}</header>
{{- if gt (len .Pages) 1}}
<nav>
{{- range $i, $p := .Pages}}
<button data-target="page-{{$i}}"{{if eq $i 0}} class="active"{{end}}>{{$p.Name}}</button>
{{- end}}
</nav>
{{- end}}
<main>
{{- range $i, $p := .Pages}}
<section id="page-{{$i}}" class="page"{{if ne $i 0}} hidden{{end}}>
<h1 class="page-title">{{$p.Name}}</h1>
{{- range $p.Blocks}}
{{.}}
{{- end}}
</section>
{{- end}}
</main>
<script>
document.querySelectorAll("nav button").forEach(function (btn) {
  btn.addEventListener("click", function () {
    document.querySelectorAll("section.page").forEach(function (s) { s.hidden = s.id !== btn.dataset.target; });
    document.querySelectorAll("nav button").forEach(function (b) { b.classList.toggle("active", b === btn); });
  });
});
</script>
</body>
</html>
`))

var blockTmpl = template.Must(template.New("block").Parse(`
{{- define "heading"}}<h2 class="{{.Class}}">{{.Text}}</h2>{{end}}
{{- define "text"}}<p>{{.Text}}</p>{{end}}
{{- define "subtext"}}<p class="subtext">{{.Text}}</p>{{end}}
{{- define "html"}}<iframe class="embed" sandbox="allow-scripts allow-popups allow-downloads" srcdoc="{{.Text}}"></iframe>{{end}}
{{- define "bullets"}}<ul>{{range .Items}}<li>{{.}}</li>{{end}}</ul>{{end}}
`))

type tableView struct {
	Cols []string
	Rows [][]string
}

func newTableView(f *frame) tableView {
	v := tableView{Cols: f.Cols, Rows: make([][]string, f.Rows)}
	for r := 0; r < f.Rows; r++ {
		row := make([]string, len(f.Cols))
		for c, col := range f.Cols {
			row[c] = text(f.Data[col][r])
		}
		v.Rows[r] = row
	}
	return v
}

// tableHTML renders a bare HTML table.
func tableHTML(f *frame) (template.HTML, error) {
	var buf bytes.Buffer
	if err := tableTmpl.Execute(&buf, newTableView(f)); err != nil {
		return "", fmt.Errorf("render table: %w", err)
	}
	return template.HTML(buf.String()), nil
}

// tableDocument renders a table as a standalone page.
func tableDocument(f *frame) (string, error) {
	table, err := tableHTML(f)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	err = tableDocTmpl.Execute(&buf, struct {
		Title  string
		Styles template.CSS
		Table  template.HTML
	}{"table", template.CSS(styles), table})
	if err != nil {
		return "", fmt.Errorf("render document: %w", err)
	}
	return buf.String(), nil
}

// dashboardDocument renders the whole dashboard as a single page.
func dashboardDocument(b *board) (string, error) {
	type page struct {
		Name   string
		Blocks []template.HTML
	}
	pages := make([]page, 0, len(b.Pages))
	for _, p := range b.Pages {
		out := page{Name: p.Name}
		for _, block := range p.Blocks {
			h, err := blockHTML(block)
			if err != nil {
				return "", fmt.Errorf("page %q: %w", p.Name, err)
			}
			out.Blocks = append(out.Blocks, h)
		}
		pages = append(pages, out)
	}

	var buf bytes.Buffer
	err := dashboardTmpl.Execute(&buf, struct {
		Title  string
		Styles template.CSS
		Pages  []page
	}{b.Title, template.CSS(styles), pages})
	if err != nil {
		return "", fmt.Errorf("render dashboard: %w", err)
	}
	return buf.String(), nil
}

func blockHTML(block domain.Block) (template.HTML, error) {
	var buf bytes.Buffer
	var err error
	switch block.Kind {
	case domain.BlockHeading:
		err = blockTmpl.ExecuteTemplate(&buf, "heading", struct{ Class, Text string }{headingClass(block.Size), block.Text})
	case domain.BlockText, domain.BlockSubText, domain.BlockHTML:
		err = blockTmpl.ExecuteTemplate(&buf, string(block.Kind), block)
	case domain.BlockBullets:
		err = blockTmpl.ExecuteTemplate(&buf, "bullets", block)
	case domain.BlockTable:
		f, derr := decodeFrame(string(block.Table))
		if derr != nil {
			return "", derr
		}
		return tableHTML(f)
	case domain.BlockChart:
		if block.Chart == nil {
			return "", fmt.Errorf("chart block without chart")
		}
		// Chart markup is produced by this engine and embedded verbatim.
		return template.HTML(block.Chart.HTML), nil
	default:
		return "", fmt.Errorf("unknown block kind %q", block.Kind)
	}
	if err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}
