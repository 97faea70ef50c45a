package web

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"

	"covertype/internal/features"

	"github.com/rs/zerolog/log"
)

const (
	fieldWilderness = "wilderness"
	fieldSoil       = "soil"
)

type fieldView struct {
	Name  string
	Value string
}

type optionView struct {
	Name     string
	Label    string
	Selected bool
}

type selectorView struct {
	Field   string
	Title   string
	Options []optionView
}

type pageView struct {
	Caption   string
	Numeric   []fieldView
	Selectors []*selectorView
	Result    *Result
}

var pageTemplate = template.Must(template.New("form").Funcs(template.FuncMap{
	"percent": percent,
}).Parse(`<!DOCTYPE html>
<html>
<head>
    <title>Forest Cover Type Predictor</title>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <style>
        body { font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; margin: 0; padding: 20px; background-color: #f5f5f5; }
        .container { max-width: 900px; margin: 0 auto; background: white; padding: 24px; border-radius: 8px; }
        .caption { color: #666; font-size: 0.9em; }
        .grid { display: grid; grid-template-columns: repeat(2, 1fr); gap: 12px; }
        label { display: block; font-size: 0.85em; color: #333; }
        input, select { width: 100%; padding: 6px; box-sizing: border-box; }
        .success { background: #e6f4ea; color: #1e7e34; padding: 12px; border-radius: 4px; margin-top: 16px; }
        .error { background: #fdecea; color: #b00020; padding: 12px; border-radius: 4px; margin-top: 16px; }
    </style>
</head>
<body>
<div class="container">
    <h1>Forest Cover Type Predictor</h1>
    <p class="caption">{{.Caption}}</p>
    <form method="POST" action="/predict">
        <h2>Enter Feature Values</h2>
        <div class="grid">
        {{- range .Numeric}}
            <div><label for="{{.Name}}">{{.Name}}</label><input type="text" id="{{.Name}}" name="{{.Name}}" value="{{.Value}}"></div>
        {{- end}}
        </div>
        {{- range $sel := .Selectors}}
        <hr>
        <h2>{{$sel.Title}}</h2>
        <label for="{{$sel.Field}}">Select {{$sel.Title}}</label>
        <select id="{{$sel.Field}}" name="{{$sel.Field}}">
        {{- range $sel.Options}}
            <option value="{{.Name}}"{{if .Selected}} selected{{end}}>{{.Label}}</option>
        {{- end}}
        </select>
        {{- end}}
        <p><button type="submit">Predict Cover Type</button></p>
    </form>
    {{- with .Result}}
    {{- if .Failed}}
    <div class="error">{{.Message}}</div>
    {{- else}}
    <div class="success">Predicted Forest Cover Type: <strong>{{.Label}}</strong></div>
    {{- if .Top}}
    <h3>Top Class Probabilities:</h3>
    <ul>
    {{- range .Top}}
        <li><strong>{{.Label}}</strong>: {{percent .Probability}}</li>
    {{- end}}
    </ul>
    {{- end}}
    {{- end}}
    {{- end}}
</div>
</body>
</html>
`))

func (s *Server) handleForm(w http.ResponseWriter, r *http.Request) {
	form := s.assets.Form
	s.renderPage(w, http.StatusOK, s.newPageView(displayValues(form, nil), form.DefaultInput(), nil))
}

func (s *Server) handleFormPredict(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form submission", http.StatusBadRequest)
		return
	}
	form := s.assets.Form

	raw := make(map[string]string, len(form.Numeric))
	for _, nf := range form.Numeric {
		raw[nf.Name] = r.PostForm.Get(nf.Name)
	}
	wilderness := r.PostForm.Get(fieldWilderness)
	soil := r.PostForm.Get(fieldSoil)

	in, err := form.ParseRaw(raw, wilderness, soil)
	if err != nil {
		in = features.Input{Wilderness: wilderness, Soil: soil}
		out := s.finish("form", in, s.pipeline.Reject(err))
		result := newResult(out)
		s.renderPage(w, http.StatusOK, s.newPageView(displayValues(form, raw), in, &result))
		return
	}

	result := newResult(s.evaluate(r.Context(), "form", in))
	s.renderPage(w, http.StatusOK, s.newPageView(displayValues(form, raw), in, &result))
}

func (s *Server) renderPage(w http.ResponseWriter, status int, view pageView) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, view); err != nil {
		log.Error().Err(err).Msg("Failed to render form")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	s.metrics.FormRenders().Inc()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

func (s *Server) newPageView(numeric []fieldView, in features.Input, result *Result) pageView {
	form := s.assets.Form
	view := pageView{
		Caption: caption(s.assets.Schema.Len()),
		Numeric: numeric,
		Result:  result,
	}
	if sel := newSelectorView(fieldWilderness, form.Wilderness, in.Wilderness); sel != nil {
		view.Selectors = append(view.Selectors, sel)
	}
	if sel := newSelectorView(fieldSoil, form.Soil, in.Soil); sel != nil {
		view.Selectors = append(view.Selectors, sel)
	}
	return view
}

func caption(n int) string {
	return fmt.Sprintf("Model loaded. Expecting %d features.", n)
}

// displayValues echoes what the user submitted, falling back to the
// rendered defaults for fields that were not sent.
func displayValues(form *features.Form, raw map[string]string) []fieldView {
	out := make([]fieldView, len(form.Numeric))
	for i, nf := range form.Numeric {
		v, ok := raw[nf.Name]
		if !ok || v == "" {
			v = nf.Display()
		}
		out[i] = fieldView{Name: nf.Name, Value: v}
	}
	return out
}

// newSelectorView returns nil for an empty group so the control is omitted.
func newSelectorView(field string, sel *features.Selector, selected string) *selectorView {
	if sel.Empty() {
		return nil
	}
	name, err := sel.Resolve(selected)
	if err != nil {
		name = sel.Default()
	}
	v := &selectorView{Field: field, Title: sel.Title, Options: make([]optionView, len(sel.Options))}
	for i, o := range sel.Options {
		v.Options[i] = optionView{Name: o.Name, Label: o.Label, Selected: o.Name == name}
	}
	return v
}
