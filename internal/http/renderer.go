package httpx

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	domainauth "github.com/shepherd-church/shepherd/internal/domain/auth"
	"github.com/shepherd-church/shepherd/internal/http/ui/viewmodel"
	"github.com/shepherd-church/shepherd/internal/http/uiutil"
)

//go:embed templates/*.tmpl
var embeddedTemplates embed.FS

// TemplateRenderer renders the admin HTML pages.
type TemplateRenderer struct {
	t      *template.Template
	logger *slog.Logger
}

// TemplateRendererConfig holds configuration for creating a TemplateRenderer.
type TemplateRendererConfig struct {
	TemplateFS fs.FS        // defaults to the templates compiled into the binary
	Logger     *slog.Logger // for template errors (optional)
	Now        func() time.Time
}

// pageData is what the layout template executes against. Body is the
// already-rendered, already-guarded main content.
type pageData struct {
	viewmodel.Layout
	Body template.HTML
}

// LayoutData implements viewmodel.LayoutProvider.
func (p *pageData) LayoutData() *viewmodel.Layout { return &p.Layout }

// NewTemplateRenderer parses the page templates.
func NewTemplateRenderer(cfg TemplateRendererConfig) (*TemplateRenderer, error) {
	fsys := cfg.TemplateFS
	if fsys == nil {
		fsys = embeddedTemplates
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	t, err := template.New("root").Funcs(templateFuncs(cfg.Now)).ParseFS(fsys, "templates/*.tmpl")
	if err != nil {
		cfg.Logger.Error("template parsing failed",
			slog.Any("error", err),
			slog.String("phase", "initialization"),
		)
		return nil, err
	}
	return &TemplateRenderer{t: t, logger: cfg.Logger}, nil
}

func templateFuncs(now func() time.Time) template.FuncMap {
	return template.FuncMap{
		"friendlyTime": func(ts any) string {
			switch v := ts.(type) {
			case time.Time:
				return uiutil.FormatFriendlyDateTime(v)
			case *time.Time:
				if v != nil {
					return uiutil.FormatFriendlyDateTime(*v)
				}
			}
			return ""
		},
		"relativeTime": func(t time.Time) string { return uiutil.FriendlyRelativeTime(t, now()) },
		"roleInfo":     func(r domainauth.Role) domainauth.RoleInfo { return r.Info() },
		"resourceLabel": func(r domainauth.Resource) string {
			return ResourceLabel(r)
		},
	}
}

// RenderSection executes the content template for page into HTML.
func (r *TemplateRenderer) RenderSection(page string, data any) (template.HTML, error) {
	var buf bytes.Buffer
	name := ContentTemplateFor(page)
	if err := r.t.ExecuteTemplate(&buf, name, data); err != nil {
		r.logTemplateError(name, err)
		return "", err
	}
	// #nosec G203 - produced by html/template; values were escaped during execution.
	return template.HTML(buf.String()), nil
}

// RenderPage renders body inside the layout with the given status. htmx
// requests get the main content only.
func (r *TemplateRenderer) RenderPage(w http.ResponseWriter, req *http.Request, status int, layout viewmodel.Layout, body template.HTML) {
	name := "layout"
	if WantsPartial(req) {
		name = "content"
	}

	var buf bytes.Buffer
	if err := r.t.ExecuteTemplate(&buf, name, &pageData{Layout: layout, Body: body}); err != nil {
		r.logTemplateError(name, err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		r.logger.Debug("failed to write rendered page",
			slog.String("template", name),
			slog.Any("error", err),
		)
	}
}

func (r *TemplateRenderer) logTemplateError(templateName string, err error) {
	r.logger.Error("template execution failed",
		slog.String("template", templateName),
		slog.Any("error", err),
	)
}
