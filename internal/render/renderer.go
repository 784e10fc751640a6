// Package render 把简历文档渲染成自包含的 HTML，供预览、PDF 打印与截图导出共用。
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"resumeStudio/internal/resume"
	"resumeStudio/internal/section"
)

// PreviewElementID 是预览根节点的 id，截图导出按此定位。
const PreviewElementID = "resume-preview"

//go:embed templates/*.html
var templateFS embed.FS

// Options 控制与文档内容无关的渲染输入。
type Options struct {
	// ImageURL 是头像地址，导出时通常已内联为 data URI。
	ImageURL string
}

// Renderer 持有每个模板解析好的 html/template 集合。
type Renderer struct {
	registry Registry
	pages    map[Variant]*template.Template
}

type sectionView struct {
	Key      string
	Heading  string
	Data     resume.Data
	ImageURL template.URL
}

type pageView struct {
	PreviewID string
	Variant   string
	Title     string
	Header    template.HTML
	All       []template.HTML
	Main      []template.HTML
	Side      []template.HTML
}

// New 使用传入的分区渲染表构建 Renderer。
func New(registry Registry) (*Renderer, error) {
	base, err := template.New("base").Funcs(funcs).ParseFS(templateFS, "templates/sections.html")
	if err != nil {
		return nil, fmt.Errorf("parse section templates: %w", err)
	}

	pages := make(map[Variant]*template.Template, len(variantInfos))
	for _, info := range variantInfos {
		v := Variant(info.ID)
		set, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("clone templates for %s: %w", v, err)
		}
		if _, err := set.ParseFS(templateFS, "templates/"+v.String()+".html"); err != nil {
			return nil, fmt.Errorf("parse %s template: %w", v, err)
		}
		if set.Lookup("page") == nil {
			return nil, fmt.Errorf("template %s has no page definition", v)
		}
		pages[v] = set
	}

	return &Renderer{registry: registry, pages: pages}, nil
}

// MustNew 与 New 相同，解析失败时 panic；模板内嵌在二进制中，失败只可能是编码错误。
func MustNew(registry Registry) *Renderer {
	r, err := New(registry)
	if err != nil {
		panic(err)
	}
	return r
}

// Render 按文档中保存的模板编号渲染。
func (r *Renderer) Render(doc resume.Document, opts Options) ([]byte, error) {
	return r.RenderVariant(ParseVariant(doc.Template), doc, opts)
}

// RenderVariant 使用指定模板渲染文档。分区按布局顺序输出，没有渲染器或内容为空的分区被跳过。
func (r *Renderer) RenderVariant(v Variant, doc resume.Document, opts Options) ([]byte, error) {
	page, ok := r.pages[ParseVariant(int(v))]
	if !ok {
		return nil, fmt.Errorf("template %s not loaded", v)
	}

	data := doc.Data.Normalize()
	layout := section.Normalize(doc.Sections.Order, doc.Sections.Active)

	view := pageView{
		PreviewID: PreviewElementID,
		Variant:   ParseVariant(int(v)).String(),
		Title:     data.Personal.Name,
	}

	for _, kind := range layout.Order {
		sr, ok := r.registry[kind]
		if !ok || (sr.Empty != nil && sr.Empty(data)) {
			continue
		}
		if page.Lookup(sr.Template) == nil {
			continue
		}

		var buf bytes.Buffer
		sv := sectionView{
			Key:      kind.String(),
			Heading:  kind.Config().Name,
			Data:     data,
			ImageURL: imageURL(opts.ImageURL),
		}
		if err := page.ExecuteTemplate(&buf, sr.Template, sv); err != nil {
			return nil, fmt.Errorf("render section %s: %w", kind, err)
		}

		// 片段已经由 html/template 转义
		html := template.HTML(buf.String())
		if kind == section.Personal {
			view.Header = html
			continue
		}
		view.All = append(view.All, html)
		if sr.Sidebar {
			view.Side = append(view.Side, html)
		} else {
			view.Main = append(view.Main, html)
		}
	}

	var out bytes.Buffer
	if err := page.ExecuteTemplate(&out, "page", view); err != nil {
		return nil, fmt.Errorf("render page %s: %w", v, err)
	}
	return out.Bytes(), nil
}

// imageURL 放行内联图片与 http(s) 地址，其余一律丢弃。
func imageURL(raw string) template.URL {
	raw = strings.TrimSpace(raw)
	lower := strings.ToLower(raw)
	switch {
	case strings.HasPrefix(lower, "data:image/"),
		strings.HasPrefix(lower, "https://"),
		strings.HasPrefix(lower, "http://"):
		return template.URL(raw)
	}
	return ""
}
