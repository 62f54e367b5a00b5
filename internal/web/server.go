// Package web serves a read-only HTML report of the catalogue.
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/lewtec/imgreader/internal/domain"
	"github.com/lewtec/imgreader/internal/logging"
	"github.com/lewtec/imgreader/internal/metrics"
	"github.com/lewtec/imgreader/internal/workspace"
)

// Source is the read side of the backend gateway.
type Source interface {
	ListProjects(ctx context.Context) ([]string, error)
	GetSettings(ctx context.Context, project string) (*domain.ProjectSettings, error)
	ListFolders(ctx context.Context, project string) ([]string, error)
	ListPreviews(ctx context.Context, project string) ([]domain.ImagePreview, error)
	ListEvaluations(ctx context.Context, project string) ([]domain.Evaluation, error)
	LoadFull(ctx context.Context, project, imageName string) (*domain.ImageFull, error)
}

type Server struct {
	source Source
	log    *zap.Logger
}

func New(source Source) *Server {
	return &Server{source: source, log: logging.Named("web")}
}

func pathParts(path string) []string {
	parts := strings.Split(path, "/")
	if len(parts) > 0 && parts[0] == "" {
		parts = parts[1:]
	}
	if len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}

// assetURL builds /kind/project/image with every segment escaped.
func assetURL(kind, project, name string) string {
	segments := []string{"", kind, url.PathEscape(project)}
	for _, part := range strings.Split(name, domain.NameSeparator) {
		segments = append(segments, url.PathEscape(part))
	}
	return strings.Join(segments, "/")
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/project/", s.handleProject)
	mux.HandleFunc("/thumb/", s.handleThumbnail)
	mux.HandleFunc("/image/", s.handleImage)
	mux.HandleFunc("/", s.handleIndex)

	var handler http.Handler = mux
	handler = HTTPLogger(s.log, handler)
	return handler
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		http.NotFoundHandler().ServeHTTP(w, r)
		return
	}
	s.log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFoundHandler().ServeHTTP(w, r)
		return
	}
	projects, err := s.source.ListProjects(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var markdownBuilder strings.Builder
	fmt.Fprintf(&markdownBuilder, "# Projects\n\n")
	if len(projects) == 0 {
		fmt.Fprintf(&markdownBuilder, "_No projects yet._\n")
	}
	for _, name := range projects {
		fmt.Fprintf(&markdownBuilder, "- [%s](/project/%s)\n", escapeMarkdown(name), url.PathEscape(name))
	}
	s.render(w, TemplateContent{Title: "Projects", Content: markdownBuilder.String()})
}

func (s *Server) handleProject(w http.ResponseWriter, r *http.Request) {
	itemPath := pathParts(r.URL.Path)
	if len(itemPath) != 2 {
		http.NotFoundHandler().ServeHTTP(w, r)
		return
	}
	project := itemPath[1]
	ctx := r.Context()

	settings, err := s.source.GetSettings(ctx, project)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	folders, err := s.source.ListFolders(ctx, project)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	previews, err := s.source.ListPreviews(ctx, project)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	evaluations, err := s.source.ListEvaluations(ctx, project)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	byName := make(map[string]domain.ImagePreview, len(previews))
	for _, p := range previews {
		byName[p.Name] = p
	}
	evals := make(map[string]domain.Evaluation, len(evaluations))
	for _, e := range evaluations {
		evals[e.ImageName] = e
	}

	var markdownBuilder strings.Builder
	fmt.Fprintf(&markdownBuilder, "# [<](/) %s\n\n", escapeMarkdown(project))
	fmt.Fprintf(&markdownBuilder, "%d images, %d folders, %d evaluated\n\n", len(previews), len(folders), len(evaluations))
	if settings != nil && settings.CustomPrompt != nil {
		fmt.Fprintf(&markdownBuilder, "## Prompt\n%s\n\n", quote(*settings.CustomPrompt))
	}

	h := workspace.BuildHierarchy(previews, folders)
	writeGroup := func(title string, names []string) {
		fmt.Fprintf(&markdownBuilder, "## %s\n\n", title)
		if len(names) == 0 {
			fmt.Fprintf(&markdownBuilder, "_Empty._\n\n")
			return
		}
		for _, name := range names {
			s.writeImage(&markdownBuilder, project, byName[name], evals)
		}
	}
	writeGroup("Root", h.Root)
	for _, group := range h.Folders {
		writeGroup(escapeMarkdown(group.Name), group.Images)
	}
	s.render(w, TemplateContent{Title: project, Content: markdownBuilder.String()})
}

func (s *Server) writeImage(b *strings.Builder, project string, p domain.ImagePreview, evals map[string]domain.Evaluation) {
	fmt.Fprintf(b, "### [![](%s)](%s) %s\n", assetURL("thumb", project, p.Name), assetURL("image", project, p.Name), escapeMarkdown(p.Name))
	fmt.Fprintf(b, "%dx%d, %d bytes\n\n", p.Width, p.Height, p.SizeBytes)
	e, ok := evals[p.Name]
	switch {
	case !ok:
		fmt.Fprintf(b, "_Not evaluated._\n\n")
	case e.FailReason != nil:
		fmt.Fprintf(b, "**Evaluation failed:** %s\n\n", escapeMarkdown(*e.FailReason))
	case e.Result != nil:
		fmt.Fprintf(b, "%s\n\n", quote(stringOr(e.Result.BriefDescription, "(No description provided)")))
		if e.Result.SuggestedSuffix != nil {
			fmt.Fprintf(b, "Suffix: `%s`\n\n", strings.ReplaceAll(*e.Result.SuggestedSuffix, "`", ""))
		}
	}
}

func (s *Server) handleThumbnail(w http.ResponseWriter, r *http.Request) {
	project, name, ok := assetPath(r.URL.Path)
	if !ok {
		http.NotFoundHandler().ServeHTTP(w, r)
		return
	}
	previews, err := s.source.ListPreviews(r.Context(), project)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	for _, p := range previews {
		if p.Name == name {
			w.Header().Set("Content-Type", "image/jpeg")
			w.Write(p.Thumbnail)
			return
		}
	}
	http.NotFoundHandler().ServeHTTP(w, r)
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	project, name, ok := assetPath(r.URL.Path)
	if !ok {
		http.NotFoundHandler().ServeHTTP(w, r)
		return
	}
	full, err := s.source.LoadFull(r.Context(), project, name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(full.Data))
	w.Write(full.Data)
}

// assetPath splits /kind/project/name where name may hold a folder prefix.
func assetPath(path string) (project, name string, ok bool) {
	itemPath := pathParts(path)
	if len(itemPath) < 3 || len(itemPath) > 4 {
		return "", "", false
	}
	return itemPath[1], strings.Join(itemPath[2:], domain.NameSeparator), true
}

func (s *Server) render(w http.ResponseWriter, content TemplateContent) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := ExecTemplate(w, content); err != nil {
		s.log.Error("while rendering page", zap.String("title", content.Title), zap.Error(err))
	}
}
