package document

import (
	"context"
	"fmt"

	"github.com/kozaktomas/school-reports/internal/database"
	"github.com/kozaktomas/school-reports/internal/imageinfo"
	"github.com/kozaktomas/school-reports/internal/locale"
	"github.com/rs/zerolog/log"
)

// TemplateResolver looks up the branding applied to an owner's reports.
type TemplateResolver struct {
	templates database.TemplateReader
}

// NewTemplateResolver creates a resolver over templates.
func NewTemplateResolver(templates database.TemplateReader) *TemplateResolver {
	return &TemplateResolver{templates: templates}
}

// Resolve returns the owner's active template, or nil when the owner has none.
// A missing template is not an error.
func (r *TemplateResolver) Resolve(ctx context.Context, ownerID string) (*database.TemplateSettings, error) {
	if r == nil || r.templates == nil || ownerID == "" {
		return nil, nil
	}
	tmpl, err := r.templates.GetActiveTemplate(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("resolve template: %w", err)
	}
	return tmpl, nil
}

// ImageClassifier classifies a batch of image URLs, preserving order.
type ImageClassifier interface {
	ClassifyAll(ctx context.Context, urls []string) []imageinfo.ProcessedImage
}

// Pipeline turns a stored report into a composed Document. Preview, export
// and the CLI all go through Prepare.
type Pipeline struct {
	templates  *TemplateResolver
	classifier ImageClassifier
}

// NewPipeline creates a pipeline.
func NewPipeline(templates *TemplateResolver, classifier ImageClassifier) *Pipeline {
	return &Pipeline{templates: templates, classifier: classifier}
}

// Prepare resolves the template, classifies every image and composes the
// document. Classification completes for all images before composition starts.
func (p *Pipeline) Prepare(ctx context.Context, report *database.Report) (*Document, error) {
	tmpl, err := p.templates.Resolve(ctx, report.OwnerID)
	if err != nil {
		log.Error().Err(err).Str("report_id", report.ID).Msg("failed to prepare report document")
		return nil, err
	}

	images := p.classifier.ClassifyAll(ctx, report.Images)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("classify images: %w", err)
	}

	return Compose(report, images, tmpl, locale.Resolve(report.Language)), nil
}
