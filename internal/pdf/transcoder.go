package pdf

import (
	"context"
	stderrors "errors"
	"image"
	"time"

	"pdf-layout-translator/internal/errors"
	"pdf-layout-translator/internal/fonts"
	"pdf-layout-translator/internal/layout"
	"pdf-layout-translator/internal/logger"
	"pdf-layout-translator/internal/paragraph"
	"pdf-layout-translator/internal/synth"
	"pdf-layout-translator/internal/translator"
)

// Rasterizer renders a page for region classification.
type Rasterizer interface {
	Render(ctx context.Context, pdfPath string, index int) (image.Image, error)
	Scale() float64
}

// TranscoderConfig wires the layout-preserving pipeline.
type TranscoderConfig struct {
	Dispatcher *translator.Dispatcher
	Resolver   *fonts.Resolver
	Measurer   *fonts.Measurer
	// LineHeight of synthesized text; see synth.LineHeight.
	LineHeight float64
	Grouping   paragraph.Options

	// Classifier and Rasterizer are optional; both are needed for masks.
	Classifier layout.Classifier
	Rasterizer Rasterizer

	// Failures receives one record per abandoned page. Optional.
	Failures *errors.ErrorManager
	Progress ProgressCallback
	Logger   logger.Logger
}

// Transcoder runs documents page by page. A page either gets fully
// translated content or keeps its original content.
type Transcoder struct {
	cfg   TranscoderConfig
	synth *synth.Synthesizer
	log   logger.Logger
}

// NewTranscoder validates cfg and fills defaults.
func NewTranscoder(cfg TranscoderConfig) (*Transcoder, error) {
	if cfg.Dispatcher == nil {
		return nil, NewPDFError(ErrTranslateFailed, "transcoder needs a dispatcher", nil)
	}
	if cfg.Resolver == nil || cfg.Resolver.Body == nil {
		return nil, NewPDFError(ErrSynthesizeFailed, "transcoder needs a body font", nil)
	}
	if cfg.Measurer == nil {
		cfg.Measurer = fonts.NewMeasurer(nil)
	}
	if cfg.LineHeight <= 0 {
		cfg.LineHeight = synth.DefaultLineHeight
	}
	if cfg.Grouping == (paragraph.Options{}) {
		cfg.Grouping = paragraph.DefaultOptions()
	}
	if cfg.Failures == nil {
		cfg.Failures, _ = errors.NewErrorManager("")
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}
	return &Transcoder{cfg: cfg, synth: synth.New(), log: cfg.Logger}, nil
}

// Run translates the document at in and writes it to out.
func (t *Transcoder) Run(ctx context.Context, in, out string) (*Report, error) {
	dec, err := OpenDecoder(in)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	sink, err := OpenPageWriter(in)
	if err != nil {
		return nil, err
	}

	report, err := t.Process(ctx, dec, sink, in)
	if err != nil {
		return report, err
	}
	if err := sink.Save(out); err != nil {
		return report, err
	}
	report.OutputPath = out
	t.log.Info("document written",
		logger.String("output", out),
		logger.Int("pages", report.Pages),
		logger.Int("translated", report.Translated),
		logger.Int("failed", len(report.Failures)))
	return report, nil
}

// Process runs every page of dec into sink. source is the document path,
// used for rasterizing. Page failures are recorded, not returned; only
// cancellation stops the run early.
func (t *Transcoder) Process(ctx context.Context, dec layout.Decoder, sink PageSink, source string) (*Report, error) {
	start := time.Now()
	total := dec.NumPages()
	report := &Report{InputPath: source, Pages: total}
	if err := t.cfg.Failures.ClearAll(); err != nil {
		t.log.Warn("failed to reset failure report", logger.Err(err))
	}

	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			report.Failures = t.cfg.Failures.ListErrors()
			report.Duration = time.Since(start)
			return report, NewPDFErrorWithPage(ErrCancelled, "transcoding cancelled", i, err)
		}

		f := t.page(ctx, dec, sink, source, i)
		if f == nil {
			report.Translated++
		} else if stderrors.Is(f.err, context.Canceled) || stderrors.Is(f.err, context.DeadlineExceeded) {
			report.Failures = t.cfg.Failures.ListErrors()
			report.Duration = time.Since(start)
			return report, NewPDFErrorWithPage(ErrCancelled, "transcoding cancelled", i, f.err)
		} else {
			t.log.Error("page abandoned", f.err,
				logger.Page(i),
				logger.Paragraph(f.paragraph),
				logger.String("stage", string(f.stage)),
				logger.Int("attempts", f.attempts))
			if err := t.cfg.Failures.RecordError(i, f.paragraph, f.stage, f.attempts, f.err); err != nil {
				t.log.Warn("failed to persist failure record", logger.Page(i), logger.Err(err))
			}
		}

		if t.cfg.Progress != nil {
			t.cfg.Progress(i+1, total)
		}
	}

	report.Failures = t.cfg.Failures.ListErrors()
	report.Duration = time.Since(start)
	return report, nil
}

// pageFailure is why a page kept its original content.
type pageFailure struct {
	stage     errors.ErrorStage
	paragraph int
	attempts  int
	err       error
}

func fail(stage errors.ErrorStage, err error) *pageFailure {
	return &pageFailure{stage: stage, paragraph: errors.NoParagraph, err: err}
}

func (t *Transcoder) page(ctx context.Context, dec layout.Decoder, sink PageSink, source string, index int) *pageFailure {
	page, err := dec.Decode(ctx, index)
	if err != nil {
		return fail(errors.StageDecode, err)
	}
	if len(page.Glyphs) == 0 {
		t.log.Debug("page has no text, kept as is", logger.Page(index))
		return nil
	}

	mask := t.classify(ctx, source, index)

	res := paragraph.Group(t.cfg.Grouping, page, mask)
	t.log.Debug("page grouped",
		logger.Page(index),
		logger.Int("paragraphs", len(res.Paragraphs)),
		logger.Int("spans", len(res.Spans)),
		logger.Int("furniture", len(res.Furniture)))

	translated, err := t.cfg.Dispatcher.Dispatch(ctx, res.Texts())
	if err != nil {
		f := fail(errors.StageTranslate, NewPDFErrorWithPage(ErrTranslateFailed, "paragraph translation failed", index, err))
		var perr *translator.ParagraphError
		if stderrors.As(err, &perr) {
			f.paragraph = perr.Index
			f.attempts = perr.Attempts
		}
		if ctx.Err() != nil {
			f.err = ctx.Err()
		}
		return f
	}

	pc := synth.NewPageContext(t.cfg.Resolver, t.cfg.Measurer, t.cfg.LineHeight)
	content, err := t.synth.Page(pc, res, translated)
	if err != nil {
		var perr *synth.PlaceholderError
		if stderrors.As(err, &perr) {
			f := fail(errors.StageTranslate, NewPDFErrorWithPage(ErrPlaceholderIntegrity, "translation broke formula placeholders", index, err))
			f.paragraph = perr.Paragraph
			return f
		}
		return fail(errors.StageSynthesize, NewPDFErrorWithPage(ErrSynthesizeFailed, "failed to synthesize page", index, err))
	}

	if err := sink.WritePage(index, pc, page.Graphics, content); err != nil {
		return fail(errors.StageWrite, err)
	}
	t.log.Info("page translated",
		logger.Page(index),
		logger.Int("paragraphs", len(res.Paragraphs)))
	return nil
}

// classify returns the region mask, or nil when no classifier is set or
// it fails; grouping then relies on fonts and geometry alone.
func (t *Transcoder) classify(ctx context.Context, source string, index int) *layout.Mask {
	if t.cfg.Classifier == nil || t.cfg.Rasterizer == nil {
		return nil
	}
	img, err := t.cfg.Rasterizer.Render(ctx, source, index)
	if err == nil {
		var mask *layout.Mask
		mask, err = t.cfg.Classifier.Classify(ctx, img, t.cfg.Rasterizer.Scale())
		if err == nil {
			return mask
		}
	}
	t.log.Warn("region classification failed, continuing without mask",
		logger.Page(index),
		logger.String("stage", string(errors.StageClassify)),
		logger.Err(err))
	return nil
}
