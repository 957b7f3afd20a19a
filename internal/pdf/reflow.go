package pdf

import (
	"context"
	stderrors "errors"
	"time"

	"pdf-layout-translator/internal/errors"
	"pdf-layout-translator/internal/fonts"
	"pdf-layout-translator/internal/logger"
	"pdf-layout-translator/internal/reflow"
	"pdf-layout-translator/internal/translator"
)

// ReflowConfig wires the reflow pipeline.
type ReflowConfig struct {
	Dispatcher *translator.Dispatcher
	Renderer   *reflow.Renderer
	// Face sets all output text; it is embedded in the new document.
	Face     *fonts.TrueTypeFace
	Failures *errors.ErrorManager
	Progress ProgressCallback
	Logger   logger.Logger
}

// ReflowBuilder renders translated text blocks onto new pages instead of
// reusing the original glyph positions.
type ReflowBuilder struct {
	cfg ReflowConfig
	log logger.Logger
}

// NewReflowBuilder validates cfg and fills defaults.
func NewReflowBuilder(cfg ReflowConfig) (*ReflowBuilder, error) {
	if cfg.Dispatcher == nil {
		return nil, NewPDFError(ErrTranslateFailed, "reflow needs a dispatcher", nil)
	}
	if cfg.Face == nil {
		face, err := fonts.LoadTrueTypeFace("")
		if err != nil {
			return nil, err
		}
		cfg.Face = face
	}
	if cfg.Renderer == nil {
		cfg.Renderer = reflow.New(nil)
	}
	if cfg.Failures == nil {
		cfg.Failures, _ = errors.NewErrorManager("")
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}
	return &ReflowBuilder{cfg: cfg, log: cfg.Logger}, nil
}

// Run reflows the document at in into a new document at out. Pages whose
// translation fails are rendered with their original text.
func (b *ReflowBuilder) Run(ctx context.Context, in, out string) (*Report, error) {
	start := time.Now()
	dec, err := OpenDecoder(in)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	surface, err := reflow.NewPDFSurface(b.cfg.Face)
	if err != nil {
		return nil, err
	}
	if err := b.cfg.Failures.ClearAll(); err != nil {
		b.log.Warn("failed to reset failure report", logger.Err(err))
	}

	images, err := ExtractImages(in)
	if err != nil {
		b.log.Warn("images unavailable, reflowing text only", logger.Err(err))
	}

	total := dec.NumPages()
	report := &Report{InputPath: in, Pages: total}
	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			report.Failures = b.cfg.Failures.ListErrors()
			return report, NewPDFErrorWithPage(ErrCancelled, "reflow cancelled", i, err)
		}

		width, height := mediaBox(dec.Reader().Page(i + 1).V)
		surface.AddPage(width, height)

		blocks, texts, err := b.pageBlocks(ctx, dec, i)
		if err == nil {
			var translated []string
			if translated, err = b.Translate(ctx, blocks); err == nil {
				texts = translated
				report.Translated++
			}
		}
		if err != nil {
			if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
				report.Failures = b.cfg.Failures.ListErrors()
				return report, NewPDFErrorWithPage(ErrCancelled, "reflow cancelled", i, err)
			}
			b.record(i, err)
		}

		placed, err := PlaceImages(dec.Reader(), i)
		if err != nil {
			b.log.Warn("image placement failed", logger.Page(i), logger.Err(err))
		}
		blocks = append(placed, blocks...)
		texts = append(make([]string, len(placed)), texts...)

		if _, err := b.cfg.Renderer.RenderBlocks(surface, surface.Face(), Layout(blocks, height, images[i]), texts); err != nil {
			return report, NewPDFErrorWithPage(ErrWriteFailed, "failed to render page", i, err)
		}
		if b.cfg.Progress != nil {
			b.cfg.Progress(i+1, total)
		}
	}

	if err := surface.Save(out); err != nil {
		return report, err
	}
	report.OutputPath = out
	report.Failures = b.cfg.Failures.ListErrors()
	report.Duration = time.Since(start)
	b.log.Info("reflowed document written",
		logger.String("output", out),
		logger.Int("pages", total),
		logger.Int("failed", len(report.Failures)))
	return report, nil
}

// pageBlocks extracts the blocks of one page, back-filling garbled text
// from decoded glyphs. texts holds the untranslated block text.
func (b *ReflowBuilder) pageBlocks(ctx context.Context, dec *LedongthucDecoder, index int) ([]BlockInfo, []string, error) {
	blocks, err := ExtractBlocks(dec.Reader(), index)
	if err != nil {
		return nil, nil, err
	}
	for i := range blocks {
		if blocks[i].Type == BlockText && NeedsBackfill(&blocks[i]) {
			page, err := dec.Decode(ctx, index)
			if err != nil {
				b.log.Warn("back-fill decode failed", logger.Page(index), logger.Err(err))
				break
			}
			n := BackfillText(blocks, page)
			b.log.Debug("blocks back-filled", logger.Page(index), logger.Int("blocks", n))
			break
		}
	}
	return blocks, Originals(blocks), nil
}

// Originals returns block text with line-break hyphenation removed, or ""
// for blocks that are not translated.
func Originals(blocks []BlockInfo) []string {
	out := make([]string, len(blocks))
	for i, bl := range blocks {
		if bl.Type == BlockText {
			out[i] = reflow.CleanHyphenation(bl.Text)
		}
	}
	return out
}

// Translate sends the text blocks through the dispatcher.
func (b *ReflowBuilder) Translate(ctx context.Context, blocks []BlockInfo) ([]string, error) {
	return b.cfg.Dispatcher.Dispatch(ctx, Originals(blocks))
}

// Layout converts blocks to surface coordinates, origin top left. Image
// blocks get their pixels from images; those missing there stay empty.
func Layout(blocks []BlockInfo, pageHeight float64, images PageImages) []reflow.Block {
	out := make([]reflow.Block, len(blocks))
	for i, bl := range blocks {
		out[i] = reflow.Block{
			X:    bl.X0,
			Y:    pageHeight - bl.Y1,
			W:    bl.Width(),
			H:    bl.Height(),
			Text: bl.Text,
			Size: bl.FontSize,
		}
		if bl.Type == BlockImage {
			out[i].Image = images[bl.Image]
		}
	}
	return out
}

func (b *ReflowBuilder) record(index int, err error) {
	paragraph, attempts := errors.NoParagraph, 0
	var perr *translator.ParagraphError
	stage := errors.StageDecode
	if stderrors.As(err, &perr) {
		paragraph, attempts, stage = perr.Index, perr.Attempts, errors.StageTranslate
	}
	b.log.Error("page kept untranslated", err,
		logger.Page(index),
		logger.Paragraph(paragraph),
		logger.String("stage", string(stage)))
	if rerr := b.cfg.Failures.RecordError(index, paragraph, stage, attempts, err); rerr != nil {
		b.log.Warn("failed to persist failure record", logger.Page(index), logger.Err(rerr))
	}
}
