// Command pdftrans translates the text of a PDF while keeping its layout.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"pdf-layout-translator/internal/config"
	"pdf-layout-translator/internal/errors"
	"pdf-layout-translator/internal/fonts"
	"pdf-layout-translator/internal/layout"
	"pdf-layout-translator/internal/logger"
	"pdf-layout-translator/internal/models"
	"pdf-layout-translator/internal/paragraph"
	"pdf-layout-translator/internal/pdf"
	"pdf-layout-translator/internal/reflow"
	"pdf-layout-translator/internal/synth"
	"pdf-layout-translator/internal/translator"
	"pdf-layout-translator/internal/types"
)

// measureCacheSize bounds the text width cache shared by all pages.
const measureCacheSize = 4096

type options struct {
	input      string
	output     string
	configPath string
	reflow     bool
	source     string
	target     string
	workers    int
	service    string
	debug      bool
	noTrans    bool
}

func main() {
	var opts options
	flag.StringVar(&opts.output, "o", "", "output PDF (default: <input>_<lang>.pdf)")
	flag.StringVar(&opts.configPath, "config", "", "config file (default: ~/.config/pdf-layout-translator/)")
	flag.BoolVar(&opts.reflow, "reflow", false, "re-typeset text blocks on new pages instead of keeping glyph positions")
	flag.StringVar(&opts.source, "s", "", "source language")
	flag.StringVar(&opts.target, "t", "", "target language")
	flag.IntVar(&opts.workers, "workers", 0, "paragraphs translated concurrently per page")
	flag.StringVar(&opts.service, "service", "", "translation backend: openai or http")
	flag.BoolVar(&opts.debug, "debug", false, "debug logging; outlines blocks in reflow mode")
	flag.BoolVar(&opts.noTrans, "identity", false, "skip the backend and copy text unchanged")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: pdftrans [flags] <input.pdf>\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	opts.input = flag.Arg(0)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	cm, err := config.NewConfigManager(opts.configPath)
	if err != nil {
		return err
	}
	if err := cm.Load(); err != nil {
		return err
	}
	cfg := cm.GetConfig()
	applyFlags(cfg, opts)

	logCfg := logger.DefaultConfig()
	logCfg.Level = logger.ParseLevel(cfg.LogLevel)
	logCfg.EnableConsole = true
	logCfg.LogFilePath = ""
	if err := logger.Init(logCfg); err != nil {
		return err
	}
	defer logger.Close()

	if opts.output == "" {
		ext := filepath.Ext(opts.input)
		opts.output = strings.TrimSuffix(opts.input, ext) + "_" + cfg.TargetLang + ".pdf"
	}

	tr, err := newTranslator(ctx, cm, opts.noTrans)
	if err != nil {
		return err
	}

	dcfg := dispatcherConfig(cm, tr, opts.noTrans)
	if dcfg.Cache != nil {
		if err := dcfg.Cache.Load(); err != nil {
			logger.Warn("translation cache unreadable, starting empty", logger.Err(err))
		}
		defer func() {
			if err := dcfg.Cache.Save(); err != nil {
				logger.Error("failed to save translation cache", err)
			}
		}()
	}
	dispatcher := translator.NewDispatcher(dcfg)

	fallback, err := fonts.LoadTrueTypeFace(cfg.FallbackFontPath)
	if err != nil {
		return err
	}
	measurer := fonts.NewMeasurer(fonts.NewCache(measureCacheSize))

	failures, err := errors.NewErrorManager(opts.output + ".failures.json")
	if err != nil {
		return types.NewAppError(types.ErrInternal, "failed to create failure report", err)
	}

	fmt.Printf("Input:   %s\n", opts.input)
	fmt.Printf("Output:  %s\n", opts.output)
	fmt.Printf("Service: %s (%s -> %s)\n", dcfg.Service, cfg.SourceLang, cfg.TargetLang)
	fmt.Println()

	progress := func(completed, total int) {
		fmt.Printf("\rpage %d/%d", completed, total)
		if completed == total {
			fmt.Println()
		}
	}

	var report *pdf.Report
	if opts.reflow {
		r := reflow.New(measurer)
		r.LineSpacing = cfg.LineSpacing
		r.MinSize = cfg.MinFontSize
		r.MaxIter = cfg.ReflowMaxIter
		r.Debug = cfg.Debug
		if h, err := reflow.LoadHyphenator(cfg.HyphenationDir, cfg.TargetLang); err != nil {
			logger.Warn("hyphenation patterns unavailable, splitting between characters", logger.Err(err))
		} else {
			r.Hyphenator = h
		}

		b, err := pdf.NewReflowBuilder(pdf.ReflowConfig{
			Dispatcher: dispatcher,
			Renderer:   r,
			Face:       fallback,
			Failures:   failures,
			Progress:   progress,
		})
		if err != nil {
			return err
		}
		report, err = b.Run(ctx, opts.input, opts.output)
		if err != nil {
			return err
		}
	} else {
		body, err := fonts.NewCoreFace(cfg.BodyFont)
		if err != nil {
			return types.NewAppError(types.ErrFont, "unsupported body font "+cfg.BodyFont, err)
		}
		classes, err := paragraph.NewClassifier(cfg.FormulaFontPattern, "")
		if err != nil {
			return types.NewAppError(types.ErrConfig, "invalid formula font pattern", err)
		}
		grouping := paragraph.DefaultOptions()
		grouping.Classifier = classes

		tcfg := pdf.TranscoderConfig{
			Dispatcher: dispatcher,
			Resolver:   fonts.NewResolver(body, fallback),
			Measurer:   measurer,
			LineHeight: synth.LineHeight(cfg.TargetLang),
			Grouping:   grouping,
			Failures:   failures,
			Progress:   progress,
		}
		if cfg.LayoutModelPath != "" {
			classifier, rasterizer, err := newLayoutModel(cfg)
			if err != nil {
				logger.Warn("layout model unavailable, grouping without regions", logger.Err(err))
			} else {
				defer classifier.Close()
				tcfg.Classifier = classifier
				tcfg.Rasterizer = rasterizer
			}
		}

		t, err := pdf.NewTranscoder(tcfg)
		if err != nil {
			return err
		}
		report, err = t.Run(ctx, opts.input, opts.output)
		if err != nil {
			return err
		}
	}

	printReport(report)
	return nil
}

func applyFlags(cfg *types.Config, opts options) {
	if opts.source != "" {
		cfg.SourceLang = opts.source
	}
	if opts.target != "" {
		cfg.TargetLang = opts.target
	}
	if opts.workers > 0 {
		cfg.Workers = opts.workers
	}
	if opts.service != "" {
		cfg.Service = opts.service
	}
	if opts.debug {
		cfg.Debug = true
		cfg.LogLevel = "debug"
	}
}

// identityService names the pass-through backend in output and logs.
const identityService = "identity"

// dispatcherConfig builds the dispatcher settings for backend tr. Identity
// runs never touch the translation cache: their output is the source text.
func dispatcherConfig(cm *config.ConfigManager, tr translator.Translator, identity bool) translator.DispatcherConfig {
	cfg := cm.GetConfig()
	dcfg := translator.DispatcherConfig{
		Translator:  tr,
		SourceLang:  cfg.SourceLang,
		TargetLang:  cfg.TargetLang,
		Workers:     cm.GetWorkers(),
		MaxAttempts: cm.GetMaxAttempts(),
		RetryDelay:  cm.GetRetryDelay(),
		Validate:    synth.ValidateTranslation,
		Service:     cfg.Service,
		Model:       cm.GetModel(),
	}
	if identity {
		dcfg.Service, dcfg.Model = identityService, ""
		return dcfg
	}
	if cfg.CachePath != "" {
		dcfg.Cache = translator.NewCache(cfg.CachePath)
	}
	return dcfg
}

func newTranslator(ctx context.Context, cm *config.ConfigManager, identity bool) (translator.Translator, error) {
	if identity {
		return translator.Identity, nil
	}
	cfg := cm.GetConfig()
	switch cfg.Service {
	case "openai":
		return translator.NewOpenAITranslator(ctx, translator.OpenAIConfig{
			APIKey:  cm.GetAPIKey(),
			BaseURL: cm.GetBaseURL(),
			Model:   cm.GetModel(),
		})
	case "http":
		return translator.NewHTTPTranslator(translator.HTTPConfig{
			Endpoint: cfg.HTTPEndpoint,
			APIKey:   cm.GetAPIKey(),
			Model:    cm.GetModel(),
		})
	}
	return nil, types.NewAppError(types.ErrConfig, fmt.Sprintf("unknown translation service %q", cfg.Service), nil)
}

// layoutDPI is the raster resolution fed to the region classifier.
const layoutDPI = 144

func newLayoutModel(cfg *types.Config) (*layout.ONNXClassifier, *layout.PageRenderer, error) {
	rasterizer, err := layout.NewPageRenderer(layoutDPI)
	if err != nil {
		return nil, nil, err
	}
	cacheDir := ""
	if dir, err := os.UserCacheDir(); err == nil {
		cacheDir = filepath.Join(dir, "pdf-layout-translator", "models")
	}
	modelPath, err := models.Resolve(cfg.LayoutModelPath, cacheDir)
	if err != nil {
		return nil, nil, err
	}
	classifier, err := layout.NewONNXClassifier(layout.ONNXConfig{
		ModelPath:   modelPath,
		LibraryPath: cfg.ONNXRuntimePath,
		Confidence:  cfg.LayoutConfidence,
	})
	if err != nil {
		return nil, nil, err
	}
	return classifier, rasterizer, nil
}

func printReport(r *pdf.Report) {
	fmt.Printf("Pages:      %d\n", r.Pages)
	fmt.Printf("Translated: %d\n", r.Translated)
	fmt.Printf("Duration:   %s\n", r.Duration.Round(time.Millisecond))
	if len(r.Failures) == 0 {
		return
	}
	fmt.Printf("Failed:     %d\n", len(r.Failures))
	for _, f := range r.Failures {
		fmt.Printf("  page %d [%s] %s\n", f.Page+1, errors.GetStageDisplayName(f.Stage), f.ErrorMsg)
	}
}
