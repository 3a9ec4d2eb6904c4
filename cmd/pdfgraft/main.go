// pdfgraft is a command-line tool that makes scanned PDFs searchable by
// grafting an invisible, positionally accurate text layer onto each page
// while leaving the original page content untouched.
//
// Usage:
//
//	pdfgraft -in scanned.pdf -out searchable.pdf [options]
//
// Required flags:
//
//	-in string        Input PDF path
//	-out string       Output PDF path
//
// Recognition options:
//
//	-engine string    Recognition engine: tesseract, docai, or fake (default tesseract)
//	-langs string     Language hints, plus-separated (e.g. eng+deu)
//	-dpi int          Recognition raster resolution (default 300)
//
// Normalization options (recognition-time only, the stored pages are never altered):
//
//	-deskew           Estimate and undo page skew before recognition
//	-despeckle        Remove isolated noise pixels before recognition
//	-crop             Trim empty borders before recognition
//
// Processing options:
//
//	-force            Reprocess pages that already carry a text layer
//	-workers int      Worker pool size (default: number of CPUs)
//	-page-timeout duration  Per-page deadline (default 3m)
//	-abort-on-failure Escalate any page failure to a document-fatal abort
//	-on-invalid string  Policy when output validation fails: abort or emit (default abort)
//
// Output options:
//
//	-sidecar string   Write linearized recognition text to this path
//	-hocr string      Write an hOCR sidecar to this path
//	-report string    Write the JSON run report to this path
//	-overwrite        Overwrite the output PDF if it exists
//
// Exit codes: 0 on full success, 1 on a document-fatal error, 2 when the
// document was produced but some pages failed.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/halldor/pdfgraft/pkg/assemble"
	"github.com/halldor/pdfgraft/pkg/ocr"
	"github.com/halldor/pdfgraft/pkg/pdfgraft"
	"github.com/halldor/pdfgraft/pkg/pipeline"
	"github.com/halldor/pdfgraft/pkg/raster"
)

const (
	exitOK           = 0
	exitFatal        = 1
	exitPageFailures = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	inPath := flag.String("in", "", "Input PDF path")
	outPath := flag.String("out", "", "Output PDF path")
	engineName := flag.String("engine", "tesseract", "Recognition engine: tesseract, docai, or fake")
	langs := flag.String("langs", "", "Language hints, plus-separated (e.g. eng+deu)")
	dpi := flag.Int("dpi", 0, "Recognition raster resolution")
	deskew := flag.Bool("deskew", false, "Deskew pages before recognition")
	despeckle := flag.Bool("despeckle", false, "Despeckle pages before recognition")
	crop := flag.Bool("crop", false, "Trim empty borders before recognition")
	force := flag.Bool("force", false, "Reprocess pages that already carry a text layer")
	workers := flag.Int("workers", 0, "Worker pool size (default: number of CPUs)")
	pageTimeout := flag.Duration("page-timeout", 0, "Per-page processing deadline")
	abortOnFailure := flag.Bool("abort-on-failure", false, "Escalate any page failure to a document-fatal abort")
	onInvalid := flag.String("on-invalid", "abort", "Policy when output validation fails: abort or emit")
	sidecarPath := flag.String("sidecar", "", "Write linearized recognition text to this path")
	hocrPath := flag.String("hocr", "", "Write an hOCR sidecar to this path")
	reportPath := flag.String("report", "", "Write the JSON run report to this path")
	configPath := flag.String("config", "", "YAML config file")
	overwrite := flag.Bool("overwrite", false, "Overwrite the output PDF if it exists")
	debug := flag.Bool("debug", false, "Render the text layer visibly and log page states")
	quiet := flag.Bool("quiet", false, "Suppress progress output")
	flag.Parse()

	if *inPath == "" || *outPath == "" {
		fmt.Fprintln(os.Stderr, "Error: must provide -in and -out paths")
		return exitFatal
	}
	if _, err := os.Stat(*outPath); err == nil && !*overwrite {
		fmt.Fprintf(os.Stderr, "Output file %s already exists. Use -overwrite to overwrite.\n", *outPath)
		return exitFatal
	}

	level := zerolog.InfoLevel
	if *debug {
		level = zerolog.DebugLevel
	}
	if *quiet {
		level = zerolog.WarnLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).With().Timestamp().Logger()

	cfg := pipeline.DefaultConfig()
	cfg.Log = log
	if *configPath != "" {
		fc, err := pipeline.LoadFileConfig(*configPath)
		if err != nil {
			log.Error().Err(err).Msg("cannot load config file")
			return exitFatal
		}
		cfg, err = fc.Apply(cfg)
		if err != nil {
			log.Error().Err(err).Msg("bad config file")
			return exitFatal
		}
		if *engineName == "tesseract" && fc.Engine != "" {
			*engineName = fc.Engine
		}
	}

	if *langs != "" {
		cfg.Languages = strings.Split(*langs, "+")
	}
	if *dpi > 0 {
		cfg.DPI = *dpi
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}
	if *pageTimeout > 0 {
		cfg.PageTimeout = *pageTimeout
	}
	cfg.Deskew = cfg.Deskew || *deskew
	cfg.Despeckle = cfg.Despeckle || *despeckle
	cfg.CropMargins = cfg.CropMargins || *crop
	cfg.Force = cfg.Force || *force
	cfg.AbortOnFailure = cfg.AbortOnFailure || *abortOnFailure
	cfg.Debug = *debug
	if *onInvalid != "" {
		policy, err := pipeline.ParseInvalidPolicy(*onInvalid)
		if err != nil {
			log.Error().Err(err).Msg("bad -on-invalid value")
			return exitFatal
		}
		cfg.OnInvalid = policy
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := buildEngine(ctx, *engineName, *configPath)
	if err != nil {
		log.Error().Err(err).Msg("cannot initialize recognition engine")
		return exitFatal
	}
	cfg.Engine = engine

	input, err := os.ReadFile(*inPath)
	if err != nil {
		log.Error().Err(err).Msg("cannot read input PDF")
		return exitFatal
	}

	// Progress bar fed from completed-page callbacks.
	var bars *mpb.Progress
	var bar *mpb.Bar
	if !*quiet {
		if src, err := raster.OpenBytes(input); err == nil {
			total := src.PageCount()
			src.Close()
			bars = mpb.New(mpb.WithWidth(48), mpb.WithOutput(os.Stderr))
			bar = bars.AddBar(int64(total),
				mpb.PrependDecorators(decor.Name("pages "), decor.CountersNoUnit("%d / %d")),
				mpb.AppendDecorators(decor.Percentage()),
			)
			cfg.OnPage = func(pipeline.Outcome) { bar.Increment() }
		}
	}

	result, runErr := pdfgraft.Process(ctx, input, cfg)
	if bars != nil {
		bar.Abort(false)
		bars.Wait()
	}

	if result != nil && *reportPath != "" && result.Report != nil {
		result.Report.Input = *inPath
		result.Report.Output = *outPath
		if err := result.Report.WriteJSON(*reportPath); err != nil {
			log.Warn().Err(err).Msg("cannot write report")
		}
	}

	if runErr != nil {
		var vErr *pipeline.ValidationError
		if errors.As(runErr, &vErr) {
			log.Error().Strs("violations", vErr.Violations).Msg("output validation failed, no document emitted")
		} else {
			log.Error().Err(runErr).Msg("document-fatal error")
		}
		return exitFatal
	}

	if err := os.WriteFile(*outPath, result.PDF, 0o644); err != nil {
		log.Error().Err(err).Msg("cannot write output PDF")
		return exitFatal
	}

	if *sidecarPath != "" {
		if err := assemble.WriteSidecarText(*sidecarPath, result.Outcomes); err != nil {
			log.Warn().Err(err).Msg("cannot write text sidecar")
		}
	}
	if *hocrPath != "" {
		if err := assemble.WriteSidecarHOCR(*hocrPath, result.Outcomes, engine.Name()); err != nil {
			log.Warn().Err(err).Msg("cannot write hOCR sidecar")
		}
	}

	rep := result.Report
	log.Info().
		Int("succeeded", rep.Succeeded).
		Int("skipped", rep.Skipped).
		Int("failed", rep.Failed).
		Str("output", *outPath).
		Msg("document written")
	for _, warning := range rep.Warnings {
		log.Warn().Msg(warning)
	}

	if rep.Failed > 0 {
		return exitPageFailures
	}
	return exitOK
}

// buildEngine constructs the selected recognition engine.
func buildEngine(ctx context.Context, name, configPath string) (ocr.Engine, error) {
	switch name {
	case "tesseract":
		return ocr.NewTesseract(), nil
	case "docai":
		if configPath == "" {
			return nil, fmt.Errorf("the docai engine needs a -config file with project, location, and processor")
		}
		fc, err := pipeline.LoadFileConfig(configPath)
		if err != nil {
			return nil, err
		}
		return ocr.NewDocAI(ctx, fc.DocAI)
	case "fake":
		return ocr.NewFake(), nil
	default:
		return nil, fmt.Errorf("unknown engine %q (want tesseract, docai, or fake)", name)
	}
}
