package engine

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ivlev/slidefix/internal/analyzer"
	"github.com/ivlev/slidefix/internal/brush"
	"github.com/ivlev/slidefix/internal/config"
	"github.com/ivlev/slidefix/internal/export"
	"github.com/ivlev/slidefix/internal/inpaint"
	"github.com/ivlev/slidefix/internal/renderer"
	"github.com/ivlev/slidefix/internal/script"
	"github.com/ivlev/slidefix/internal/source"
	"github.com/ivlev/slidefix/internal/system"
)

// Project edits every page of a source and exports the results
type Project struct {
	Config    *config.Config
	Source    *source.PageCache
	Inpainter inpaint.Inpainter
	Encoder   export.Encoder
	Detector  analyzer.Detector // used by AutoDetect and GenerateScript
	Script    *script.Script

	pipeline *inpaint.Pipeline
}

// Report summarizes a finished run
type Report struct {
	Pages         int
	Outputs       []string // exported file per page index
	Regions       int      // regions sent to the inpainter
	FailedRegions int
	ScriptPath    string // set when a script was generated

	RenderTime time.Duration
	EditTime   time.Duration
	TotalTime  time.Duration
}

type renderResult struct {
	Index int
	Image image.Image
}

func NewProject(cfg *config.Config, src source.Source, in inpaint.Inpainter, enc export.Encoder) *Project {
	cache, ok := src.(*source.PageCache)
	if !ok {
		cache = source.NewPageCache(src)
	}

	pipeline := inpaint.NewPipeline(in)
	pipeline.Concurrency = cfg.InpaintWorkers
	pipeline.Padding = cfg.Padding

	return &Project{
		Config:    cfg,
		Source:    cache,
		Inpainter: in,
		Encoder:   enc,
		pipeline:  pipeline,
	}
}

func (p *Project) Run(ctx context.Context) (*Report, error) {
	startTime := time.Now()

	pageCount := p.Source.PageCount()
	if pageCount == 0 {
		return nil, fmt.Errorf("источник не содержит страниц")
	}

	if p.Config.GenerateScript {
		path, err := p.GenerateScript(ctx)
		if err != nil {
			return nil, err
		}
		return &Report{Pages: pageCount, ScriptPath: path, TotalTime: time.Since(startTime)}, nil
	}

	if p.Script == nil && p.Config.ScriptPath != "" {
		// "latest" pairs with the output of -generate-script
		path, err := script.ResolvePath(p.Config.ScriptPath, script.DefaultDir)
		if err != nil {
			return nil, fmt.Errorf("ошибка поиска скрипта: %w", err)
		}
		s, err := script.ReadScript(path)
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения скрипта: %w", err)
		}
		p.Script = s
		fmt.Printf("[*] Используется скрипт правок: %s\n", path)
	}

	if p.Config.AutoDetect && p.Detector == nil {
		det, err := NewDetector(p.Config)
		if err != nil {
			return nil, err
		}
		p.Detector = det
		defer analyzer.Close(det)
	}

	dpi := p.Config.DPI
	if p.Script != nil && p.Script.DPI > 0 && p.Script.DPI != dpi {
		// Script coordinates refer to the raster they were made on
		fmt.Printf("[!] DPI скрипта (%d) отличается от заданного (%d), используется DPI скрипта\n", p.Script.DPI, dpi)
		dpi = p.Script.DPI
	}

	maxPixels := p.Config.MaxPagePixels
	if maxPixels <= 0 {
		maxPixels = system.MaxCanvasPixels(4096 * 4096)
	}

	fmt.Println("--- [PROJECT: SLIDE EDITOR] ---")
	fmt.Printf("[*] Источник: %s | Страниц: %d\n", p.Config.InputPath, pageCount)
	fmt.Printf("[*] DPI: %d | Формат: %s | Каталог: %s\n", dpi, p.Encoder.Ext(), p.Config.OutputDir)
	fmt.Println("-------------------------------")

	if err := os.MkdirAll(p.Config.OutputDir, 0755); err != nil {
		return nil, err
	}
	base := system.OutputBaseName(p.Config.InputPath)

	// jobs -> renderPool -> rendered -> editPool -> results
	jobs := make(chan int, pageCount)
	rendered := make(chan *renderResult, pageCount)
	results := make([]string, pageCount)

	var regions, failed atomic.Int64
	var wgRender, wgEdit sync.WaitGroup

	// 1. Render pool (CPU bound)
	numRenderWorkers := min(max(1, p.Config.Workers), pageCount)
	for w := 0; w < numRenderWorkers; w++ {
		wgRender.Add(1)
		go func() {
			defer wgRender.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					continue
				}
				// Skip oversized pages before MuPDF allocates them
				if w, h, err := source.PixelSize(p.Source, i, dpi); err == nil && w*h > maxPixels {
					log.Printf("[!] Page %d is too large (%dx%d), limit %d pixels", i, w, h, maxPixels)
					continue
				}
				img, err := p.Source.RenderPage(i, dpi)
				if err != nil {
					log.Printf("[!] Error rendering page %d: %v", i, err)
					continue
				}
				if b := img.Bounds(); b.Dx()*b.Dy() > maxPixels {
					log.Printf("[!] Page %d is too large (%dx%d), limit %d pixels", i, b.Dx(), b.Dy(), maxPixels)
					p.Source.Invalidate(i)
					continue
				}
				rendered <- &renderResult{Index: i, Image: img}
			}
		}()
	}

	// 2. Edit pool. Each page already fans out to InpaintWorkers requests,
	// so only a few pages are edited at once.
	numEditWorkers := min(max(1, p.Config.EditWorkers), pageCount)
	for w := 0; w < numEditWorkers; w++ {
		wgEdit.Add(1)
		go func() {
			defer wgEdit.Done()
			for res := range rendered {
				i := res.Index
				canvas, stats := p.EditPage(ctx, i, res.Image)
				p.Source.Invalidate(i)
				regions.Add(int64(stats.Regions))
				failed.Add(int64(stats.Failed))

				if ctx.Err() != nil {
					continue
				}

				path := export.PagePath(p.Config.OutputDir, base, i, p.Encoder.Ext())
				if err := export.WritePage(p.Encoder, path, canvas); err != nil {
					log.Printf("[!] Error writing page %d: %v", i, err)
					continue
				}

				results[i] = path
				fmt.Printf("[>] Ready: %d/%d\n", i+1, pageCount)
			}
		}()
	}

	renderStart := time.Now()
	for i := 0; i < pageCount; i++ {
		jobs <- i
	}
	close(jobs)

	wgRender.Wait()
	renderEnd := time.Now()
	close(rendered)

	wgEdit.Wait()
	editEnd := time.Now()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for i, r := range results {
		if r == "" {
			return nil, fmt.Errorf("страница %d не была сохранена. Проверьте логи", i)
		}
	}

	report := &Report{
		Pages:         pageCount,
		Outputs:       results,
		Regions:       int(regions.Load()),
		FailedRegions: int(failed.Load()),
		RenderTime:    renderEnd.Sub(renderStart),
		EditTime:      editEnd.Sub(renderStart),
		TotalTime:     time.Since(startTime),
	}

	if report.FailedRegions > 0 {
		fmt.Printf("[!] Не удалось очистить областей: %d из %d\n", report.FailedRegions, report.Regions)
	}

	if p.Config.ShowStats {
		p.printStats(report)
	}

	return report, nil
}

// PageStats counts the regions handled on one page
type PageStats struct {
	Regions int
	Failed  int
}

// EditPage applies the page's edits to a copy of img: regions are inpainted
// first, then replacement text is drawn on top.
func (p *Project) EditPage(ctx context.Context, index int, img image.Image) (*image.RGBA, PageStats) {
	canvas := renderer.ToRGBA(img)
	edits := p.Script.PageEdits(index)

	var stats PageStats
	rects := p.pageRegions(canvas, edits)
	if len(rects) > 0 {
		results := p.pipeline.Run(ctx, canvas, rects)
		stats.Regions = len(results)
		stats.Failed = inpaint.Failed(results)
	}

	if edits == nil {
		return canvas, stats
	}

	for _, r := range edits.Replacements {
		if r.Text == "" {
			continue
		}
		var c color.Color = color.Black
		if r.Color != "" {
			parsed, err := renderer.ParseHexColor(r.Color)
			if err != nil {
				log.Printf("[!] Page %d: %v, using black", index, err)
			} else {
				c = parsed
			}
		}
		if err := renderer.DrawText(canvas, r.Rect, r.Text, c); err != nil {
			log.Printf("[!] Page %d: text %q not drawn: %v", index, r.Text, err)
		}
	}

	return canvas, stats
}

// pageRegions collects every rect to inpaint on a page: brush selections,
// explicit regions and erased replacement rects. Pages without edits are
// scanned by the detector when AutoDetect is on.
func (p *Project) pageRegions(canvas *image.RGBA, edits *script.Page) []analyzer.Rect {
	w, h := canvas.Bounds().Dx(), canvas.Bounds().Dy()

	if edits == nil {
		if !p.Config.AutoDetect || p.Detector == nil {
			return nil
		}
		blocks, err := p.Detector.Detect(canvas)
		if err != nil {
			log.Printf("[!] Ошибка анализа страницы: %v", err)
			return nil
		}
		rects := make([]analyzer.Rect, 0, len(blocks))
		for _, b := range blocks {
			rects = append(rects, analyzer.RectFromImage(b.Rect))
		}
		return rects
	}

	var rects []analyzer.Rect
	if len(edits.Strokes) > 0 {
		// The page override wins; otherwise the configured size is a floor
		// under the brush-derived threshold.
		threshold := edits.MinPixels
		if threshold <= 0 {
			threshold = brush.Threshold(edits.Strokes)
			if threshold > 0 {
				threshold = max(threshold, p.Config.MinPixels)
			}
		}
		if threshold > 0 {
			mask := brush.Rasterize(edits.Strokes, w, h)
			rects = analyzer.ExtractRegions(mask, w, h, threshold)
		}
	}
	rects = append(rects, edits.Regions...)
	for _, r := range edits.Replacements {
		if r.Erase {
			rects = append(rects, r.Rect)
		}
	}
	return rects
}

// GenerateScript detects text on every page and writes an edit script with
// one erase-and-replace entry per block. The returned path is where the
// script was saved.
func (p *Project) GenerateScript(ctx context.Context) (string, error) {
	fmt.Println("[*] Режим генерации скрипта правок...")

	det := p.Detector
	if det == nil {
		var err error
		det, err = NewDetector(p.Config)
		if err != nil {
			return "", err
		}
		defer analyzer.Close(det)
	}

	pageCount := p.Source.PageCount()
	s := &script.Script{
		Version: script.Version,
		Source:  filepath.Base(p.Config.InputPath),
		DPI:     p.Config.DPI,
	}

	for i := 0; i < pageCount; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		fmt.Printf("[*] Анализ страницы %d/%d...\n", i+1, pageCount)

		img, err := p.Source.RenderPage(i, p.Config.DPI)
		if err != nil {
			log.Printf("[!] Ошибка рендеринга страницы %d для анализа: %v", i, err)
			continue
		}

		// Detectors report page coordinates; scripts use raster coordinates
		canvas := renderer.ToRGBA(img)
		blocks, err := det.Detect(canvas)
		if err != nil {
			log.Printf("[!] Ошибка анализа страницы %d: %v", i, err)
			continue
		}
		if len(blocks) == 0 {
			continue
		}

		s.Pages = append(s.Pages, script.PageFromBlocks(i, blocks))
	}

	outputPath := p.Config.ScriptOutput
	if outputPath == "" {
		outputPath = script.GenerateScriptPath(script.DefaultDir)
	}

	if err := script.WriteScript(s, outputPath); err != nil {
		return "", err
	}

	fmt.Printf("[+++] Успех! Скрипт сохранен: %s\n", outputPath)
	return outputPath, nil
}

func (p *Project) printStats(r *Report) {
	mem := system.ReadMemoryStats()
	pps := float64(r.Pages) / r.TotalTime.Seconds()

	report := fmt.Sprintf(
		"--- [PERFORMANCE REPORT] ---\n"+
			"Build: %s\n"+
			"Total Time: %.2fs\n"+
			"Rendering: %.2fs\n"+
			"Editing: %.2fs\n"+
			"Regions: %d (failed %d)\n"+
			"Pages/s: %.2f\n"+
			"Memory: %s\n"+
			"----------------------------\n",
		p.Config.BuildVersion, r.TotalTime.Seconds(), r.RenderTime.Seconds(), r.EditTime.Seconds(),
		r.Regions, r.FailedRegions, pps, mem,
	)
	fmt.Print(report)

	logEntry := fmt.Sprintf("[%s] Build: %s | Input: %s | Pages: %d | Total: %.2fs | Render: %.2fs | Edit: %.2fs | Regions: %d/%d\n",
		time.Now().Format("2006-01-02 15:04:05"),
		p.Config.BuildVersion,
		filepath.Base(p.Config.InputPath),
		r.Pages,
		r.TotalTime.Seconds(),
		r.RenderTime.Seconds(),
		r.EditTime.Seconds(),
		r.Regions-r.FailedRegions,
		r.Regions,
	)

	f, err := os.OpenFile("benchmark.log", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		f.WriteString(logEntry)
		f.Close()
	} else {
		fmt.Printf("[!] Не удалось записать benchmark.log: %v\n", err)
	}
}
