package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ivlev/slidefix/internal/config"
	"github.com/ivlev/slidefix/internal/engine"
	"github.com/ivlev/slidefix/internal/export"
	"github.com/ivlev/slidefix/internal/source"
	"github.com/ivlev/slidefix/internal/system"
)

// Set with -ldflags "-X main.buildVersion=..."
var buildVersion = "dev"

func main() {
	// Увеличиваем лимиты системы (для macOS/Linux)
	system.InitResourceLimits()

	// Создаем нужные директории, если их нет
	dirs := []string{"input", "output"}
	for _, d := range dirs {
		os.MkdirAll(d, 0755)
	}

	configPtr := flag.String("config", "", "Путь к YAML конфигурации (флаги имеют приоритет)")
	inputPtr := flag.String("input", "", "Путь к PDF, изображению или папке с изображениями (по умолчанию: самый свежий файл в input/)")
	outputPtr := flag.String("output-dir", "", "Каталог для результатов (по умолчанию: output/)")
	scriptPtr := flag.String("script", "", "Путь к YAML скрипту правок (latest - самый свежий в scripts/)")
	generatePtr := flag.Bool("generate-script", false, "Найти текст на страницах и сохранить скрипт правок вместо обработки")
	scriptOutPtr := flag.String("script-output", "", "Куда сохранить сгенерированный скрипт (по умолчанию: scripts/edits_<время>.yaml)")
	dpiPtr := flag.Int("dpi", 0, "DPI рендеринга PDF (по умолчанию 150)")
	workersPtr := flag.Int("workers", 0, "Потоки рендеринга (по умолчанию: число ядер)")
	formatPtr := flag.String("format", "", "Формат страниц: png, jpeg, webp")
	qualityPtr := flag.Int("quality", 0, "Качество JPEG 1-100 (0 - по умолчанию)")
	detectorPtr := flag.String("detector", "", "Детектор текста: contrast, ocr")
	inpaintURLPtr := flag.String("inpaint-url", "", "URL сервиса удаления текста (пусто - локальная заливка)")
	inpaintKeyPtr := flag.String("inpaint-key", os.Getenv("SLIDEFIX_INPAINT_KEY"), "API ключ сервиса удаления текста")
	minPixelsPtr := flag.Int("min-pixels", 0, "Минимальный размер области в пикселях: порог детектора и нижняя граница порога кисти (по умолчанию 80)")
	autoDetectPtr := flag.Bool("auto-detect", false, "Стирать найденный текст на страницах без правок")
	statsPtr := flag.Bool("stats", false, "Показать отчет о производительности")

	flag.Parse()

	cfg := config.Default()
	if *configPtr != "" {
		loaded, err := config.Load(*configPtr)
		if err != nil {
			log.Fatalf("[-] Ошибка конфигурации: %v", err)
		}
		cfg = loaded
		fmt.Printf("[*] Конфигурация: %s\n", *configPtr)
	}

	cfg.Resolve(config.Flags{
		Input:          *inputPtr,
		OutputDir:      *outputPtr,
		Script:         *scriptPtr,
		ScriptOutput:   *scriptOutPtr,
		GenerateScript: *generatePtr,
		DPI:            *dpiPtr,
		Workers:        *workersPtr,
		MinPixels:      *minPixelsPtr,
		AutoDetect:     *autoDetectPtr,
		Detector:       *detectorPtr,
		InpaintURL:     *inpaintURLPtr,
		InpaintKey:     *inpaintKeyPtr,
		Format:         *formatPtr,
		Quality:        *qualityPtr,
		ShowStats:      *statsPtr,
	})
	cfg.BuildVersion = buildVersion

	if cfg.InputPath == "" {
		latest, err := system.FindLatestInput("input")
		if err != nil {
			log.Fatalf("[-] Ошибка: %v. Положите PDF или изображения в input/", err)
		}
		cfg.InputPath = latest
		fmt.Printf("[*] Выбран файл: %s\n", cfg.InputPath)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("[-] Ошибка конфигурации: %v", err)
	}

	src, err := source.Open(cfg.InputPath)
	if err != nil {
		log.Fatalf("[-] Ошибка инициализации источника: %v", err)
	}
	defer src.Close()

	if src.PageCount() == 0 {
		log.Fatalf("[-] Ошибка: в источнике нет страниц или изображений")
	}

	enc, err := export.NewEncoder(cfg.Format, cfg.Quality)
	if err != nil {
		log.Fatalf("[-] Ошибка: %v", err)
	}

	in := engine.NewInpainter(&cfg)
	if cfg.InpaintURL != "" {
		fmt.Printf("[*] Сервис удаления текста: %s\n", cfg.InpaintURL)
	} else {
		fmt.Println("[*] Удаление текста: локальная заливка")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	project := engine.NewProject(&cfg, src, in, enc)
	report, err := project.Run(ctx)
	if err != nil {
		log.Fatalf("[-] Ошибка проекта: %v", err)
	}

	if report.ScriptPath != "" {
		return
	}
	fmt.Printf("[+++] Успех! Страниц: %d, результат: %s\n", report.Pages, cfg.OutputDir)
}
