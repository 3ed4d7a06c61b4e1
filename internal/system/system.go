package system

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

// InputExtensions lists the file types accepted as slide sources
var InputExtensions = []string{".pdf", ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp", ".tga"}

// ImageExtensions is InputExtensions without documents
var ImageExtensions = InputExtensions[1:]

func InitResourceLimits() {
	var rLimit syscall.Rlimit
	err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		log.Printf("[!] Не удалось получить лимит файлов: %v", err)
		return
	}

	rLimit.Cur = 2048
	if rLimit.Cur > rLimit.Max {
		rLimit.Cur = rLimit.Max
	}

	err = syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		log.Printf("[!] Не удалось установить лимит файлов: %v", err)
	} else {
		fmt.Printf("[*] Системный лимит открытых файлов увеличен до %d\n", rLimit.Cur)
	}
}

// HasExtension reports whether name ends with one of exts (case-insensitive)
func HasExtension(name string, exts []string) bool {
	lower := strings.ToLower(name)
	for _, ext := range exts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// FindLatestFile returns the most recently modified file in dir whose name
// ends with one of exts.
func FindLatestFile(dir string, exts []string) (string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var latestFile string
	var latestTime time.Time

	for _, f := range files {
		if f.IsDir() || !HasExtension(f.Name(), exts) {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(latestTime) {
			latestTime = info.ModTime()
			latestFile = filepath.Join(dir, f.Name())
		}
	}

	if latestFile == "" {
		return "", fmt.Errorf("в папке %s не найдено подходящих файлов (%s)", dir, strings.Join(exts, ", "))
	}

	return latestFile, nil
}

// FindLatestInput ищет самый свежий PDF или изображение в папке
func FindLatestInput(dir string) (string, error) {
	return FindLatestFile(dir, InputExtensions)
}

// OutputBaseName derives a file-system friendly base name from an input path
func OutputBaseName(inputPath string) string {
	baseName := filepath.Base(inputPath)
	nameOnly := strings.TrimSuffix(baseName, filepath.Ext(baseName))
	return strings.ReplaceAll(nameOnly, " ", "_")
}
