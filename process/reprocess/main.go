// Command reprocess retries failed upload records. It can run a one-shot
// sweep over the upload directory or keep watching it for files landing
// there (for example after restoring a backup of the uploads volume).
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"docsum/models"
	"docsum/pkg/extract"
	"docsum/pkg/summarize"

	"github.com/fsnotify/fsnotify"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var (
	db         *gorm.DB
	summarizer *summarize.Client
	dry        bool
)

func mustDBFromEnv() *gorm.DB {
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN not set in env")
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	return gdb
}

func main() {
	dir := flag.String("dir", defaultDir(), "upload directory to scan")
	watch := flag.Bool("watch", false, "keep watching the directory for new files")
	flag.BoolVar(&dry, "dry", false, "only print proposed changes")
	flag.Parse()

	apiKey := os.Getenv("GROQ_API_KEY")
	if apiKey == "" {
		log.Fatal("GROQ_API_KEY not set in env")
	}
	summarizer = summarize.New(apiKey)
	db = mustDBFromEnv()

	if err := sweep(*dir); err != nil {
		log.Fatalf("sweep: %v", err)
	}
	if *watch {
		if err := watchDir(*dir); err != nil {
			log.Fatalf("watch: %v", err)
		}
	}
}

func defaultDir() string {
	if v := os.Getenv("UPLOAD_BASE"); v != "" {
		return v
	}
	return "uploads"
}

// sweep retries every failed record whose stored file is still present in dir.
func sweep(dir string) error {
	var failed []models.UploadedFile
	if err := db.Where("status = ?", models.StatusFailed).Find(&failed).Error; err != nil {
		return fmt.Errorf("query failed records: %w", err)
	}
	log.Printf("found %d failed upload records", len(failed))
	for i := range failed {
		rec := &failed[i]
		full := filepath.Join(dir, rec.Filename)
		if _, err := os.Stat(full); err != nil {
			log.Printf("skip upload %d: file %s missing", rec.ID, rec.Filename)
			continue
		}
		retryRecord(rec, full)
	}
	return nil
}

// retryRecord re-runs extraction and summarization for one failed record.
func retryRecord(rec *models.UploadedFile, full string) {
	if dry {
		fmt.Printf("DRY: would reprocess upload id=%d file=%s reason=%q\n", rec.ID, rec.Filename, rec.FailedReason)
		return
	}
	text, err := extract.Extract(full)
	if err != nil {
		log.Printf("upload %d still failing extraction: %v", rec.ID, err)
		return
	}
	if strings.TrimSpace(text) == "" {
		log.Printf("upload %d still has no extractable text", rec.ID)
		return
	}
	summary, err := summarizer.Summarize(context.Background(), text)
	if err != nil {
		log.Printf("upload %d still failing summarization: %v", rec.ID, err)
		return
	}
	err = db.Model(rec).Updates(map[string]any{
		"extracted_text":  text,
		"summarized_text": summary,
		"status":          models.StatusCompleted,
		"failed_reason":   "",
	}).Error
	if err != nil {
		log.Printf("failed to update upload %d: %v", rec.ID, err)
		return
	}
	fmt.Printf("reprocessed upload id=%d file=%s\n", rec.ID, rec.Filename)
}

// watchDir retries matching failed records as files appear in dir. Events are
// debounced so half-written files settle before processing.
func watchDir(dir string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return err
	}
	log.Printf("Watching %s (debounced) ...", dir)

	pending := map[string]time.Time{}
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create == fsnotify.Create || ev.Op&fsnotify.Write == fsnotify.Write {
				name := filepath.Base(ev.Name)
				if !extract.IsAllowed(name) {
					continue
				}
				pending[name] = time.Now()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Printf("watcher error: %v", err)
		case <-ticker.C:
			for name, t := range pending {
				if time.Since(t) < time.Second {
					continue
				}
				delete(pending, name)
				var rec models.UploadedFile
				if err := db.Where("filename = ? AND status = ?", name, models.StatusFailed).First(&rec).Error; err != nil {
					continue
				}
				retryRecord(&rec, filepath.Join(dir, name))
			}
		}
	}
}
