package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"docsum/models"
	"docsum/pkg/extract"
)

// processUpload runs the extract → summarize → persist sequence for one saved
// upload, synchronously, blocking the caller until all steps complete or fail.
// The record is created with status pending and transitioned through
// processing to completed or failed. Failed records are kept (with the on-disk
// file) so process/reprocess can retry them; re-processing the same path twice
// deliberately creates two records.
func processUpload(ctx context.Context, fullPath, storedName, originalName, mimeType string, user *models.User) (*models.UploadedFile, error) {
	info, err := os.Stat(fullPath)
	if err != nil {
		return nil, fmt.Errorf("upload file not found")
	}
	if err := models.ValidateFileSize(info.Size()); err != nil {
		return nil, err
	}

	rec := &models.UploadedFile{
		Filename:         storedName,
		OriginalFilename: originalName,
		FileSize:         info.Size(),
		MimeType:         mimeType,
		UploadedAt:       time.Now().UTC(),
		Status:           models.StatusPending,
		UserID:           user.ID,
	}
	if err := db.Create(rec).Error; err != nil {
		return nil, fmt.Errorf("create upload record: %w", err)
	}

	if err := db.Model(rec).Update("status", models.StatusProcessing).Error; err != nil {
		log.Printf("warning: failed to mark upload %d processing: %v", rec.ID, err)
	}
	rec.Status = models.StatusProcessing

	text, err := extract.Extract(fullPath)
	if err != nil {
		return rec, failUpload(rec, err)
	}
	if strings.TrimSpace(text) == "" {
		return rec, failUpload(rec, fmt.Errorf("no text extracted"))
	}

	summary, err := summarizer.Summarize(ctx, text)
	if err != nil {
		return rec, failUpload(rec, err)
	}

	// Both texts and the completed status land in a single update so a
	// completed record always carries non-empty extracted and summarized text.
	err = db.Model(rec).Updates(map[string]any{
		"extracted_text":  text,
		"summarized_text": summary,
		"status":          models.StatusCompleted,
		"failed_reason":   "",
	}).Error
	if err != nil {
		return rec, failUpload(rec, fmt.Errorf("persist upload record: %w", err))
	}
	rec.ExtractedText = text
	rec.SummarizedText = summary
	rec.Status = models.StatusCompleted
	log.Printf("upload %d processed: %s", rec.ID, originalName)
	return rec, nil
}

// failUpload stamps the record failed with a truncated reason and returns the
// original cause.
func failUpload(rec *models.UploadedFile, cause error) error {
	reason := cause.Error()
	if len(reason) > 255 {
		reason = reason[:255]
	}
	if err := db.Model(rec).Updates(map[string]any{
		"status":        models.StatusFailed,
		"failed_reason": reason,
	}).Error; err != nil {
		log.Printf("failed to mark upload %d failed: %v", rec.ID, err)
	}
	rec.Status = models.StatusFailed
	rec.FailedReason = reason
	log.Printf("upload %d failed: %v", rec.ID, cause)
	return cause
}
