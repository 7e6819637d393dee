package main

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"

	"docsum/models"
	"docsum/pkg/summarize"

	"github.com/gin-gonic/gin"
)

// helper to perform requests with auth token
func performRequest(r http.Handler, method, path string, body io.Reader, token string, contentType string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

// fakeSummarizer serves a canned chat-completions response so the pipeline
// never leaves the test process. The returned counter tracks how many
// summarization calls were made.
func fakeSummarizer(t *testing.T) *int32 {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "canned summary"}},
			},
		})
	}))
	t.Cleanup(srv.Close)
	summarizer = summarize.New("test-key")
	summarizer.BaseURL = srv.URL
	return &hits
}

func setupTestServer(t *testing.T) (*gin.Engine, *int32) {
	// integration tests are opt-in. Set DB_DSN_TEST=1 and DB_DSN to run them.
	if os.Getenv("DB_DSN_TEST") != "1" {
		t.Skip("integration tests are disabled; set DB_DSN_TEST=1 to enable")
	}
	gin.SetMode(gin.TestMode)
	jwtSecret = []byte("test-secret")
	hits := fakeSummarizer(t)
	initDB()
	_ = os.Setenv("UPLOAD_BASE", t.TempDir())
	r := gin.Default()
	setupRoutes(r)
	return r, hits
}

// blobBody builds a multipart body carrying size bytes of zeros under the
// given filename.
func blobBody(t *testing.T, filename string, size int) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(make([]byte, size)); err != nil {
		t.Fatal(err)
	}
	_ = mw.Close()
	return buf, mw.FormDataContentType()
}

// docxBody builds a multipart body containing a minimal .docx file.
func docxBody(t *testing.T, filename string, paragraphs []string) (*bytes.Buffer, string) {
	t.Helper()
	var doc bytes.Buffer
	doc.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, p := range paragraphs {
		fmt.Fprintf(&doc, "<w:p><w:r><w:t>%s</w:t></w:r></w:p>", p)
	}
	doc.WriteString(`</w:body></w:document>`)

	var archive bytes.Buffer
	zw := zip.NewWriter(&archive)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write(doc.Bytes()); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	fw, _ := mw.CreateFormFile("file", filename)
	_, _ = fw.Write(archive.Bytes())
	_ = mw.Close()
	return buf, mw.FormDataContentType()
}

func TestFullFlow(t *testing.T) {
	r, sumHits := setupTestServer(t)

	// 1. Register user
	regBody, _ := json.Marshal(map[string]string{"username": "alice", "email": "alice@example.com", "password": "password123"})
	resp := performRequest(r, http.MethodPost, "/register", bytes.NewBuffer(regBody), "", "application/json")
	if resp.Code != 200 && resp.Code != 409 {
		t.Fatalf("register failed status=%d body=%s", resp.Code, resp.Body.String())
	}

	// 2. Duplicate username must be rejected and create no second row
	dupBody, _ := json.Marshal(map[string]string{"username": "alice", "email": "alice2@example.com", "password": "password123"})
	resp = performRequest(r, http.MethodPost, "/register", bytes.NewBuffer(dupBody), "", "application/json")
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate username got %d body=%s", resp.Code, resp.Body.String())
	}
	var cnt int64
	db.Model(&models.User{}).Where("username = ?", "alice").Count(&cnt)
	if cnt != 1 {
		t.Fatalf("expected exactly one alice row, got %d", cnt)
	}

	// 3. Login wrong password fails uniformly
	badBody, _ := json.Marshal(map[string]string{"username": "alice", "password": "wrongpassword"})
	resp = performRequest(r, http.MethodPost, "/login", bytes.NewBuffer(badBody), "", "application/json")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong password got %d", resp.Code)
	}

	// 4. Login
	loginBody, _ := json.Marshal(map[string]string{"username": "alice", "password": "password123"})
	resp = performRequest(r, http.MethodPost, "/login", bytes.NewBuffer(loginBody), "", "application/json")
	if resp.Code != 200 {
		t.Fatalf("login failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var loginResp map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &loginResp)
	token, _ := loginResp["token"].(string)
	if token == "" {
		t.Fatalf("empty token in login response: %+v", loginResp)
	}

	// 5. Upload a small docx; pipeline runs synchronously
	body, ct := docxBody(t, "notes.docx", []string{"some meeting notes", "and a second paragraph"})
	resp = performRequest(r, http.MethodPost, "/uploads", body, token, ct)
	if resp.Code != 200 {
		t.Fatalf("upload failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var upResp struct {
		ID      uint   `json:"id"`
		Status  string `json:"status"`
		Summary string `json:"summary"`
	}
	_ = json.Unmarshal(resp.Body.Bytes(), &upResp)
	if upResp.Status != models.StatusCompleted {
		t.Fatalf("expected completed upload got %q", upResp.Status)
	}
	if upResp.Summary != "canned summary" {
		t.Fatalf("unexpected summary %q", upResp.Summary)
	}

	// 6. Unsupported extension rejected before any processing
	badUp := &bytes.Buffer{}
	mw := multipart.NewWriter(badUp)
	fw, _ := mw.CreateFormFile("file", "script.sh")
	_, _ = fw.Write([]byte("echo hi"))
	_ = mw.Close()
	resp = performRequest(r, http.MethodPost, "/uploads", badUp, token, mw.FormDataContentType())
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unsupported extension got %d", resp.Code)
	}

	// 6b. A file over the 10MB bound is rejected before any record is created
	// and without an extraction or summarization attempt
	hitsBefore := atomic.LoadInt32(sumHits)
	var recsBefore int64
	db.Model(&models.UploadedFile{}).Count(&recsBefore)
	oversize, oct := blobBody(t, "huge.pdf", models.MaxFileSize+1)
	resp = performRequest(r, http.MethodPost, "/uploads", oversize, token, oct)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for oversized file got %d body=%s", resp.Code, resp.Body.String())
	}
	if got := atomic.LoadInt32(sumHits); got != hitsBefore {
		t.Fatalf("summarizer was called for a rejected oversized file (%d -> %d)", hitsBefore, got)
	}
	var recsAfter int64
	db.Model(&models.UploadedFile{}).Count(&recsAfter)
	if recsAfter != recsBefore {
		t.Fatalf("rejected oversized file left a record behind (%d -> %d)", recsBefore, recsAfter)
	}

	// 6c. A body past the transport cap is cut off by the body limit
	huge, hct := blobBody(t, "huge.pdf", 17*1024*1024)
	resp = performRequest(r, http.MethodPost, "/uploads", huge, token, hct)
	if resp.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 for body over the transport cap got %d body=%s", resp.Code, resp.Body.String())
	}
	if got := atomic.LoadInt32(sumHits); got != hitsBefore {
		t.Fatalf("summarizer was called for a rejected oversized body (%d -> %d)", hitsBefore, got)
	}

	// 7. List uploads (paginated)
	resp = performRequest(r, http.MethodGet, "/uploads?page=1", nil, token, "")
	if resp.Code != 200 {
		t.Fatalf("list uploads failed status=%d body=%s", resp.Code, resp.Body.String())
	}

	// 8. Fetch the record; texts must be non-empty for a completed record
	resp = performRequest(r, http.MethodGet, fmt.Sprintf("/uploads/%d", upResp.ID), nil, token, "")
	if resp.Code != 200 {
		t.Fatalf("get upload failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var rec models.UploadedFile
	_ = json.Unmarshal(resp.Body.Bytes(), &rec)
	if rec.ExtractedText == "" || rec.SummarizedText == "" {
		t.Fatalf("completed record missing texts: %+v", rec)
	}
	if rec.LastAccessed == nil {
		t.Fatalf("expected last_accessed stamp after fetch")
	}

	// 9. Logout, then unauthorized access
	resp = performRequest(r, http.MethodGet, "/logout", nil, token, "")
	if resp.Code != 200 {
		t.Fatalf("logout failed status=%d", resp.Code)
	}
	unauth := performRequest(r, http.MethodGet, "/uploads", nil, "", "")
	if unauth.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unauthorized list got %d", unauth.Code)
	}

	// 10. Deleting the account cascades to its upload records
	resp = performRequest(r, http.MethodDelete, "/account", nil, token, "")
	if resp.Code != 200 {
		t.Fatalf("delete account failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var left int64
	db.Model(&models.UploadedFile{}).Where("id = ?", upResp.ID).Count(&left)
	if left != 0 {
		t.Fatalf("expected cascade delete of upload records, %d left", left)
	}
}

func TestRefreshRotation(t *testing.T) {
	r, _ := setupTestServer(t)

	regBody, _ := json.Marshal(map[string]string{"username": "bob", "email": "bob@example.com", "password": "password123"})
	resp := performRequest(r, http.MethodPost, "/register", bytes.NewBuffer(regBody), "", "application/json")
	if resp.Code != 200 && resp.Code != 409 {
		t.Fatalf("register failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	loginBody, _ := json.Marshal(map[string]string{"username": "bob", "password": "password123"})
	resp = performRequest(r, http.MethodPost, "/login", bytes.NewBuffer(loginBody), "", "application/json")
	if resp.Code != 200 {
		t.Fatalf("login failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var loginResp map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &loginResp)
	oldRT, _ := loginResp["refresh_token"].(string)
	if oldRT == "" {
		t.Fatalf("no refresh token in login response: %+v", loginResp)
	}

	// exchanging the token yields a fresh pair; the replacement must be live
	// before the old one is retired
	refBody, _ := json.Marshal(map[string]string{"refresh_token": oldRT})
	resp = performRequest(r, http.MethodPost, "/refresh", bytes.NewBuffer(refBody), "", "application/json")
	if resp.Code != 200 {
		t.Fatalf("refresh failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var refResp map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &refResp)
	newRT, _ := refResp["refresh_token"].(string)
	if newRT == "" || newRT == oldRT {
		t.Fatalf("expected a rotated refresh token, got %q", newRT)
	}
	stored, err := findRefreshTokenByRaw(newRT)
	if err != nil || stored.Revoked {
		t.Fatalf("rotated token not stored live: err=%v", err)
	}
	old, err := findRefreshTokenByRaw(oldRT)
	if err != nil || !old.Revoked {
		t.Fatalf("old token should be revoked after rotation: err=%v revoked=%v", err, old != nil && old.Revoked)
	}

	// the retired token no longer refreshes
	resp = performRequest(r, http.MethodPost, "/refresh", bytes.NewBuffer(refBody), "", "application/json")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for revoked refresh token got %d", resp.Code)
	}
}

func TestMigrateCommand(t *testing.T) {
	if os.Getenv("DB_DSN_TEST") != "1" {
		t.Skip("integration tests are disabled; set DB_DSN_TEST=1 to enable")
	}
	initDB()
}
