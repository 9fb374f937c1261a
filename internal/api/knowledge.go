package api

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// KnowledgeClient talks to the knowledge-base side of the backend:
// document ingestion and retrieval-augmented queries. Unlike Client its
// core endpoints hang off the server root rather than /api; only the
// PDF management routes are /api-prefixed.
type KnowledgeClient struct {
	root *Client
	base *Client
}

// NewKnowledgeClient builds a knowledge client for the given base URL.
func NewKnowledgeClient(baseURL string) *KnowledgeClient {
	root := NewClient(baseURL)
	// Core routes live at the root: strip the /api suffix NewClient adds.
	bare := *root
	bare.baseURL = root.baseURL[:len(root.baseURL)-len("/api")]
	return &KnowledgeClient{root: &bare, base: root}
}

// UploadResult reports how many chunks a document was split into.
type UploadResult struct {
	ChunksAdded int    `json:"chunks_added"`
	Filename    string `json:"filename,omitempty"`
}

// Upload ingests a document into the knowledge base.
func (k *KnowledgeClient) Upload(ctx context.Context, filename string, r io.Reader) (UploadResult, error) {
	return k.uploadMultipart(ctx, k.root, "/upload", filename, r)
}

// UploadPDF ingests a PDF through the PDF-specific pipeline.
func (k *KnowledgeClient) UploadPDF(ctx context.Context, filename string, r io.Reader) (UploadResult, error) {
	return k.uploadMultipart(ctx, k.base, "/upload-pdf", filename, r)
}

func (k *KnowledgeClient) uploadMultipart(ctx context.Context, c *Client, path, filename string, r io.Reader) (UploadResult, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", filename)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, r); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, pr)
	if err != nil {
		return UploadResult{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var resp struct {
		envelope
		UploadResult
		Message string `json:"message,omitempty"`
	}
	if err := c.do(req, path, &resp); err != nil {
		return UploadResult{}, err
	}
	if resp.Error != "" {
		return UploadResult{}, fmt.Errorf("request %s failed: %s", path, resp.Error)
	}
	return resp.UploadResult, nil
}

// DocumentList is the knowledge-base inventory.
type DocumentList struct {
	Documents   []string `json:"documents"`
	TotalChunks int      `json:"total_chunks"`
}

// Documents lists the ingested documents and their chunk counts.
func (k *KnowledgeClient) Documents(ctx context.Context) (DocumentList, error) {
	var resp struct {
		envelope
		DocumentList
	}
	if err := k.root.getJSON(ctx, "/documents", &resp); err != nil {
		return DocumentList{}, err
	}
	if resp.Error != "" {
		return DocumentList{}, fmt.Errorf("request /documents failed: %s", resp.Error)
	}
	return resp.DocumentList, nil
}

// Answer is the retrieval-augmented response to a knowledge query.
type Answer struct {
	Answer          string   `json:"answer"`
	SourceDocuments []string `json:"source_documents,omitempty"`
}

// Query asks the knowledge base a free-form question.
func (k *KnowledgeClient) Query(ctx context.Context, query string) (Answer, error) {
	var resp struct {
		envelope
		Answer
	}
	payload := map[string]string{"query": query}
	if err := k.root.sendJSON(ctx, http.MethodPost, "/query", payload, &resp); err != nil {
		return Answer{}, err
	}
	if resp.Error != "" {
		return Answer{}, fmt.Errorf("request /query failed: %s", resp.Error)
	}
	return resp.Answer, nil
}

// ReloadPDFs re-scans the server-side PDF directory.
func (k *KnowledgeClient) ReloadPDFs(ctx context.Context) error {
	var resp envelope
	if err := k.base.sendJSON(ctx, http.MethodPost, "/reload-pdfs", map[string]string{}, &resp); err != nil {
		return err
	}
	return resp.check("/reload-pdfs")
}

// ListPDFs lists the PDFs known to the PDF pipeline.
func (k *KnowledgeClient) ListPDFs(ctx context.Context) ([]string, error) {
	var resp struct {
		envelope
		PDFs []string `json:"pdfs"`
	}
	if err := k.base.getJSON(ctx, "/pdfs", &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("request /pdfs failed: %s", resp.Error)
	}
	return resp.PDFs, nil
}
