package services

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const sniffLen = 3072

var (
	reportExtensions = map[string]bool{".pdf": true, ".png": true, ".jpg": true, ".jpeg": true}
	imageExtensions  = map[string]bool{".png": true, ".jpg": true, ".jpeg": true}
)

type preparedUpload struct {
	ext         string
	contentType string
	body        io.Reader
}

// prepareUpload checks the declared filename against allowed, rejects an
// empty stream and fills in the content type when the client sent none.
// The returned body still yields every byte of content.
func prepareUpload(filename string, allowed map[string]bool, contentType string, content io.Reader) (preparedUpload, error) {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(filename)))
	if !allowed[ext] {
		return preparedUpload{}, ErrInvalidFileType
	}
	if content == nil {
		return preparedUpload{}, ErrEmptyUpload
	}

	br := bufio.NewReaderSize(content, sniffLen)
	head, err := br.Peek(sniffLen)
	if len(head) == 0 {
		if err == nil || errors.Is(err, io.EOF) {
			return preparedUpload{}, ErrEmptyUpload
		}
		return preparedUpload{}, fmt.Errorf("read upload: %w", err)
	}
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return preparedUpload{}, fmt.Errorf("read upload: %w", err)
	}

	contentType = strings.TrimSpace(contentType)
	if contentType == "" || strings.EqualFold(contentType, "application/octet-stream") {
		contentType = mimetype.Detect(head).String()
	}

	return preparedUpload{ext: ext, contentType: contentType, body: br}, nil
}
