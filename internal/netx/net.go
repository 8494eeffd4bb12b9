// Package netx holds HTTP client helpers for talking to a filekeeper server.
package netx

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
)

// UploadFile streams r as the multipart "file" field to
// <baseURL>/api/files/upload. When size >= 0 it is sent as the declared
// size. The response body is returned for any 2xx status.
func UploadFile(ctx context.Context, client *http.Client, baseURL, token, name string, r io.Reader, size int64) ([]byte, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeForm(mw, name, r, size))
	}()

	url := strings.TrimRight(baseURL, "/") + "/api/files/upload"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, pr)
	if err != nil {
		_ = pr.Close()
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		return body, fmt.Errorf("upload failed: %s; body: %s", resp.Status, string(body))
	}
	return body, nil
}

func writeForm(mw *multipart.Writer, name string, r io.Reader, size int64) error {
	if size >= 0 {
		if err := mw.WriteField("size", strconv.FormatInt(size, 10)); err != nil {
			return err
		}
	}
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(fw, r); err != nil {
		return err
	}
	return mw.Close()
}
