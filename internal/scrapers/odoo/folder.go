package odoo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

const report_odoo_download_folder = "download-folder"

// SavedFile is the outcome of saving one document of a folder, Error is set instead of
// Path when that document could not be saved.
type SavedFile struct {
	Document
	Path      string `json:"savedAs,omitempty"`
	SizeBytes int    `json:"size_bytes,omitempty"`
	Error     string `json:"status,omitempty"`
}

// DownloadFolder lists a shared folder and writes every document into outDir, one at a
// time. A document that fails is recorded and the rest are still attempted, only the
// listing itself can fail the call.
func (c *Client) DownloadFolder(ctx context.Context, folderUrl, outDir, cookie string) ([]SavedFile, error) {
	err := os.MkdirAll(outDir, 0755)
	if err != nil {
		return nil, err
	}

	documents, err := c.ListFolder(ctx, folderUrl, cookie)
	if err != nil {
		return nil, err
	}

	saved := make([]SavedFile, 0, len(documents))
	for _, doc := range documents {
		result := SavedFile{Document: doc}

		file, err := c.DownloadFile(ctx, doc.Url, cookie)
		if err != nil {
			result.Error = err.Error()
			saved = append(saved, result)
			continue
		}

		// the name comes from the server, only its base is trusted
		target := filepath.Join(outDir, filepath.Base(file.Filename))
		err = os.WriteFile(target, file.Data, 0644)
		if err != nil {
			c.tel.ReportWarning(report_odoo_download_folder, fmt.Errorf("write %s: %w", target, err))
			result.Error = err.Error()
			saved = append(saved, result)
			continue
		}

		result.Path = target
		result.SizeBytes = len(file.Data)
		saved = append(saved, result)
	}
	return saved, nil
}
