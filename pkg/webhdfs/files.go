package webhdfs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
)

// WebHDFS operations.
const (
	opListStatus = "LISTSTATUS"
	opMkdirs     = "MKDIRS"
	opCreate     = "CREATE"
	opOpen       = "OPEN"
	opDelete     = "DELETE"
	opRename     = "RENAME"
)

// ListDirectory returns the entries of dir. A success response without a
// FileStatuses field yields a nil slice and no error.
func (c *Client) ListDirectory(ctx context.Context, dir string) ([]FileStatus, error) {
	c.logger.Info("listing directory", slog.String("remote_path", dir))

	resp, err := c.Do(ctx, &Request{Op: opListStatus, Path: dir})
	if err != nil {
		return nil, err
	}

	var lr listStatusResponse
	if err := json.Unmarshal(resp.Body, &lr); err != nil {
		return nil, fmt.Errorf("%w: decoding %s response: %w", ErrMalformedResponse, opListStatus, err)
	}

	if lr.FileStatuses == nil {
		c.logger.Debug("listing has no FileStatuses field", slog.String("remote_path", dir))

		return nil, nil
	}

	entries := make([]FileStatus, 0, len(lr.FileStatuses.FileStatus))
	for i := range lr.FileStatuses.FileStatus {
		entries = append(entries, lr.FileStatuses.FileStatus[i].toFileStatus())
	}

	c.logger.Debug("listed directory",
		slog.String("remote_path", dir),
		slog.Int("count", len(entries)),
	)

	return entries, nil
}

// CreateDirectory creates dir and any missing parents. It returns the
// gateway's boolean result.
func (c *Client) CreateDirectory(ctx context.Context, dir string) (bool, error) {
	c.logger.Info("creating directory", slog.String("remote_path", dir))

	resp, err := c.Do(ctx, &Request{
		Op:     opMkdirs,
		Path:   strings.TrimRight(dir, "/") + "/",
		Method: http.MethodPut,
	})
	if err != nil {
		return false, err
	}

	return decodeBoolean(opMkdirs, resp.Body)
}

// Upload writes a remote file. If localContentOrPath names an existing
// regular file, that file is streamed; otherwise the string itself is the
// content.
func (c *Client) Upload(ctx context.Context, remotePath, localContentOrPath string) error {
	info, statErr := os.Stat(localContentOrPath)
	if statErr != nil || !info.Mode().IsRegular() {
		return c.UploadReader(ctx, remotePath, strings.NewReader(localContentOrPath))
	}

	f, err := os.Open(localContentOrPath)
	if err != nil {
		return fmt.Errorf("%w: opening %s: %w", ErrLocalIO, localContentOrPath, err)
	}
	defer f.Close()

	c.logger.Debug("uploading local file",
		slog.String("local_path", localContentOrPath),
		slog.Int64("size", info.Size()),
	)

	return c.UploadReader(ctx, remotePath, f)
}

// UploadReader streams r to remotePath, creating or failing on an existing
// file as the gateway decides.
func (c *Client) UploadReader(ctx context.Context, remotePath string, r io.Reader) error {
	c.logger.Info("uploading", slog.String("remote_path", remotePath))

	_, err := c.Do(ctx, &Request{
		Op:     opCreate,
		Path:   remotePath,
		Method: http.MethodPut,
		Params: url.Values{"data": {"true"}},
		Header: http.Header{"Content-Type": {"application/octet-stream"}},
		Body:   r,
	})

	return err
}

// Download returns the content of remotePath. If localPath is non-empty the
// content is also written there; a failure to write is reported as
// ErrLocalIO. A non-2xx response without a RemoteException, such as a proxy
// error page, fails with ErrUnexpectedStatus and nothing is written.
func (c *Client) Download(ctx context.Context, remotePath, localPath string) ([]byte, error) {
	c.logger.Info("downloading", slog.String("remote_path", remotePath))

	resp, err := c.Do(ctx, &Request{Op: opOpen, Path: remotePath})
	if err != nil {
		return nil, err
	}

	if localPath != "" {
		if err := writeLocalFile(localPath, resp.Body); err != nil {
			c.logger.Error("saving download failed",
				slog.String("remote_path", remotePath),
				slog.String("local_path", localPath),
				slog.String("error", err.Error()),
			)

			return nil, err
		}

		c.logger.Debug("saved download",
			slog.String("local_path", localPath),
			slog.Int("bytes", len(resp.Body)),
		)
	}

	return resp.Body, nil
}

// Remove deletes remotePath and returns the gateway's boolean result.
func (c *Client) Remove(ctx context.Context, remotePath string) (bool, error) {
	c.logger.Info("removing", slog.String("remote_path", remotePath))

	resp, err := c.Do(ctx, &Request{
		Op:     opDelete,
		Path:   remotePath,
		Method: http.MethodDelete,
	})
	if err != nil {
		return false, err
	}

	return decodeBoolean(opDelete, resp.Body)
}

// Move renames source to destination. destination is made absolute if it
// is not already.
func (c *Client) Move(ctx context.Context, source, destination string) (bool, error) {
	destination = normalizeDestination(destination)

	c.logger.Info("moving",
		slog.String("remote_path", source),
		slog.String("destination", destination),
	)

	resp, err := c.Do(ctx, &Request{
		Op:     opRename,
		Path:   source,
		Method: http.MethodPut,
		Params: url.Values{"destination": {destination}},
	})
	if err != nil {
		return false, err
	}

	return decodeBoolean(opRename, resp.Body)
}

// decodeBoolean extracts the {"boolean": ...} result of op.
func decodeBoolean(op string, body []byte) (bool, error) {
	var br booleanResponse
	if err := json.Unmarshal(body, &br); err != nil {
		return false, fmt.Errorf("%w: decoding %s response: %w", ErrMalformedResponse, op, err)
	}

	if br.Boolean == nil {
		return false, fmt.Errorf("%w: %s response has no boolean field", ErrMalformedResponse, op)
	}

	return *br.Boolean, nil
}

// writeLocalFile writes data to path, closing the file on every path.
func writeLocalFile(path string, data []byte) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: creating %s: %w", ErrLocalIO, path, err)
	}

	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("%w: closing %s: %w", ErrLocalIO, path, closeErr)
		}
	}()

	if _, writeErr := f.Write(data); writeErr != nil {
		return fmt.Errorf("%w: writing %s: %w", ErrLocalIO, path, writeErr)
	}

	if syncErr := f.Sync(); syncErr != nil {
		return fmt.Errorf("%w: syncing %s: %w", ErrLocalIO, path, syncErr)
	}

	return nil
}
