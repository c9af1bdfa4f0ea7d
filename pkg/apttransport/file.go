package apttransport

import (
	"context"
	"fmt"
	"hash"
	"io"
	"net/url"
	"os"
	"path/filepath"
)

var _ Transport = &FileTransport{}

// FileTransport acquires local files for flat repositories and local key
// material addressed by a file:// URI or bare path.
type FileTransport struct{}

func NewFileTransport() *FileTransport {
	return &FileTransport{}
}

func (t *FileTransport) Schemes() []string {
	return []string{"file"}
}

func localPath(uri *url.URL) string {
	path := uri.Path
	if uri.Host != "" {
		path = filepath.Join(uri.Host, path)
	}
	return path
}

// Head has no HTTP ETag concept locally; it synthesizes one from the
// file's size and modification time so callers can still detect changes.
func (t *FileTransport) Head(ctx context.Context, uri *url.URL) (string, error) {
	info, err := os.Stat(localPath(uri))
	if err != nil {
		return "", &AcquireError{URI: uri, Reason: "failed to stat file", Err: err}
	}
	return fmt.Sprintf("%x-%d", info.ModTime().UnixNano(), info.Size()), nil
}

func (t *FileTransport) Acquire(ctx context.Context, req *AcquireRequest) (*AcquireResponse, error) {
	path := localPath(req.URI)

	select {
	case <-ctx.Done():
		return nil, &AcquireError{URI: req.URI, Reason: "context cancelled", Err: ctx.Err()}
	default:
	}

	fileInfo, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &AcquireError{URI: req.URI, Reason: "file not found", Err: err}
		}
		return nil, &AcquireError{URI: req.URI, Reason: "failed to stat file", Err: err}
	}
	if fileInfo.IsDir() {
		return nil, &AcquireError{URI: req.URI, Reason: "path is a directory"}
	}

	modTime := fileInfo.ModTime()
	if req.LastModified != nil && !modTime.After(*req.LastModified) {
		return &AcquireResponse{URI: req.URI, LastModified: &modTime, Size: fileInfo.Size(), Unchanged: true}, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, &AcquireError{URI: req.URI, Reason: "failed to open file", Err: err}
	}

	response := &AcquireResponse{URI: req.URI, LastModified: &modTime, Size: fileInfo.Size()}

	if req.Filename != "" && req.Filename != path {
		return t.copyToFile(file, response, req)
	}

	content, hashes, size, err := readAndHash(file, req.ExpectedHashes, req.ProgressCallback, response.Size)
	if err != nil {
		return nil, &AcquireError{URI: req.URI, Reason: "failed to read file", Err: err}
	}
	response.Content = content
	response.Hashes = hashes
	response.Size = size

	if err := verifyHashes(response.Hashes, req.ExpectedHashes); err != nil {
		content.Close()
		return nil, &AcquireError{URI: req.URI, Reason: "hash verification failed", Err: err}
	}

	return response, nil
}

func (t *FileTransport) copyToFile(sourceFile *os.File, response *AcquireResponse, req *AcquireRequest) (*AcquireResponse, error) {
	defer sourceFile.Close()

	destFile, err := os.Create(req.Filename)
	if err != nil {
		return nil, &AcquireError{URI: req.URI, Reason: "failed to create destination file", Err: err}
	}
	defer destFile.Close()

	hashers := make(map[string]hash.Hash)
	for algo := range req.ExpectedHashes {
		if hasher := createHasher(algo); hasher != nil {
			hashers[algo] = hasher
		}
	}
	writers := []io.Writer{destFile}
	for _, hasher := range hashers {
		writers = append(writers, hasher)
	}
	multiWriter := io.MultiWriter(writers...)

	var reader io.Reader = sourceFile
	if req.ProgressCallback != nil {
		reader = &fileProgressReader{reader: sourceFile, callback: req.ProgressCallback, total: response.Size}
	}

	written, err := io.Copy(multiWriter, reader)
	if err != nil {
		os.Remove(req.Filename)
		return nil, &AcquireError{URI: req.URI, Reason: "failed to copy file", Err: err}
	}

	hashes := make(map[string]string)
	for algo, hasher := range hashers {
		hashes[algo] = fmt.Sprintf("%x", hasher.Sum(nil))
	}

	response.Filename = req.Filename
	response.Hashes = hashes
	response.Size = written

	if err := verifyHashes(response.Hashes, req.ExpectedHashes); err != nil {
		os.Remove(req.Filename)
		return nil, &AcquireError{URI: req.URI, Reason: "hash verification failed", Err: err}
	}

	return response, nil
}

type fileProgressReader struct {
	reader   io.Reader
	callback func(int64, int64)
	total    int64
	read     int64
}

func (fpr *fileProgressReader) Read(p []byte) (n int, err error) {
	n, err = fpr.reader.Read(p)
	fpr.read += int64(n)
	if fpr.callback != nil {
		fpr.callback(fpr.read, fpr.total)
	}
	return n, err
}
