package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"go.uber.org/zap"

	"github.com/sells-group/county-api/internal/thumbnail"
)

// multipartMemory is the part of a multipart form kept in memory; the rest
// spills to temp files.
const multipartMemory = 32 << 20

type imagesResponse struct {
	Images []*thumbnail.Thumbnail `json:"images"`
}

// handleConvertImages resizes every uploaded "files" part. A file that cannot
// be decoded yields null at its position.
func (s *Server) handleConvertImages(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow() {
		writeError(w, http.StatusTooManyRequests, "image conversion rate limit exceeded")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", tooBig.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	files := r.MultipartForm.File["files"]
	switch {
	case len(files) == 0:
		writeError(w, http.StatusUnprocessableEntity, "files is required")
		return
	case len(files) > s.opts.MaxFiles:
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("too many files: %d uploaded, at most %d allowed", len(files), s.opts.MaxFiles))
		return
	}

	inputs := make([]thumbnail.Input, len(files))
	for i, fh := range files {
		data, err := readPart(fh)
		if err != nil {
			// Left empty: the converter reports it as undecodable.
			s.log.Debug("read upload failed", zap.String("filename", fh.Filename), zap.Error(err))
		}
		inputs[i] = thumbnail.Input{Filename: fh.Filename, Data: data}
	}

	results := s.images.ConvertAll(r.Context(), inputs)
	resp := imagesResponse{Images: make([]*thumbnail.Thumbnail, len(results))}
	for i, res := range results {
		if res.Err == nil {
			resp.Images[i] = res.Thumbnail
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck
	return io.ReadAll(f)
}
