package server

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/example/maskedit/internal/mask"
	"github.com/example/maskedit/internal/payload"
	"github.com/example/maskedit/internal/render"
)

type inpaintRequest struct {
	Image  string `json:"image"`
	Mask   string `json:"mask"`
	Prompt string `json:"prompt"`
}

// methodFromPrompt picks the fill from keywords in the prompt. Blur is the
// default.
func methodFromPrompt(prompt string) string {
	p := strings.ToLower(prompt)
	switch {
	case strings.Contains(p, render.MethodPixelate), strings.Contains(p, "mosaic"):
		return render.MethodPixelate
	case strings.Contains(p, render.MethodSolid), strings.Contains(p, "black"), strings.Contains(p, "fill"):
		return render.MethodSolid
	}
	return render.MethodBlur
}

func (s *Server) handleInpaint(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			s.fail(w, r, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		s.fail(w, r, http.StatusBadRequest, "could not read body")
		return
	}
	var req inpaintRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		s.fail(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Image == "" || req.Mask == "" {
		s.fail(w, r, http.StatusBadRequest, "image and mask are required")
		return
	}

	img, err := decodeField("image", req.Image)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err.Error())
		return
	}
	maskImg, err := decodeField("mask", req.Mask)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err.Error())
		return
	}
	ib, mb := img.Bounds(), maskImg.Bounds()
	if ib.Dx() != mb.Dx() || ib.Dy() != mb.Dy() {
		s.fail(w, r, http.StatusUnprocessableEntity,
			fmt.Sprintf("mask is %dx%d but image is %dx%d", mb.Dx(), mb.Dy(), ib.Dx(), ib.Dy()))
		return
	}
	surface := mask.SurfaceFromImage(maskImg, ib.Dx(), ib.Dy())
	if surface.MaskedCount(1) == 0 {
		s.fail(w, r, http.StatusUnprocessableEntity, "mask is empty")
		return
	}

	method := methodFromPrompt(req.Prompt)
	out := render.Redact(img, surface.Alpha(), method)
	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		s.log.Error("encode inpaint result", zap.Error(err))
		s.fail(w, r, http.StatusInternalServerError, "could not encode result")
		return
	}
	s.log.Info("inpainted",
		zap.String("method", method),
		zap.Int("width", ib.Dx()), zap.Int("height", ib.Dy()),
		zap.Int("masked", surface.MaskedCount(mask.Masked)))
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func decodeField(name, value string) (image.Image, error) {
	uri, err := payload.ParseDataURI(value)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", name, err)
	}
	img, err := uri.Decode()
	if err != nil {
		return nil, fmt.Errorf("%s: %v", name, err)
	}
	return img, nil
}
