package folio

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/labstack/echo/v4"
	"golang.org/x/image/draw"

	"github.com/eringen/folio/blob"
)

const (
	maxImageWidth = 1200
	jpegQuality   = 82
	maxUploadSize = 10 << 20 // 10MB
)

type mediaKind int

const (
	mediaImage mediaKind = iota
	mediaIcon            // raster image or raw SVG
	mediaPDF
)

// MediaField is a content column that holds a blob URL.
type MediaField struct {
	Table  string
	Column string
	kind   mediaKind
}

// mediaFields is keyed by "<entity>/<field>" as it appears in upload URLs.
// Table and Column are only ever taken from here, never from the request.
var mediaFields = map[string]MediaField{
	"about/profile_image": {Table: "about", Column: "profile_image", kind: mediaImage},
	"about/cv_link":       {Table: "about", Column: "cv_link", kind: mediaPDF},
	"skills/icon_url":     {Table: "skills", Column: "icon_url", kind: mediaIcon},
	"projects/thumbnail":  {Table: "projects", Column: "thumbnail", kind: mediaImage},
	"posts/thumbnail":     {Table: "posts", Column: "thumbnail", kind: mediaImage},
}

// LookupMediaField returns the media column for an upload target.
func LookupMediaField(entity, field string) (MediaField, bool) {
	f, ok := mediaFields[entity+"/"+field]
	return f, ok
}

// processImage decodes an image from src, resizes it to maxImageWidth if it
// is wider, and re-encodes it as JPEG.
func processImage(src io.Reader) ([]byte, error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if w > maxImageWidth {
		newH := h * maxImageWidth / w
		dst := image.NewRGBA(image.Rect(0, 0, maxImageWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func looksLikeSVG(data []byte) bool {
	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	return bytes.Contains(bytes.ToLower(head), []byte("<svg"))
}

// prepareMedia checks an upload against the field's kind and returns the
// name to store it under along with the bytes to store.
func prepareMedia(kind mediaKind, name string, data []byte) (string, []byte, error) {
	ve := &ValidationError{}
	base := strings.TrimSuffix(path.Base(name), path.Ext(name))
	switch kind {
	case mediaPDF:
		if !bytes.HasPrefix(data, []byte("%PDF-")) {
			ve.Add("file", "The file must be a PDF document.")
			return "", nil, ve
		}
		return base + ".pdf", data, nil
	case mediaIcon:
		if looksLikeSVG(data) {
			return base + ".svg", data, nil
		}
	}
	out, err := processImage(bytes.NewReader(data))
	if err != nil {
		ve.Add("file", "The file must be an image (JPEG, PNG or GIF).")
		return "", nil, ve
	}
	return base + ".jpg", out, nil
}

func (a *App) handleMediaUpload(c echo.Context) error {
	field, ok := LookupMediaField(c.Param("entity"), c.Param("field"))
	if !ok {
		return ErrNotFound
	}
	id, err := paramID(c)
	if err != nil {
		return err
	}

	ve := &ValidationError{}
	file, err := c.FormFile("file")
	if err != nil {
		ve.Add("file", "The file field is required.")
		return ve
	}
	if file.Size > maxUploadSize {
		ve.Add("file", "The file must not be greater than 10 MB.")
		return ve
	}
	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()
	data, err := io.ReadAll(io.LimitReader(src, maxUploadSize))
	if err != nil {
		return err
	}

	name, out, err := prepareMedia(field.kind, file.Filename, data)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	url, err := a.Blobs.Put(ctx, name, out)
	if err != nil {
		return &PersistenceError{Message: "Failed to store the file.", Err: err}
	}
	if err := a.Store.SetMedia(ctx, field, id, url); err != nil {
		return err
	}
	a.Cache.Invalidate()
	c.Logger().Infof("media: %s.%s of #%d set to %s", field.Table, field.Column, id, url)
	return c.JSON(http.StatusOK, map[string]string{"url": url})
}

// handleMediaClear empties a media field. Record updates never clear these
// columns, so this is the only way to drop an image or CV once set. The blob
// itself is left in place.
func (a *App) handleMediaClear(c echo.Context) error {
	field, ok := LookupMediaField(c.Param("entity"), c.Param("field"))
	if !ok {
		return ErrNotFound
	}
	id, err := paramID(c)
	if err != nil {
		return err
	}
	if err := a.Store.SetMedia(c.Request().Context(), field, id, ""); err != nil {
		return err
	}
	a.Cache.Invalidate()
	c.Logger().Infof("media: %s.%s of #%d cleared", field.Table, field.Column, id)
	return c.NoContent(http.StatusNoContent)
}

func (a *App) handleMedia(c echo.Context) error {
	key := c.Param("key")
	data, err := a.Blobs.Get(c.Request().Context(), key)
	if errors.Is(err, blob.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	ct := mime.TypeByExtension(path.Ext(key))
	if ct == "" {
		ct = http.DetectContentType(data)
	}
	// Uploaded SVGs are served from our own origin; keep them inert.
	c.Response().Header().Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'; sandbox")
	return c.Blob(http.StatusOK, ct, data)
}
