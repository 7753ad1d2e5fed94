package api

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/DukeRupert/shopdesk/internal/domain"
)

// ImagesField is the repeated multipart field carrying product images.
const ImagesField = "images"

// FilePart is one file attached to a multipart request.
type FilePart struct {
	Name        string
	ContentType string
	Body        io.Reader
}

// Products adds multipart creation to the generic resource.
type Products struct {
	Resource[domain.Product]
}

// AddWithImages creates a product. Payload fields are sent as form fields
// and every file is appended under the repeated "images" field, in order.
func (p *Products) AddWithImages(ctx context.Context, payload domain.ProductPayload, files []FilePart) (domain.Product, error) {
	op := "products.add"

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeProductForm(mw, payload, files))
	}()

	data, err := p.c.do(ctx, request{
		Op:          op,
		Method:      http.MethodPost,
		Path:        p.path,
		Body:        pr,
		ContentType: mw.FormDataContentType(),
	})
	// Unblocks the writer if the transport gave up before draining the pipe.
	pr.Close()
	if err != nil {
		return domain.Product{}, err
	}
	return decodeOne[domain.Product](op, data)
}

func writeProductForm(mw *multipart.Writer, payload domain.ProductPayload, files []FilePart) error {
	fields := []struct{ name, value string }{
		{"title", payload.Title},
		{"desc", payload.Desc},
		{"price", strconv.Itoa(payload.Price)},
		{"quantity", strconv.Itoa(payload.Quantity)},
	}
	for _, f := range fields {
		if err := mw.WriteField(f.name, f.value); err != nil {
			return err
		}
	}
	for _, c := range payload.Categories {
		if err := mw.WriteField("categories", c); err != nil {
			return err
		}
	}

	for i, f := range files {
		part, err := mw.CreatePart(fileHeader(ImagesField, f))
		if err != nil {
			return err
		}
		if _, err := io.Copy(part, f.Body); err != nil {
			return fmt.Errorf("copy image %d: %w", i, err)
		}
	}
	return mw.Close()
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func fileHeader(field string, f FilePart) textproto.MIMEHeader {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(field), quoteEscaper.Replace(f.Name)))
	ct := f.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)
	return h
}

// Categories returns every product category.
func (c *Client) Categories(ctx context.Context) ([]domain.Category, error) {
	op := "categories.list"
	data, err := c.do(ctx, request{Op: op, Method: http.MethodGet, Path: "categories"})
	if err != nil {
		return nil, err
	}
	cats, err := decodeOne[[]domain.Category](op, data)
	if err != nil {
		return nil, err
	}
	if cats == nil {
		cats = []domain.Category{}
	}
	return cats, nil
}
