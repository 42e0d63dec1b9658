package effortapi

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strings"

	"effort-ui/internal/model"

	"github.com/tidwall/gjson"
)

const DefaultExportFilename = "categories.xlsx"

func (c *Client) Categories(ctx context.Context) (model.CategoryMap, error) {
	const op = "get categories"
	res, err := c.getJSON(ctx, op, "/effort/categories/", nil)
	if err != nil {
		return model.CategoryMap{}, err
	}
	m, err := model.ParseCategoryMap(res.body)
	if err != nil {
		return model.CategoryMap{}, &DecodeError{Op: op, Err: err}
	}
	return m, nil
}

type CategoryEdit struct {
	Old model.CategoryPath
	New model.CategoryPath
}

func (c *Client) EditCategory(ctx context.Context, e CategoryEdit) error {
	if !e.Old.Complete() || !e.New.Complete() {
		return invalid("all six category fields are required")
	}
	_, err := c.sendJSON(ctx, "edit category", http.MethodPut, "/effort/categories/", map[string]string{
		"old_major": e.Old.Major,
		"old_minor": e.Old.Minor,
		"old_sub":   e.Old.Sub,
		"new_major": e.New.Major,
		"new_minor": e.New.Minor,
		"new_sub":   e.New.Sub,
	})
	return err
}

func (c *Client) MajorCategories(ctx context.Context) ([]string, error) {
	return c.categoryList(ctx, "list major categories", "/effort/categories/major/", nil)
}

func (c *Client) MinorCategories(ctx context.Context, major string) ([]string, error) {
	if strings.TrimSpace(major) == "" {
		return nil, invalid("major category is required")
	}
	return c.categoryList(ctx, "list minor categories", "/effort/categories/minor/", url.Values{"major": {major}})
}

func (c *Client) SubCategories(ctx context.Context, major, minor string) ([]string, error) {
	if strings.TrimSpace(major) == "" || strings.TrimSpace(minor) == "" {
		return nil, invalid("major and minor categories are required")
	}
	return c.categoryList(ctx, "list sub categories", "/effort/categories/sub/", url.Values{"major": {major}, "minor": {minor}})
}

func (c *Client) categoryList(ctx context.Context, op, path string, q url.Values) ([]string, error) {
	res, err := c.getJSON(ctx, op, path, q)
	if err != nil {
		return nil, err
	}
	var body struct {
		Categories []string `json:"categories"`
	}
	if err := decodeInto(op, res.body, &body); err != nil {
		return nil, err
	}
	if body.Categories == nil {
		return []string{}, nil
	}
	return body.Categories, nil
}

// SpreadsheetExt reports whether name has an extension the import accepts.
func SpreadsheetExt(name string) bool {
	switch strings.ToLower(filepath.Ext(strings.TrimSpace(name))) {
	case ".xlsx", ".xls":
		return true
	}
	return false
}

// UploadCategories replaces the category hierarchy from a spreadsheet.
func (c *Client) UploadCategories(ctx context.Context, filename string, r io.Reader) error {
	const op = "upload categories"
	filename = filepath.Base(strings.TrimSpace(filename))
	if filename == "" || filename == "." {
		return invalid("choose a file to upload")
	}
	if !SpreadsheetExt(filename) {
		return invalid("only spreadsheet files (.xlsx, .xls) can be uploaded")
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{"name": "file", "filename": filename}))
	h.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, r); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	res, err := c.send(ctx, op, http.MethodPost, "/effort/categories/upload-excel", nil, &buf, mw.FormDataContentType())
	if err != nil {
		return err
	}
	if !gjson.ValidBytes(res.body) {
		return &DecodeError{Op: op, Err: errors.New("body is not JSON")}
	}
	if !gjson.GetBytes(res.body, "success").Bool() {
		return &StatusError{Op: op, StatusCode: res.status, Message: errorText(res.body)}
	}
	return nil
}

func (c *Client) DownloadCategories(ctx context.Context) (model.Spreadsheet, error) {
	res, err := c.send(ctx, "download categories", http.MethodGet, "/effort/categories/download-excel", nil, nil, "")
	if err != nil {
		return model.Spreadsheet{}, err
	}
	ct := strings.TrimSpace(res.header.Get("Content-Type"))
	if ct == "" {
		ct = "application/octet-stream"
	}
	return model.Spreadsheet{
		Filename:    FilenameFromDisposition(res.header.Get("Content-Disposition")),
		ContentType: ct,
		Data:        res.body,
	}, nil
}

// FilenameFromDisposition extracts a safe base filename from a
// Content-Disposition header, falling back to DefaultExportFilename.
func FilenameFromDisposition(cd string) string {
	cd = strings.TrimSpace(cd)
	if cd == "" {
		return DefaultExportFilename
	}
	_, params, err := mime.ParseMediaType(cd)
	if err != nil {
		return DefaultExportFilename
	}
	name := strings.TrimSpace(params["filename"])
	if name == "" {
		return DefaultExportFilename
	}
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == ".." {
		return DefaultExportFilename
	}
	return name
}
