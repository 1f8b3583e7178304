package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

type Attachment struct {
	Resource
	ID       string    `json:"id"`
	Filename string    `json:"filename"`
	Author   User      `json:"author"`
	Created  time.Time `json:"created"`
	Size     int64     `json:"size"`
	MimeType string    `json:"mimeType"`
	Content  string    `json:"content"` // URL of the file contents
}

func (a *Attachment) UnmarshalJSON(b []byte) error {
	type alias Attachment
	aux := &struct {
		Created string `json:"created"`
		*alias
	}{
		alias: (*alias)(a),
	}
	if err := json.Unmarshal(b, aux); err != nil {
		return err
	}
	var err error
	a.Created, err = parseTime(aux.Created)
	if err != nil {
		return fmt.Errorf("parse created time: %w", err)
	}
	return nil
}

// AttachmentMeta reports whether attachments are enabled and their size limit.
type AttachmentMeta struct {
	Enabled     bool  `json:"enabled"`
	UploadLimit int64 `json:"uploadLimit"`
}

func (c *Client) AttachmentMeta(ctx context.Context) (*AttachmentMeta, error) {
	var m AttachmentMeta
	if err := c.get(ctx, c.url(apiREST, "attachment/meta"), nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *Client) Attachment(ctx context.Context, id string) (*Attachment, error) {
	var a Attachment
	if err := c.get(ctx, c.url(apiREST, "attachment/"+id), nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// AddAttachment uploads the contents of r as filename to the issue key.
func (c *Client) AddAttachment(ctx context.Context, key, filename string, r io.Reader) ([]Attachment, error) {
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req := &Request{
		Method: http.MethodPost,
		URL:    c.url(apiREST, "issue/"+key+"/attachments"),
		Header: http.Header{"Content-Type": {mw.FormDataContentType()}},
		Body:   buf.Bytes(),
	}
	resp, err := c.session().Do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var raw []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode attachments: %w", err)
	}
	return decodeList[Attachment](raw, KindAttachment)
}

// AttachmentContent returns the contents of a.
// The caller must close the returned reader.
func (c *Client) AttachmentContent(ctx context.Context, a *Attachment) (io.ReadCloser, error) {
	if a.Content == "" {
		return nil, fmt.Errorf("attachment %s: no content url", a.ID)
	}
	req := &Request{
		Method: http.MethodGet,
		URL:    rebase(a.Content, c.Server),
		Header: http.Header{"Accept": {"*/*"}},
	}
	resp, err := c.session().Do(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (c *Client) DeleteAttachment(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, c.url(apiREST, "attachment/"+id), nil, nil, nil)
}
