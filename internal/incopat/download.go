package incopat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cxip/patent-pipeline/constants"
	"github.com/cxip/patent-pipeline/internal/common"
)

// examineMessage is one entry of the examination correspondence list.
type examineMessage struct {
	Title       string `json:"examineMessageTitle"`
	Token       string `json:"token"`
	ExamineType string `json:"examinetype"`
	ExamineDate string `json:"examineDate"`
}

// Fetch implements the download capability: resolve the patent, list its
// examination correspondence, and pull the first-office-action PDF.
func (c *Client) Fetch(ctx context.Context, patentNo string) ([]byte, error) {
	pnk, err := c.Search(ctx, patentNo)
	if err != nil {
		return nil, err
	}

	info, err := c.postDetailAPI(ctx, "/detailNew/getPatentCommonInfo", pnk)
	if err != nil {
		return nil, err
	}
	an := stringField(info, "an")
	pt := stringField(info, "pt")
	if an == "" {
		an = patentNo // fall back to the publication number
	}
	if pt == "" {
		pt = "1"
	}

	msgs, err := c.examineMessages(ctx, an, pt)
	if err != nil {
		return nil, err
	}

	target, ok := firstOfficeAction(msgs)
	if !ok {
		// the patent exists but has no first office action on file;
		// nothing to download, now or ever
		return nil, fmt.Errorf("%s has no %s: %w", patentNo, constants.FirstOfficeActionTitle, common.ErrNotFound)
	}
	if target.Token == "" {
		return nil, fmt.Errorf("examine message for %s has empty token: %w", patentNo, common.ErrTransport)
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"token":       target.Token,
			"examinetype": target.ExamineType,
		}).
		Get("/detailNew/findExamineFile")
	if cerr := classify(resp, err, "findExamineFile"); cerr != nil {
		return nil, cerr
	}

	body := resp.Body()
	if !strings.HasPrefix(string(body), constants.PDFHeader) {
		// an HTML error page where the PDF should be usually means the
		// download token went stale between the two calls
		return nil, fmt.Errorf("findExamineFile for %s returned non-PDF body: %w", patentNo, common.ErrTokenExpired)
	}
	c.log.Debug("incopat.pdf_fetched", "patent_no", patentNo, "bytes", len(body), "title", target.Title)
	return body, nil
}

// examineMessages lists the examination correspondence for an
// application number.
func (c *Client) examineMessages(ctx context.Context, an, pt string) ([]examineMessage, error) {
	if err := c.ensureSession(ctx); err != nil {
		return nil, err
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"an": an, "pt": pt}).
		Post("/detailNew/getExamineMessages")
	if cerr := classify(resp, err, "getExamineMessages"); cerr != nil {
		return nil, cerr
	}

	var env struct {
		Status bool             `json:"status"`
		Data   []examineMessage `json:"data"`
	}
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return nil, fmt.Errorf("getExamineMessages response: %v: %w", err, common.ErrTransport)
	}
	if !env.Status {
		c.loggedIn = false
		return nil, fmt.Errorf("getExamineMessages rejected: %w", common.ErrTokenExpired)
	}
	return env.Data, nil
}

func firstOfficeAction(msgs []examineMessage) (examineMessage, bool) {
	for _, msg := range msgs {
		if strings.Contains(msg.Title, constants.FirstOfficeActionTitle) {
			return msg, true
		}
	}
	return examineMessage{}, false
}
