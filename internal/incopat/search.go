package incopat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/cxip/patent-pipeline/internal/common"
)

var pnkPattern = regexp.MustCompile(`pnk=([^&"'\s]+)`)

// Search resolves a publication number to its pnk token: existsPn gives
// the canonical query, the init2 detail page embeds the pnk.
func (c *Client) Search(ctx context.Context, patentNo string) (string, error) {
	if err := c.ensureSession(ctx); err != nil {
		return "", err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("pn", patentNo).
		Get("/search/existsPn")
	if cerr := classify(resp, err, "existsPn"); cerr != nil {
		return "", cerr
	}

	var exists struct {
		Status      bool   `json:"status"`
		FormerQuery string `json:"formerQuery"`
	}
	if err := json.Unmarshal(resp.Body(), &exists); err != nil {
		return "", fmt.Errorf("existsPn response: %v: %w", err, common.ErrTransport)
	}
	if !exists.Status || exists.FormerQuery == "" {
		// the database has no entry under this publication number
		return "", fmt.Errorf("existsPn %s: %w", patentNo, common.ErrNotFound)
	}

	resp, err = c.http.R().
		SetContext(ctx).
		SetQueryParam("formerQuery", exists.FormerQuery).
		Get("/detail/init2")
	if cerr := classify(resp, err, "init2"); cerr != nil {
		return "", cerr
	}

	pnk, ok := extractPNK(resp.String())
	if !ok {
		return "", fmt.Errorf("init2 page for %s has no pnk: %w", patentNo, common.ErrNotFound)
	}
	c.log.Debug("incopat.pnk_extracted", "patent_no", patentNo)
	return pnk, nil
}

// extractPNK pulls the pnk token out of the detail page, preferring the
// hidden form input over a raw scan of inline scripts and links.
func extractPNK(html string) (string, bool) {
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(html)); err == nil {
		if val, ok := doc.Find(`input[name="pnk"]`).Attr("value"); ok && val != "" {
			return decodePNK(val), true
		}
		var found string
		doc.Find("a[href], script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := s.Text()
			if href, ok := s.Attr("href"); ok {
				text = href
			}
			if m := pnkPattern.FindStringSubmatch(text); m != nil {
				found = m[1]
				return false
			}
			return true
		})
		if found != "" {
			return decodePNK(found), true
		}
	}
	if m := pnkPattern.FindStringSubmatch(html); m != nil {
		return decodePNK(m[1]), true
	}
	return "", false
}

func decodePNK(raw string) string {
	if decoded, err := url.QueryUnescape(raw); err == nil {
		return decoded
	}
	return raw
}
