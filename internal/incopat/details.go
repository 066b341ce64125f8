package incopat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cxip/patent-pipeline/internal/common"
	"github.com/cxip/patent-pipeline/internal/record"
)

// patentTypeNames maps the pt code of getPatentCommonInfo.
var patentTypeNames = map[string]string{
	"1": "发明申请",
	"2": "实用新型",
	"3": "外观设计",
	"4": "发明授权",
}

// Detail fetches the structured fields for a previously resolved pnk
// token: getPatentCommonInfo for type and application number, baseInfo
// for the bibliographic payload.
func (c *Client) Detail(ctx context.Context, patentNo, pnk string) (*record.Record, error) {
	common_, err := c.postDetailAPI(ctx, "/detailNew/getPatentCommonInfo", pnk)
	if err != nil {
		return nil, err
	}
	pt := stringField(common_, "pt")
	an := stringField(common_, "an")
	an = strings.TrimPrefix(an, "CN")

	base, err := c.postDetailAPI(ctx, "/detailNew/baseInfo", pnk)
	if err != nil {
		return nil, err
	}

	rec := parseBaseInfo(base, patentNo)
	rec.PatentType = patentTypeNames[pt]
	rec.ApplicationNo = an
	return rec, nil
}

// postDetailAPI calls one of the pnk-keyed detail endpoints and unwraps
// the {status, data} envelope. A false status on a previously valid pnk
// means the session token went stale.
func (c *Client) postDetailAPI(ctx context.Context, path, pnk string) (map[string]any, error) {
	if err := c.ensureSession(ctx); err != nil {
		return nil, err
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"pnk": pnk}).
		Post(path)
	if cerr := classify(resp, err, path); cerr != nil {
		return nil, cerr
	}

	var env apiEnvelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return nil, fmt.Errorf("%s response: %v: %w", path, err, common.ErrTransport)
	}
	if !env.Status {
		c.loggedIn = false // force a fresh login before the next item
		return nil, fmt.Errorf("%s rejected pnk (%s): %w", path, env.Msg, common.ErrTokenExpired)
	}
	if env.Data == nil {
		return nil, fmt.Errorf("%s returned no data: %w", path, common.ErrTransport)
	}
	return env.Data, nil
}

// parseBaseInfo mines the record fields out of the baseInfo payload.
// Every field is optional; absence yields an empty string.
func parseBaseInfo(data map[string]any, patentNo string) *record.Record {
	rec := &record.Record{PatentNo: patentNo}

	// application date: the 申请日 entry of the timeline map, dashes stripped
	if axis, ok := data["axisSortMap"].(map[string]any); ok {
		for _, v := range axis {
			entry, ok := v.(map[string]any)
			if !ok || stringField(entry, "axisName") != "申请日" {
				continue
			}
			if d := stringField(entry, "axisDate"); d != "" {
				rec.ApplicationDate = strings.ReplaceAll(d, "-", "")
			}
			break
		}
	}

	if biblio, ok := data["bibliographicItems"].(map[string]any); ok {
		rec.Inventors = stringField(biblio, "in_or")
		// only organizations are recorded as the first applicant;
		// personal names are elided from the dataset
		if roots, ok := biblio["apRoot"].([]any); ok && len(roots) > 0 {
			if first, ok := roots[0].(string); ok && IsOrganization(first) {
				rec.FirstApplicant = first
			}
		}
	}

	if summary, ok := data["summaryInformation"].(map[string]any); ok {
		rec.Abstract = stringField(summary, "ab_cn")
	}
	if claim, ok := data["firstClaim"].(map[string]any); ok {
		rec.FirstClaim = stringField(claim, "first_claim_or")
	}

	if others, ok := data["otherBibliographicItems"].([]any); ok {
		for _, v := range others {
			entry, ok := v.(map[string]any)
			if !ok {
				continue
			}
			if stringField(entry, "name") == "审查员" {
				if val := stringField(entry, "value"); val != "" {
					rec.Examiner = val
					break
				}
			}
		}
	}

	return rec
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}
