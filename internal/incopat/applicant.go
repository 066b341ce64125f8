package incopat

import (
	"regexp"
	"strings"
)

// orgKeywords are substrings that mark an applicant as a company,
// institute, or other organization rather than a person.
var orgKeywords = []string{
	"有限公司", "股份有限公司", "有限责任公司", "公司", "集团", "股份",
	"企业", "厂", "工厂", "制造", "科技", "技术", "工业", "实业",
	"控股", "投资", "贸易", "商贸", "电子", "信息", "网络", "软件",
	"大学", "学院", "研究所", "研究院", "研究中心", "实验室", "中心",
	"学校", "院校", "院", "所", "校", "医院",
	"Limited", "Ltd", "Inc", "Corp", "Corporation", "Company", "Co",
	"Group", "Enterprise", "Industries", "Industrial", "Manufacturing",
	"Technology", "Technologies", "Systems", "Solutions", "Services",
	"International", "Global", "Worldwide", "Holdings", "Partners",
	"University", "College", "Institute", "Laboratory", "Lab",
	"Research", "Center", "Centre", "Academy", "School", "Hospital",
	"GmbH", "AG", "KGaA", "KG", "SE", "SA", "SAS", "SARL", "BV", "NV",
}

// knownCompanies catches short foreign names the keyword list misses.
var knownCompanies = map[string]struct{}{
	"snecma": {}, "safran": {}, "airbus": {}, "boeing": {}, "thales": {},
	"nokia": {}, "samsung": {}, "sony": {}, "panasonic": {}, "toshiba": {},
	"hitachi": {}, "mitsubishi": {}, "toyota": {}, "basf": {}, "bayer": {},
	"siemens": {}, "volkswagen": {}, "bmw": {}, "mercedes": {},
}

var (
	reAcronym        = regexp.MustCompile(`\b[A-Z]{2,}\b`)
	reTrailingDigits = regexp.MustCompile(`\d+$`)
)

// IsOrganization reports whether an applicant name denotes an
// organization. Personal applicants are elided from the dataset, so the
// heuristics err on the side of false.
func IsOrganization(name string) bool {
	if name == "" {
		return false
	}
	for _, kw := range orgKeywords {
		if strings.Contains(name, kw) {
			return true
		}
	}
	if reAcronym.MatchString(name) {
		return true
	}
	for _, symbol := range []string{"&", "·", "－", "—", "-"} {
		if strings.Contains(name, symbol) {
			return true
		}
	}
	clean := strings.TrimSpace(name)
	if reTrailingDigits.MatchString(clean) {
		return true
	}
	// short all-caps latin token: almost always a brand
	if clean == strings.ToUpper(clean) && len(clean) >= 3 && len(clean) <= 12 &&
		isAlpha(clean) && !strings.ContainsAny(clean, " -.") {
		return true
	}
	_, known := knownCompanies[strings.ToLower(clean)]
	return known
}

func isAlpha(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return s != ""
}
