package ocr

import (
	"regexp"
	"strings"
)

// Boilerplate fragments recognized text around the signature block often
// contains; anything matching these is never an examiner name.
var nameBlacklist = []string{
	"在", "第一次", "审刀", "审查员", "审查意见", "认为", "通知书", "附件", "电话", "联系", "签名",
	"申请", "其申请", "专利法", "属于专利法第", "权利要求", "说明书", "本局", "申请人", "发明", "发文",
}

var (
	// name shape: 2-4 CJK characters, optionally split by an interpunct
	// (transliterated names such as 阿地力·买买提)
	reNameShape = regexp.MustCompile(`^[一-龥]{1,3}·?[一-龥]{1,3}$`)

	// labeled, same line: 审查员：张三
	reLabeled = regexp.MustCompile(`审查员\s*[:：]?\s*([一-龥·]{2,6})`)
	// label with the name wrapped to the next line
	reLabeledWrapped = regexp.MustCompile(`审\s*查\s*员\s*[:：]?\s*[\r\n]+\s*([一-龥·]{2,6})`)
	// name directly before a contact-phone label
	reBeforePhone = regexp.MustCompile(`[,，\s]\s*([一-龥·]{2,6})\s*联系电?话`)
)

// LooksLikeName reports whether s has the shape of a Chinese personal
// name and is not signature-block boilerplate.
func LooksLikeName(s string) bool {
	if s == "" || !reNameShape.MatchString(s) {
		return false
	}
	for _, frag := range nameBlacklist {
		if strings.Contains(s, frag) {
			return false
		}
	}
	return true
}

// ExtractExaminer mines an examiner name out of recognized text,
// preferring explicitly labeled matches.
func ExtractExaminer(text string) (string, bool) {
	if text == "" {
		return "", false
	}
	for _, re := range []*regexp.Regexp{reLabeled, reLabeledWrapped, reBeforePhone} {
		if m := re.FindStringSubmatch(text); m != nil && LooksLikeName(m[1]) {
			return m[1], true
		}
	}
	return "", false
}

// PickExaminer selects the best candidate from per-region results:
// the most frequent name wins; on a tie the earliest region (page 2)
// is trusted first.
func PickExaminer(candidates []string) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}
	counts := make(map[string]int, len(candidates))
	for _, name := range candidates {
		counts[name]++
	}
	best := candidates[0]
	for _, name := range candidates {
		if counts[name] > counts[best] {
			best = name
		}
	}
	return best, true
}
