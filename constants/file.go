package constants

import "strings"

// PDFHeader is the magic prefix every well-formed PDF starts with.
const PDFHeader = "%PDF"

// PDFExt is the artifact extension used by the download and rename stages.
const PDFExt = ".pdf"

// FirstOfficeActionTitle is the examination document the download stage targets.
const FirstOfficeActionTitle = "第一次审查意见通知书"

// filenameReplacer strips characters that are hostile in file names.
var filenameReplacer = strings.NewReplacer(
	"/", "_", "\\", "_", ":", "_", "*", "_",
	"?", "_", "\"", "_", "<", "_", ">", "_", "|", "_",
)

// SanitizeFilename makes a name safe for the local filesystem.
func SanitizeFilename(name string) string {
	return strings.TrimSpace(filenameReplacer.Replace(name))
}
