package link

import (
	"fmt"
	"strings"

	"github.com/golang/glog"
)

// DumpLimit is the number of leading bytes included in a dump.
const DumpLimit = 16

// FormatDump renders a transfer as "tag NB: XX XX ...", limited to DumpLimit bytes.
func FormatDump(tag string, p []byte) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %dB:", tag, len(p))
	for i := 0; i < len(p) && i < DumpLimit; i++ {
		fmt.Fprintf(&sb, " %02X", p[i])
	}
	if len(p) > DumpLimit {
		sb.WriteString(" ...")
	}
	return sb.String()
}

// Dump logs a completed transfer at verbosity 3.
func Dump(tag string, p []byte) {
	if glog.V(3) {
		glog.Info(FormatDump(tag, p))
	}
}
