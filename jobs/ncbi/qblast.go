package ncbi

import (
	"bufio"
	"strings"

	"github.com/bio-mcp/bio-mcp-blast/errors"
	"github.com/bio-mcp/bio-mcp-blast/jobs"
)

// NCBI status words reported in the SearchInfo block
const (
	StatusWaiting = "WAITING"
	StatusReady   = "READY"
	StatusFailed  = "FAILED"
	StatusUnknown = "UNKNOWN" // expired or never-issued RID
)

const (
	infoBegin = "QBlastInfoBegin"
	infoEnd   = "QBlastInfoEnd"
)

// ErrNoInfoBlock means a response carried no QBlastInfo block
var ErrNoInfoBlock = errors.New("response has no QBlastInfo block")

// ParseQBlastInfo extracts the key/value pairs between QBlastInfoBegin and
// QBlastInfoEnd. Keys are case sensitive; both "K = V" and "K=V" forms occur.
func ParseQBlastInfo(body string) (map[string]string, error) {
	start := strings.Index(body, infoBegin)
	if start < 0 {
		return nil, ErrNoInfoBlock
	}
	rest := body[start+len(infoBegin):]
	end := strings.Index(rest, infoEnd)
	if end < 0 {
		return nil, errors.Wrap(ErrNoInfoBlock, "unterminated QBlastInfo block")
	}

	info := make(map[string]string)
	scanner := bufio.NewScanner(strings.NewReader(rest[:end]))
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		info[key] = strings.TrimSpace(value)
	}
	return info, nil
}

// DecodeStatus maps an NCBI status word to a job status. Anything outside
// the four documented words is unrecognized.
func DecodeStatus(raw string) (jobs.Status, bool) {
	switch raw {
	case StatusWaiting:
		return jobs.StatusPending, true
	case StatusReady:
		return jobs.StatusReady, true
	case StatusFailed, StatusUnknown:
		return jobs.StatusFailed, true
	}
	return "", false
}

// pageError pulls a human-readable message out of an NCBI error page
func pageError(body string) string {
	for _, marker := range []string{`<p class="error">`, `<div class="error msInf">`, "Message ID#"} {
		i := strings.Index(body, marker)
		if i < 0 {
			continue
		}
		msg := body[i+len(marker):]
		if j := strings.Index(msg, "<"); j >= 0 {
			msg = msg[:j]
		}
		if msg = strings.TrimSpace(msg); msg != "" {
			return msg
		}
	}
	return ""
}
