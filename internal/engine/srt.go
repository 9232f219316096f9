package engine

import (
	"bufio"
	"os"
	"strconv"
	"strings"
)

// ExtractText writes the caption lines of an SRT file to txtPath, one cue per line.
// Cue indices and timing lines are dropped.
func ExtractText(srtPath, txtPath string) error {
	in, err := os.Open(srtPath)
	if err != nil {
		return err
	}
	defer in.Close()

	var cues []string
	var cur []string
	flush := func() {
		if len(cur) > 0 {
			cues = append(cues, strings.Join(cur, " "))
			cur = cur[:0]
		}
	}

	// header is true until the timing line of the current cue has been seen
	header := true
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(sc.Text(), "\ufeff"))
		switch {
		case line == "":
			flush()
			header = true
		case header && isCueIndex(line):
		case header && strings.Contains(line, "-->"):
			header = false
		default:
			cur = append(cur, line)
			header = false
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	flush()

	var b strings.Builder
	for _, c := range cues {
		b.WriteString(c)
		b.WriteByte('\n')
	}
	return os.WriteFile(txtPath, []byte(b.String()), 0o644)
}

func isCueIndex(line string) bool {
	_, err := strconv.Atoi(line)
	return err == nil
}
