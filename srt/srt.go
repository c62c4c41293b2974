package srt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Cue is one numbered block of a segmentation file.
type Cue struct {
	Index int
	Start time.Duration
	End   time.Duration
	Text  string
}

// Duration is the length of the cue, never negative.
func (c Cue) Duration() time.Duration {
	if c.End < c.Start {
		return 0
	}
	return c.End - c.Start
}

var timeLineRe = regexp.MustCompile(`^(\d{2}):(\d{2}):(\d{2})[,.](\d{3}) --> (\d{2}):(\d{2}):(\d{2})[,.](\d{3})`)

// Parse reads every cue from r. Blank lines between blocks are tolerated.
func Parse(r io.Reader) ([]Cue, error) {
	br := bufio.NewReader(r)
	var cues []Cue

	for {
		seqLine, eof, err := readTrimmedLine(br)
		if err != nil {
			return nil, err
		}
		if eof {
			break
		}
		seqLine = strings.TrimPrefix(seqLine, "\ufeff")
		if strings.TrimSpace(seqLine) == "" {
			continue
		}
		seq, err := strconv.Atoi(strings.TrimSpace(seqLine))
		if err != nil {
			return nil, fmt.Errorf("srt format error: invalid sequence line: %q", seqLine)
		}

		timeLine, _, err := readTrimmedLine(br)
		if err != nil {
			return nil, err
		}
		start, end, err := parseTimeLine(timeLine)
		if err != nil {
			return nil, err
		}

		var texts []string
		for {
			line, e, err := readTrimmedLine(br)
			if err != nil {
				return nil, err
			}
			if strings.TrimSpace(line) == "" || e {
				break
			}
			texts = append(texts, strings.TrimSpace(line))
		}

		cues = append(cues, Cue{
			Index: seq,
			Start: start,
			End:   end,
			Text:  strings.Join(texts, " "),
		})
	}
	return cues, nil
}

func parseTimeLine(line string) (time.Duration, time.Duration, error) {
	m := timeLineRe.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return 0, 0, fmt.Errorf("srt format error: invalid time line: %q", line)
	}
	start := timestamp(m[1], m[2], m[3], m[4])
	end := timestamp(m[5], m[6], m[7], m[8])
	return start, end, nil
}

func timestamp(h, m, s, ms string) time.Duration {
	hours, _ := strconv.Atoi(h)
	minutes, _ := strconv.Atoi(m)
	seconds, _ := strconv.Atoi(s)
	millis, _ := strconv.Atoi(ms)
	return time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(millis)*time.Millisecond
}

// readTrimmedLine reads one line without its line ending and reports EOF once
// nothing is left.
func readTrimmedLine(br *bufio.Reader) (line string, eof bool, err error) {
	s, err := br.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			eof = true
		} else {
			return "", false, err
		}
	}
	s = strings.TrimSuffix(s, "\n")
	s = strings.TrimSuffix(s, "\r")
	return s, eof && s == "", nil
}
