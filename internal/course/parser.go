package course

import (
	"regexp"
	"strconv"
	"strings"
)

// Header and lesson marker patterns for the structured document format:
//
//	Course Title: <title>
//	Course Link: <url>          (optional)
//	Course Instructor: <name>   (optional)
//
//	Lesson 0: Introduction
//	Lesson Link: <url>          (optional, consumed, not content)
//	<free text until the next marker or EOF>
var (
	titleRe      = regexp.MustCompile(`(?i)^course title:\s*(.*)$`)
	linkRe       = regexp.MustCompile(`(?i)^course link:\s*(.*)$`)
	instructorRe = regexp.MustCompile(`(?i)^course instructor:\s*(.*)$`)
	lessonRe     = regexp.MustCompile(`(?i)^lesson\s+(\d+):\s*(.*)$`)
	lessonLinkRe = regexp.MustCompile(`(?i)^lesson link:\s*(.*)$`)
)

// Parse extracts course metadata and the ordered lesson sequence from raw
// document text. It returns a *FormatError when the header is malformed.
//
// Duplicate lesson numbers within one document: the last occurrence wins and
// takes the position of its final appearance.
func Parse(text string) (*Course, error) {
	lines := strings.Split(text, "\n")

	c := &Course{}
	i, err := parseHeader(lines, c)
	if err != nil {
		return nil, err
	}

	// Scan for lesson markers; text between markers belongs to the lesson.
	var (
		current *Lesson
		body    []string
		byNum   = map[int]int{} // lesson number -> index in c.Lessons
	)
	flush := func() {
		if current == nil {
			return
		}
		current.Content = strings.TrimSpace(strings.Join(body, "\n"))
		if prev, ok := byNum[current.Number]; ok {
			// Last occurrence wins: drop the earlier lesson entirely.
			c.Lessons = append(c.Lessons[:prev], c.Lessons[prev+1:]...)
			for n, idx := range byNum {
				if idx > prev {
					byNum[n] = idx - 1
				}
			}
		}
		byNum[current.Number] = len(c.Lessons)
		c.Lessons = append(c.Lessons, *current)
	}

	for ; i < len(lines); i++ {
		line := lines[i]
		if m := lessonRe.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			flush()
			num, convErr := strconv.Atoi(m[1])
			if convErr != nil {
				return nil, &FormatError{Line: i + 1, Reason: "invalid lesson number " + strconv.Quote(m[1])}
			}
			current = &Lesson{Number: num, Title: strings.TrimSpace(m[2])}
			body = body[:0]

			// Optional "Lesson Link:" line directly after the marker.
			if i+1 < len(lines) {
				if lm := lessonLinkRe.FindStringSubmatch(strings.TrimSpace(lines[i+1])); lm != nil {
					current.Link = strings.TrimSpace(lm[1])
					i++
				}
			}
			continue
		}
		if current != nil {
			body = append(body, line)
		}
	}
	flush()

	return c, nil
}

// parseHeader consumes the three-field header and returns the index of the
// first line after it. Only the title is mandatory; link and instructor
// lines are consumed when present and left empty otherwise.
func parseHeader(lines []string, c *Course) (int, error) {
	i := skipBlank(lines, 0)
	if i >= len(lines) {
		return 0, &FormatError{Line: i + 1, Reason: "document is empty"}
	}

	m := titleRe.FindStringSubmatch(strings.TrimSpace(lines[i]))
	if m == nil {
		return 0, &FormatError{Line: i + 1, Reason: `first line must be "Course Title: <title>"`}
	}
	c.Title = strings.TrimSpace(m[1])
	if c.Title == "" {
		return 0, &FormatError{Line: i + 1, Reason: "course title is empty"}
	}
	i++

	i = skipBlank(lines, i)
	if i < len(lines) {
		if m := linkRe.FindStringSubmatch(strings.TrimSpace(lines[i])); m != nil {
			c.Link = strings.TrimSpace(m[1])
			i++
		}
	}

	i = skipBlank(lines, i)
	if i < len(lines) {
		if m := instructorRe.FindStringSubmatch(strings.TrimSpace(lines[i])); m != nil {
			c.Instructor = strings.TrimSpace(m[1])
			i++
		}
	}

	return i, nil
}

func skipBlank(lines []string, i int) int {
	for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}
	return i
}
