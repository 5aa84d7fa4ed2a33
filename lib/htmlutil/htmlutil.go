package htmlutil

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

// CleanText strips non-printable runes, trims the edges and collapses inner
// whitespace runs. Scraped stat cells come with all three problems.
func CleanText(s string) string {
	s = removeNonPrintable(s)
	s = strings.Trim(s, " \t\n")
	return innerWhitespace.ReplaceAllString(s, " ")
}

var numberPattern = regexp.MustCompile(`-?\d[\d,]*(\.\d+)?`)

// ParseInt pulls the first integer out of a stat cell, tolerating
// thousands separators and surrounding labels ("1,024 LP" -> 1024).
func ParseInt(s string) (int, bool) {
	match := numberPattern.FindString(s)
	if match == "" {
		return 0, false
	}
	match = strings.ReplaceAll(match, ",", "")
	n, err := strconv.Atoi(strings.SplitN(match, ".", 2)[0])
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParseFloat pulls the first decimal number out of a stat cell
// ("7.3 CS/min" -> 7.3, "54%" -> 54).
func ParseFloat(s string) (float64, bool) {
	match := numberPattern.FindString(s)
	if match == "" {
		return 0, false
	}
	match = strings.ReplaceAll(match, ",", "")
	f, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// ParsePercent reads "54%" or "54.2 %" as a 0..1 ratio. Values already in
// 0..1 pass through unchanged.
func ParsePercent(s string) (float64, bool) {
	f, ok := ParseFloat(s)
	if !ok {
		return 0, false
	}
	if strings.Contains(s, "%") || f > 1 {
		return f / 100, true
	}
	return f, true
}
