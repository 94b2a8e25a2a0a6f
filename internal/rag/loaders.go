package rag

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

const (
	SourceChat  = "WhatsApp"
	SourceEmail = "Gmail"
)

type ChatMessage struct {
	Timestamp string `json:"timestamp"`
	Sender    string `json:"sender"`
	Text      string `json:"text"`
}

type Email struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	From    string `json:"from"`
	Date    string `json:"date"`
	Body    string `json:"body"`
}

type ImageText struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// ChatDocuments renders each non-empty message as "[ts] sender: text".
func ChatDocuments(messages []ChatMessage) []Document {
	docs := make([]Document, 0, len(messages))
	for _, m := range messages {
		text := strings.TrimSpace(m.Text)
		if text == "" {
			continue
		}
		sender := strings.TrimSpace(m.Sender)
		if sender == "" {
			sender = "Unknown"
		}
		content := fmt.Sprintf("[%s] %s: %s", strings.TrimSpace(m.Timestamp), sender, text)
		docs = append(docs, NewDocument(content, SourceChat, FileTypeChat))
	}
	return docs
}

// EmailDocuments renders each email with a header block; emails without a body are skipped.
func EmailDocuments(emails []Email) []Document {
	docs := make([]Document, 0, len(emails))
	for _, e := range emails {
		body := strings.TrimSpace(e.Body)
		if body == "" {
			continue
		}
		subject := strings.TrimSpace(e.Subject)
		if subject == "" {
			subject = "(no subject)"
		}
		content := fmt.Sprintf("[Email] Subject: %s\nFrom: %s\nDate: %s\n\n%s", subject, e.From, e.Date, body)
		doc := NewDocument(content, SourceEmail, FileTypeEmail)
		doc.Metadata.Extra = map[string]string{
			"email_id": e.ID,
			"subject":  subject,
			"sender":   e.From,
		}
		docs = append(docs, doc)
	}
	return docs
}

// ImageDocuments wraps recognized image text, sourcing each document by image name.
func ImageDocuments(images []ImageText) []Document {
	docs := make([]Document, 0, len(images))
	for _, img := range images {
		text := strings.TrimSpace(img.Text)
		if text == "" {
			continue
		}
		docs = append(docs, NewDocument(fmt.Sprintf("[Image: %s]\n%s", img.Name, text), img.Name, FileTypeOCRImage))
	}
	return docs
}

var (
	multiSpaces  = regexp.MustCompile(` {2,}`)
	manyNewlines = regexp.MustCompile(`\n{3,}`)
)

// CleanPDFText collapses doubled-glyph extraction artifacts and excess whitespace in the text
// around table blocks. Table blocks are kept verbatim.
func CleanPDFText(text string) string {
	if text == "" {
		return text
	}
	var parts []string
	last := 0
	for _, loc := range tableBlockPattern.FindAllStringIndex(text, -1) {
		if s := cleanPDFSegment(text[last:loc[0]]); s != "" {
			parts = append(parts, s)
		}
		parts = append(parts, text[loc[0]:loc[1]])
		last = loc[1]
	}
	if s := cleanPDFSegment(text[last:]); s != "" {
		parts = append(parts, s)
	}
	return strings.Join(parts, "\n\n")
}

func cleanPDFSegment(text string) string {
	text = collapseRepeats(text)
	text = multiSpaces.ReplaceAllString(text, " ")
	text = manyNewlines.ReplaceAllString(text, "\n\n")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// collapseRepeats replaces a character repeated three or more times with one copy.
// Digits and newlines are kept so amounts like 1000 survive.
func collapseRepeats(text string) string {
	runes := []rune(text)
	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(runes); {
		j := i + 1
		for j < len(runes) && runes[j] == runes[i] {
			j++
		}
		if j-i >= 3 && runes[i] != '\n' && !unicode.IsDigit(runes[i]) {
			b.WriteRune(runes[i])
		} else {
			for k := i; k < j; k++ {
				b.WriteRune(runes[k])
			}
		}
		i = j
	}
	return b.String()
}
