package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatDocuments(t *testing.T) {
	docs := ChatDocuments([]ChatMessage{
		{Timestamp: "2024-05-01 10:00", Sender: "Ana", Text: "Invoice sent"},
		{Timestamp: "2024-05-01 10:01", Sender: "Bo", Text: "   "},
		{Timestamp: "2024-05-01 10:02", Text: "who am I"},
	})

	require.Len(t, docs, 2)
	assert.Equal(t, "[2024-05-01 10:00] Ana: Invoice sent", docs[0].Content)
	assert.Equal(t, "[2024-05-01 10:02] Unknown: who am I", docs[1].Content)
	assert.Equal(t, SourceChat, docs[0].Metadata.Source)
	assert.Equal(t, FileTypeChat, docs[0].Metadata.FileType)
}

func TestEmailDocuments(t *testing.T) {
	docs := EmailDocuments([]Email{
		{ID: "m1", Subject: "Q3 budget", From: "cfo@example.com", Date: "Mon, 1 Jul 2024", Body: "Budget is approved."},
		{ID: "m2", From: "x@example.com", Body: "No subject here"},
		{ID: "m3", Subject: "empty", Body: "  "},
	})

	require.Len(t, docs, 2)
	assert.Equal(t, "[Email] Subject: Q3 budget\nFrom: cfo@example.com\nDate: Mon, 1 Jul 2024\n\nBudget is approved.", docs[0].Content)
	assert.Equal(t, SourceEmail, docs[0].Metadata.Source)
	assert.Equal(t, map[string]string{"email_id": "m1", "subject": "Q3 budget", "sender": "cfo@example.com"}, docs[0].Metadata.Extra)
	assert.Equal(t, "(no subject)", docs[1].Metadata.Extra["subject"])
}

func TestImageDocuments(t *testing.T) {
	docs := ImageDocuments([]ImageText{{Name: "receipt.png", Text: " Total 12.50 "}, {Name: "blank.png"}})

	require.Len(t, docs, 1)
	assert.Equal(t, "[Image: receipt.png]\nTotal 12.50", docs[0].Content)
	assert.Equal(t, "receipt.png", docs[0].Metadata.Source)
	assert.Equal(t, FileTypeOCRImage, docs[0].Metadata.FileType)
}

func TestCleanPDFText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "doubled glyphs", in: "TTTotal   dueee", want: "Total due"},
		{name: "digits kept", in: "Amount 1000 and 5550", want: "Amount 1000 and 5550"},
		{name: "newlines collapsed", in: "a\n\n\n\n b  \n", want: "a\n\nb"},
		{name: "pairs kept", in: "Bookkeeping", want: "Bookkeeping"},
		{
			name: "table blocks untouched",
			in:   "Invoice   fooor ACME\n\n" + WrapTable([]string{"item\tqty", "----\t1000", "aaa\t2"}) + "\n\n\n\nThankkk you",
			want: "Invoice for ACME\n\n" + WrapTable([]string{"item\tqty", "----\t1000", "aaa\t2"}) + "\n\nThank you",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CleanPDFText(tc.in))
		})
	}
}
