package tabular

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gopherai-docqa/internal/rag"
)

func TestTablesFromDocument(t *testing.T) {
	content := "Quarterly invoice\n" +
		rag.WrapTable([]string{"item\tqty\tprice", "bolts\t10\t2.5", "nuts\t4\t1"}) +
		"\nnotes between\n" +
		rag.WrapTable([]string{"only one row"}) +
		"\nmore notes\n" +
		rag.WrapTable([]string{"| region | amount |", "| west | 12 |"}) +
		"\nand\n" +
		rag.WrapTable([]string{"name    score", "ana    9"})
	doc := rag.NewDocument(content, "invoice.pdf", rag.FileTypePDF)

	got := TablesFromDocument(doc)

	require.Len(t, got, 3)
	assert.Equal(t, "invoice.pdf", got[0].Name)
	assert.Equal(t, []string{"item", "qty", "price"}, got[0].ColumnNames())
	assert.Equal(t, [][]string{{"bolts", "10", "2.5"}, {"nuts", "4", "1"}}, got[0].Rows)
	assert.Equal(t, TypeNumber, got[0].Columns[2].Type)

	assert.Equal(t, "invoice.pdf (table 2)", got[1].Name)
	assert.Equal(t, []string{"region", "amount"}, got[1].ColumnNames())
	assert.Equal(t, [][]string{{"west", "12"}}, got[1].Rows)

	assert.Equal(t, "invoice.pdf (table 3)", got[2].Name)
	assert.Equal(t, []string{"name", "score"}, got[2].ColumnNames())
}

func TestTablesFromDocument_NoTables(t *testing.T) {
	assert.Empty(t, TablesFromDocument(rag.NewDocument("plain prose", "a.txt", rag.FileTypeTXT)))
}
