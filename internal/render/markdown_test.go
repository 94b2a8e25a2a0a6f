package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTable(t *testing.T) {
	got := Table([]string{"region", "total", "share"}, [][]string{
		{"North", "1,200", "40%"},
		{"South|East", "1800"},
	})

	want := "| region | total | share |\n" +
		"| :--- | ---: | :--- |\n" +
		"| North | 1,200 | 40% |\n" +
		"| South\\|East | 1800 |  |"
	assert.Equal(t, want, got)
	assert.Equal(t, "", Table(nil, nil))
}

func TestFormatTextTables(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "empty",
			in:   "",
			want: "",
		},
		{
			name: "already markdown",
			in:   "| a | b |\n| --- | --- |\n| 1 | 2 |",
			want: "| a | b |\n| --- | --- |\n| 1 | 2 |",
		},
		{
			name: "plain prose untouched",
			in:   "The total is 42.\nNothing else.",
			want: "The total is 42.\nNothing else.",
		},
		{
			name: "aligned table",
			in:   "Result:\nregion  total  count\nNorth   100    3\nSouth   250    5\n\nDone.",
			want: "Result:\n| region | total | count |\n| :--- | ---: | ---: |\n| North | 100 | 3 |\n| South | 250 | 5 |\n\nDone.",
		},
		{
			name: "indexed dataframe",
			in:   "      total    avg\nNorth   100   33.3\nSouth   250   50.0",
			want: "| Index | total | avg |\n| :--- | ---: | ---: |\n| North | 100 | 33.3 |\n| South | 250 | 50.0 |",
		},
		{
			name: "header only is left alone",
			in:   "region  total  count\nno columns here",
			want: "region  total  count\nno columns here",
		},
		{
			name: "indented single column line does not stall",
			in:   "  alpha beta\nnext",
			want: "  alpha beta\nnext",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FormatTextTables(tc.in))
		})
	}
}
