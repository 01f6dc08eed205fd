package changelog_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/histree/pkg/changelog"
)

const sampleCSV = `commitId,authorName,authorEmail,commitTimeUnix,commitMessage,filesModified,summary
c3,Bob,bob@example.com,300,"rename","R100	src/a.js	src/b.js|",  1 file changed
c2,Alice,alice@example.com,200,"touch a","M	src/a.js| 2 +-"," 1 file changed, 1 insertion(+), 1 deletion(-)"
c1,Alice,alice@example.com,100,"init","A	src/a.js| 10 +
A	README.md| 1 +"," 2 files changed, 11 insertions(+)"
`

func TestReadCSV_OrdersOldestFirst(t *testing.T) {
	t.Parallel()

	commits, err := changelog.ReadCSV(strings.NewReader(sampleCSV), quietParser())
	require.NoError(t, err)
	require.Len(t, commits, 3)

	assert.Equal(t, "c1", commits[0].ID)
	assert.Equal(t, "c2", commits[1].ID)
	assert.Equal(t, "c3", commits[2].ID)

	assert.Len(t, commits[0].Files, 2)
	assert.Equal(t, 11, commits[0].Insertions)
	assert.Equal(t, 1, commits[1].Deletions)
	assert.Equal(t, changelog.Event{Kind: changelog.Rename, OldPath: "src/a.js", Path: "src/b.js"}, commits[2].Files[0])
}

func TestReadCSV_MissingColumn(t *testing.T) {
	t.Parallel()

	_, err := changelog.ReadCSV(strings.NewReader("commitId,authorName\nc1,A\n"), quietParser())
	require.ErrorIs(t, err, changelog.ErrMissingColumn)
}

func TestReadCSV_InvalidTimestamp(t *testing.T) {
	t.Parallel()

	input := "commitId,authorName,authorEmail,commitTimeUnix,commitMessage,filesModified,summary\n" +
		"c1,A,a@x,yesterday,m,,\n"

	_, err := changelog.ReadCSV(strings.NewReader(input), quietParser())
	require.ErrorIs(t, err, changelog.ErrInvalidTimestamp)
}

func TestReadCSV_Empty(t *testing.T) {
	t.Parallel()

	commits, err := changelog.ReadCSV(strings.NewReader(""), nil)
	require.NoError(t, err)
	assert.Empty(t, commits)
}

func TestWriteCSV_ReadBack(t *testing.T) {
	t.Parallel()

	commits := []changelog.Commit{
		{
			ID: "c1", AuthorName: "Alice", AuthorEmail: "a@x", Timestamp: 10, Message: "first, with comma",
			Files:      []changelog.Event{{Kind: changelog.Add, Path: "a.txt"}},
			Insertions: 3,
		},
		{
			ID: "c2", AuthorName: "Bob", AuthorEmail: "b@x", Timestamp: 20, Message: "move",
			Files: []changelog.Event{{Kind: changelog.Rename, OldPath: "a.txt", Path: "dir/a.txt"}},
		},
	}

	var buf bytes.Buffer

	require.NoError(t, changelog.WriteCSV(&buf, commits))

	lines := strings.SplitN(buf.String(), "\n", 3)
	assert.True(t, strings.HasPrefix(lines[1], "c2,"), "newest commit is written first")

	decoded, err := changelog.ReadCSV(&buf, quietParser())
	require.NoError(t, err)
	assert.Equal(t, commits, decoded)
}

func TestFormatSummary(t *testing.T) {
	t.Parallel()

	assert.Equal(t, " 1 file changed, 1 insertion(+)", changelog.FormatSummary(1, 1, 0))
	assert.Equal(t, " 2 files changed, 3 insertions(+), 1 deletion(-)", changelog.FormatSummary(2, 3, 1))
	assert.Equal(t, " 0 files changed", changelog.FormatSummary(0, 0, 0))
}
