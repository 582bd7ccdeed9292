package scanner

import (
	"testing"

	"gotest.tools/v3/assert"
)

func TestScanFindsSingleBlock(t *testing.T) {
	blocks := Scan(`up{job="api"}`)
	assert.Equal(t, len(blocks), 1)
	assert.Equal(t, blocks[0].Inner, `job="api"`)
}

func TestScanFindsMultipleTopLevelBlocks(t *testing.T) {
	blocks := Scan(`up{job="a"} + down{job="b"}`)
	assert.Equal(t, len(blocks), 2)
	assert.Equal(t, blocks[0].Inner, `job="a"`)
	assert.Equal(t, blocks[1].Inner, `job="b"`)
}

func TestScanIgnoresBraceInsideQuotes(t *testing.T) {
	blocks := Scan(`up{job="{weird}"}`)
	assert.Equal(t, len(blocks), 1)
	assert.Equal(t, blocks[0].Inner, `job="{weird}"`)
}

func TestScanSkipsUnmatchedClosingBrace(t *testing.T) {
	blocks := Scan(`oops} up{job="a"}`)
	assert.Equal(t, len(blocks), 1)
	assert.Equal(t, blocks[0].Inner, `job="a"`)
}

func TestScanNoBlocksReturnsEmpty(t *testing.T) {
	blocks := Scan(`up`)
	assert.Equal(t, len(blocks), 0)
}

func TestReplaceAllRewritesFromLastToFirst(t *testing.T) {
	got := ReplaceAll(`up{job="a"} + down{job="b"}`, func(inner string) string {
		return inner + `,extra="1"`
	})
	assert.Equal(t, got, `up{job="a",extra="1"} + down{job="b",extra="1"}`)
}

func TestReplaceFirstOnlyTouchesFirstBlock(t *testing.T) {
	got, found := ReplaceFirst(`up{job="a"} + down{job="b"}`, func(inner string) string {
		return inner + `,extra="1"`
	})
	assert.Assert(t, found)
	assert.Equal(t, got, `up{job="a",extra="1"} + down{job="b"}`)
}

func TestReplaceFirstNoBlocksReportsNotFound(t *testing.T) {
	got, found := ReplaceFirst(`up`, func(inner string) string { return inner })
	assert.Assert(t, !found)
	assert.Equal(t, got, `up`)
}
