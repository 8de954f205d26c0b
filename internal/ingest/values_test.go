package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanNumeric(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want float64
	}{
		{"plain number", "42.5", 42.5},
		{"thousands separators", "1,234.5", 1234.5},
		{"whitespace", "  17 ", 17},
		{"float passthrough", 3.14, 3.14},
		{"int passthrough", 7, 7.0},
		{"empty", "", 0},
		{"dash placeholder", "-", 0},
		{"n/a placeholder", "N/A", 0},
		{"excel error placeholder", "#N/A", 0},
		{"null word", "null", 0},
		{"garbage", "abc", 0},
		{"nil", nil, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CleanNumeric(tc.in))
		})
	}
}

func TestCleanRatio(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want float64
	}{
		{"unity ratio", "1 : 1", 1.0},
		{"compression ratio", "2.2 : 1", 2.2},
		{"no separator", "1.3", 1.3},
		{"dash placeholder", "-", 0},
		{"empty", "", 0},
		// 分母不做校验，直接丢弃
		{"weird denominator", "1.5 : 3", 1.5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CleanRatio(tc.in))
		})
	}
}

func TestCleanDateTime(t *testing.T) {
	got := CleanDateTime("Jul 13, 2021, 08:34:13")
	require.NotNil(t, got)
	assert.Equal(t, 2021, got.Year())
	assert.Equal(t, 13, got.Day())

	assert.NotNil(t, CleanDateTime("2024-03-01"))

	// 数值字段归 0，日期字段归 nil
	assert.Nil(t, CleanDateTime("not a date"))
	assert.Nil(t, CleanDateTime("-"))
	assert.Nil(t, CleanDateTime(""))
	assert.Nil(t, CleanDateTime(nil))
}

func TestCleanBool(t *testing.T) {
	assert.True(t, CleanBool("Yes"))
	assert.True(t, CleanBool("yes"))
	assert.True(t, CleanBool(" YES "))
	assert.True(t, CleanBool(true))
	assert.False(t, CleanBool("No"))
	assert.False(t, CleanBool(""))
	assert.False(t, CleanBool("true")) // 源表只用 Yes/No
	assert.False(t, CleanBool(nil))
}
