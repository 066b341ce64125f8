package incopat

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsOrganization(t *testing.T) {
	orgs := []string{
		"华为技术有限公司",
		"中国科学院半导体研究所",
		"清华大学",
		"国家电网公司",
		"Siemens AG",
		"General Electric Company",
		"IBM",
		"snecma",
		"SONY",
		"第一重型机械厂",
		"3M创新有限公司",
		"Hewlett-Packard",
	}
	for _, name := range orgs {
		require.True(t, IsOrganization(name), name)
	}

	people := []string{
		"",
		"张三",
		"欧阳锋",
		"李小明",
	}
	for _, name := range people {
		require.False(t, IsOrganization(name), name)
	}
}

func TestExtractPNKFromHiddenInput(t *testing.T) {
	html := `<html><body><form><input type="hidden" name="pnk" value="abc%2F123"></form></body></html>`
	pnk, ok := extractPNK(html)
	require.True(t, ok)
	require.Equal(t, "abc/123", pnk)
}

func TestExtractPNKFromLink(t *testing.T) {
	html := `<html><body><a href="/detailNew/view?pnk=tok42&amp;lang=cn">详情</a></body></html>`
	pnk, ok := extractPNK(html)
	require.True(t, ok)
	require.Equal(t, "tok42", pnk)
}

func TestExtractPNKFromScript(t *testing.T) {
	html := `<html><head><script>var u = "/detail?pnk=scripted-token&x=1";</script></head><body></body></html>`
	pnk, ok := extractPNK(html)
	require.True(t, ok)
	require.Equal(t, "scripted-token", pnk)
}

func TestExtractPNKAbsent(t *testing.T) {
	_, ok := extractPNK(`<html><body><p>无结果</p></body></html>`)
	require.False(t, ok)
}
