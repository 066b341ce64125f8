package ocr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLooksLikeName(t *testing.T) {
	valid := []string{"张三", "欧阳锋", "阿地力·买买提", "王五"}
	for _, s := range valid {
		require.True(t, LooksLikeName(s), s)
	}

	invalid := []string{
		"",
		"张",        // single character
		"审查员",      // label, not a name
		"联系电话",     // boilerplate
		"本局认为",     // boilerplate fragment
		"zhang三",   // latin mixed in
		"张三李四王五赵六", // too long
	}
	for _, s := range invalid {
		require.False(t, LooksLikeName(s), s)
	}
}

func TestExtractExaminerLabeled(t *testing.T) {
	name, ok := ExtractExaminer("……请于收到通知书之日起答复。\n审查员：张三\n联系电话：010-1234")
	require.True(t, ok)
	require.Equal(t, "张三", name)
}

func TestExtractExaminerLabelWithoutColon(t *testing.T) {
	name, ok := ExtractExaminer("审查员 李四")
	require.True(t, ok)
	require.Equal(t, "李四", name)
}

func TestExtractExaminerWrappedLabel(t *testing.T) {
	name, ok := ExtractExaminer("审 查 员\n王五")
	require.True(t, ok)
	require.Equal(t, "王五", name)
}

func TestExtractExaminerBeforePhone(t *testing.T) {
	name, ok := ExtractExaminer("发文日，赵六 联系电话：010-1234")
	require.True(t, ok)
	require.Equal(t, "赵六", name)
}

func TestExtractExaminerRejectsBoilerplate(t *testing.T) {
	for _, text := range []string{
		"",
		"简要说明如下",
		"第一次审查意见通知书",
		"审查员：", // label with nothing after it
	} {
		_, ok := ExtractExaminer(text)
		require.False(t, ok, text)
	}
}

func TestPickExaminerMostFrequent(t *testing.T) {
	name, ok := PickExaminer([]string{"张三", "李四", "李四"})
	require.True(t, ok)
	require.Equal(t, "李四", name)
}

func TestPickExaminerTieKeepsEarliestRegion(t *testing.T) {
	name, ok := PickExaminer([]string{"张三", "李四"})
	require.True(t, ok)
	require.Equal(t, "张三", name)
}

func TestPickExaminerEmpty(t *testing.T) {
	_, ok := PickExaminer(nil)
	require.False(t, ok)
}

func TestExaminerRegions(t *testing.T) {
	regions := ExaminerRegions()
	require.Len(t, regions, 3)
	require.Equal(t, 2, regions[0].Page)
	require.Equal(t, -1, regions[1].Page)
	require.Equal(t, -1, regions[2].Page)
	for _, r := range regions {
		require.LessOrEqual(t, r.Left, r.Right)
		require.LessOrEqual(t, r.Top, r.Bottom)
	}
}
