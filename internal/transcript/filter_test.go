package transcript

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCollapseRepeats(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"hello hello", "hello hello"},
		{"好!!!", "好!"},
		{"。。。结束", "。结束"},
		{"((注意))", "(注意)"},
		{"你好好", "你好"},
		{"中国中国", "中国"},
		{"北京 北京", "北京"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, CollapseRepeats(tt.in))
		})
	}
}
