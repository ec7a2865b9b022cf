package flagx

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		allowed []string
		want    []string
	}{
		{
			name:    "short flag with separate value",
			args:    []string{"-c", "conf.yaml", "-b", "sqlite"},
			allowed: []string{"-c", "-config"},
			want:    []string{"-c", "conf.yaml"},
		},
		{
			name:    "long flag with equals",
			args:    []string{"-config=alt.yaml", "-b", "sqlite"},
			allowed: []string{"-c", "-config"},
			want:    []string{"-config=alt.yaml"},
		},
		{
			name:    "order preserved when both forms present",
			args:    []string{"-config=first.yaml", "-c", "second.yaml", "-x", "1"},
			allowed: []string{"-c", "-config"},
			want:    []string{"-config=first.yaml", "-c", "second.yaml"},
		},
		{
			name:    "unknown flags and positionals dropped",
			args:    []string{"-x", "1", "--y=2", "positional"},
			allowed: []string{"-c"},
			want:    []string{},
		},
		{
			name:    "trailing flag without value kept",
			args:    []string{"-c"},
			allowed: []string{"-c"},
			want:    []string{"-c"},
		},
		{
			name:    "flag followed by another flag has no value",
			args:    []string{"-c", "-notvalue"},
			allowed: []string{"-c"},
			want:    []string{"-c"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := FilterArgs(tc.args, tc.allowed)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestConfigFileFlag(t *testing.T) {
	orig := os.Args
	defer func() { os.Args = orig }()

	os.Args = []string{"itemdb", "-b", "mysql", "-c", "itemdb.yaml"}
	assert.Equal(t, "itemdb.yaml", ConfigFileFlag())

	os.Args = []string{"itemdb", "-config=other.yaml"}
	assert.Equal(t, "other.yaml", ConfigFileFlag())

	os.Args = []string{"itemdb"}
	assert.Equal(t, "", ConfigFileFlag())
}
