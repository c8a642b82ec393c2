package lirgen

import (
	"bytes"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompilerConfig(t *testing.T) {
	var trace bytes.Buffer
	tests := []struct {
		name     string
		with     func(CompilerConfig) CompilerConfig
		expected CompilerConfig
	}{
		{
			name: "WithTarget",
			with: func(c CompilerConfig) CompilerConfig {
				return c.WithTarget(TargetARM64)
			},
			expected: &compilerConfig{target: TargetARM64},
		},
		{
			name: "WithValidation",
			with: func(c CompilerConfig) CompilerConfig {
				return c.WithValidation(true)
			},
			expected: &compilerConfig{validation: true},
		},
		{
			name: "WithListing",
			with: func(c CompilerConfig) CompilerConfig {
				return c.WithListing(true)
			},
			expected: &compilerConfig{listing: true},
		},
		{
			name: "WithTraceWriter",
			with: func(c CompilerConfig) CompilerConfig {
				return c.WithTraceWriter(&trace)
			},
			expected: &compilerConfig{trace: &trace},
		},
		{
			name: "WithSignExtendNarrowedInts",
			with: func(c CompilerConfig) CompilerConfig {
				return c.WithSignExtendNarrowedInts(true)
			},
			expected: &compilerConfig{signExtend: true},
		},
	}

	for _, tt := range tests {
		tc := tt

		t.Run(tc.name, func(t *testing.T) {
			input := &compilerConfig{}
			rc := tc.with(input)
			require.Equal(t, tc.expected, rc)
			// The source wasn't modified
			require.Equal(t, &compilerConfig{}, input)
		})
	}
}

func TestNewCompilerConfig(t *testing.T) {
	c := NewCompilerConfig().(*compilerConfig)
	require.True(t, c.validation)
	require.False(t, c.listing)
	require.False(t, c.signExtend)
	require.Nil(t, c.trace)
	if HostTargetSupported {
		require.Equal(t, Target(runtime.GOARCH), c.target)
	} else {
		require.Equal(t, TargetAMD64, c.target)
	}

	// The defaults are shared, so they must never be modified.
	_ = NewCompilerConfig().WithValidation(false).WithTarget(TargetARM64)
	require.True(t, targetLessConfig.validation)
	require.Equal(t, Target(""), targetLessConfig.target)
}
