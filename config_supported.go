//go:build amd64 || arm64

package lirgen

import "runtime"

// HostTargetSupported is true when the default target is the host architecture.
const HostTargetSupported = true

// NewCompilerConfig returns a CompilerConfig targeting runtime.GOARCH.
func NewCompilerConfig() CompilerConfig {
	ret := targetLessConfig.clone()
	ret.target = Target(runtime.GOARCH)
	return ret
}
