//go:build !amd64 && !arm64

package lirgen

// HostTargetSupported is false when code cannot be generated for the host, in which
// case NewCompilerConfig cross compiles to TargetAMD64.
const HostTargetSupported = false

// NewCompilerConfig returns a CompilerConfig targeting TargetAMD64.
func NewCompilerConfig() CompilerConfig {
	ret := targetLessConfig.clone()
	ret.target = TargetAMD64
	return ret
}
