// Package inference - ONNX Runtime environment lifecycle.
package inference

import (
	"fmt"
	"os"
	"runtime"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// EnvSharedLib names the environment variable that overrides the shared
// library location.
const EnvSharedLib = "ORT_SHARED_LIB"

var (
	initOnce sync.Once
	initErr  error
)

// SharedLibPath returns the path to the ONNX Runtime shared library for the
// current platform.
//
// The ORT_SHARED_LIB environment variable takes precedence over the built-in
// platform defaults, which assume the library was unpacked under third_party/
// next to the working directory.
//
// Returns:
//   - string: The path to the shared library.
//   - error: An error if no library location is known for this platform.
func SharedLibPath() (string, error) {
	if path := os.Getenv(EnvSharedLib); path != "" {
		return path, nil
	}

	switch runtime.GOOS {
	case "windows":
		if runtime.GOARCH == "amd64" {
			return "third_party/onnxruntime.dll", nil
		}
	case "darwin":
		return "third_party/libonnxruntime.dylib", nil
	case "linux":
		if runtime.GOARCH == "arm64" {
			return "third_party/onnxruntime_arm64.so", nil
		}
		return "third_party/onnxruntime.so", nil
	}

	return "", fmt.Errorf(
		"no onnxruntime library known for %s/%s, set %s",
		runtime.GOOS, runtime.GOARCH, EnvSharedLib,
	)
}

// InitRuntime loads the shared library and initializes the ONNX Runtime
// environment.
//
// Initialization happens once per process; subsequent calls return the first
// outcome. The library file must exist before ONNX Runtime dlopens it, so a
// missing file is reported here rather than as an opaque native error.
//
// Returns:
//   - error: An error if the library is missing or environment setup fails.
func InitRuntime() error {
	initOnce.Do(func() {
		libPath, err := SharedLibPath()
		if err != nil {
			initErr = err
			return
		}

		if _, err := os.Stat(libPath); err != nil {
			initErr = fmt.Errorf(
				"onnxruntime library not found at %s (set %s to override): %w",
				libPath, EnvSharedLib, err,
			)
			return
		}

		ort.SetSharedLibraryPath(libPath)
		if err := ort.InitializeEnvironment(); err != nil {
			initErr = fmt.Errorf("error initializing ORT environment: %w", err)
			return
		}
	})

	return initErr
}

// DestroyRuntime tears down the ONNX Runtime environment.
//
// Call only after every session has been closed.
func DestroyRuntime() error {
	if !ort.IsInitialized() {
		return nil
	}
	if err := ort.DestroyEnvironment(); err != nil {
		return fmt.Errorf("error destroying ORT environment: %w", err)
	}
	return nil
}
