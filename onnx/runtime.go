package onnx

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"

	ort "github.com/yalue/onnxruntime_go"
)

var candidates = map[string][]string{
	"linux": {
		"onnxlibs/libonnxruntime.so",
		"/usr/local/lib/libonnxruntime.so",
		"/usr/lib/libonnxruntime.so",
		"/usr/lib/x86_64-linux-gnu/libonnxruntime.so",
	},
	"darwin": {
		"onnxlibs/libonnxruntime.dylib",
		"/usr/local/lib/libonnxruntime.dylib",
		"/opt/homebrew/lib/libonnxruntime.dylib",
	},
	"windows": {
		"onnxlibs/onnxruntime.dll",
		"onnxruntime.dll",
	},
}

// LibPath returns the configured library path, or the first candidate for this
// OS that exists on disk.
func LibPath(configured string) string {
	if configured != "" {
		return configured
	}
	for _, path := range candidates[runtime.GOOS] {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// Init loads the shared library and initializes the ONNX Runtime environment.
// The returned func destroys the environment.
func Init(configured string) (func(), error) {
	path := LibPath(configured)
	if path == "" {
		return nil, fmt.Errorf("ONNX Runtime library not found for %s, set libonnx in config.toml", runtime.GOOS)
	}
	slog.Info("Using ONNX Runtime library", slog.String("path", path))

	ort.SetSharedLibraryPath(path)
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX Runtime environment: %w", err)
	}
	return func() {
		if err := ort.DestroyEnvironment(); err != nil {
			slog.Error("Failed to destroy ONNX Runtime environment", slog.String("error", err.Error()))
		}
	}, nil
}
