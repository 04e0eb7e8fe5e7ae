package main

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/mod/modfile"
)

// buildWASM compiles the host page in appDir to WebAssembly and returns the
// temporary directory holding bundle.wasm and wasm_exec.js.
func buildWASM(appDir string, logger *zap.Logger) (string, error) {
	buildDir, err := os.MkdirTemp("", "uibind-build-*")
	if err != nil {
		return "", err
	}
	outWasm := filepath.Join(buildDir, "bundle.wasm")
	cmd := exec.Command("go", "build", "-o", outWasm)
	cmd.Env = append(buildEnv(appDir, logger), "GOOS=js", "GOARCH=wasm")

	absPath, err := filepath.Abs(appDir)
	if err != nil {
		os.RemoveAll(buildDir)
		return "", fmt.Errorf("failed to resolve app dir: %w", err)
	}
	cmd.Dir = absPath
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		os.RemoveAll(buildDir)
		return "", err
	}

	wasmExecSrc := filepath.Join(runtime.GOROOT(), "lib", "wasm", "wasm_exec.js")
	if _, err := os.Stat(wasmExecSrc); err != nil {
		// Go releases before 1.24 keep it under misc/.
		wasmExecSrc = filepath.Join(runtime.GOROOT(), "misc", "wasm", "wasm_exec.js")
	}
	if err := copyFile(wasmExecSrc, filepath.Join(buildDir, "wasm_exec.js")); err != nil {
		os.RemoveAll(buildDir)
		return "", err
	}
	return buildDir, nil
}

// buildEnv is the environment for go commands run against appDir.
func buildEnv(appDir string, logger *zap.Logger) []string {
	env := os.Environ()
	if shouldDisableWorkspace(appDir) {
		logger.Info("disabling go.work for standalone module build", zap.String("dir", appDir))
		env = append(env, "GOWORK=off")
	}
	return env
}

// findUp returns the first file called name in dir or one of its parents.
func findUp(dir, name string) string {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(absDir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(absDir)
		if parent == absDir {
			return ""
		}
		absDir = parent
	}
}

// workspaceModules returns the absolute module directories a go.work uses.
func workspaceModules(workFile string) ([]string, error) {
	data, err := os.ReadFile(workFile)
	if err != nil {
		return nil, err
	}
	wf, err := modfile.ParseWork(workFile, data, nil)
	if err != nil {
		return nil, err
	}
	workDir := filepath.Dir(workFile)
	modules := make([]string, 0, len(wf.Use))
	for _, use := range wf.Use {
		dir := use.Path
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(workDir, dir)
		}
		modules = append(modules, dir)
	}
	return modules, nil
}

// shouldDisableWorkspace reports whether a go.work above targetDir does not
// list targetDir, in which case building with it would fail.
func shouldDisableWorkspace(targetDir string) bool {
	workFile := findUp(targetDir, "go.work")
	if workFile == "" {
		return false
	}
	modules, err := workspaceModules(workFile)
	if err != nil {
		return false
	}
	absTarget, err := filepath.Abs(targetDir)
	if err != nil {
		return false
	}
	for _, module := range modules {
		if absModule, err := filepath.Abs(module); err == nil && absModule == absTarget {
			return false
		}
	}
	return true
}

// modulePath returns the module path of the go.mod governing dir.
func modulePath(dir string) (string, error) {
	modFile := findUp(dir, "go.mod")
	if modFile == "" {
		return "", fmt.Errorf("no go.mod found for %s", dir)
	}
	data, err := os.ReadFile(modFile)
	if err != nil {
		return "", err
	}
	path := modfile.ModulePath(data)
	if path == "" {
		return "", fmt.Errorf("%s has no module directive", modFile)
	}
	return path, nil
}

// copyFile copies a file from src to dst, creating parent directories.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
