package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/go/packages"
)

// serve command flags
var (
	servePort   int
	serveSDKURL string
	serveOpen   bool
)

var serveCmd = &cobra.Command{
	Use:   "serve [dir]",
	Short: "Build a host page to WebAssembly and serve it with live reload",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8000, "Port to serve on")
	serveCmd.Flags().StringVar(&serveSDKURL, "sdk-url", "", "Script URL of the widget SDK, e.g. https://cdns.gigya.com/js/gigya.js?apiKey=...")
	serveCmd.Flags().BoolVar(&serveOpen, "open", true, "Open the page in a browser")
}

// defaultPage is served when the app directory has no index.html.
const defaultPage = `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>uibind</title>
</head>
<body>
    <div class="gy-ui-login"></div>
    <div class="gy-ui-share-bar" data-user-action="{title: Hello}"></div>
    <div class="gy-ui-comments" data-category-id="demo" data-stream-id="home"></div>
</body>
</html>`

const bootScript = `<script src="/wasm_exec.js"></script>
<script>
    const go = new Go();
    WebAssembly.instantiateStreaming(fetch("/bundle.wasm"), go.importObject).then((result) => {
        go.run(result.instance);
    });
    (function () {
        const ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/_reload");
        ws.onmessage = (ev) => { if (ev.data === "reload") location.reload(); };
    })();
</script>
`

// devServer holds the current build and serves it.
type devServer struct {
	appDir string
	sdkURL string
	hub    *reloadHub
	logger *zap.Logger

	mu       sync.RWMutex
	buildDir string
}

// rebuild replaces the current build and tells pages to reload.
func (s *devServer) rebuild() error {
	s.logger.Info("rebuilding", zap.String("dir", s.appDir))
	dir, err := buildWASM(s.appDir, s.logger)
	if err != nil {
		return fmt.Errorf("error building WASM: %w", err)
	}
	s.mu.Lock()
	old := s.buildDir
	s.buildDir = dir
	s.mu.Unlock()
	if old != "" {
		os.RemoveAll(old)
	}
	s.hub.Broadcast()
	s.logger.Info("rebuild complete", zap.Int("pages", s.hub.Clients()))
	return nil
}

func (s *devServer) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.buildDir != "" {
		os.RemoveAll(s.buildDir)
		s.buildDir = ""
	}
}

func (s *devServer) buildFile(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		dir := s.buildDir
		s.mu.RUnlock()
		http.ServeFile(w, r, filepath.Join(dir, name))
	}
}

// page returns the host page with the boot and SDK scripts injected.
func (s *devServer) page() (string, error) {
	page := defaultPage
	data, err := os.ReadFile(filepath.Join(s.appDir, "index.html"))
	switch {
	case err == nil:
		page = string(data)
	case !errors.Is(err, os.ErrNotExist):
		return "", err
	}
	return injectScripts(page, s.sdkURL), nil
}

// injectScripts adds the SDK loader and the wasm boot script to the end of
// the document head, or to the start of the document when it has no head.
func injectScripts(page, sdkURL string) string {
	var b strings.Builder
	if sdkURL != "" {
		fmt.Fprintf(&b, "<script src=%q></script>\n", sdkURL)
	}
	b.WriteString(bootScript)
	if i := strings.Index(strings.ToLower(page), "</head>"); i >= 0 {
		return page[:i] + b.String() + page[i:]
	}
	return b.String() + page
}

func (s *devServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/bundle.wasm", s.buildFile("bundle.wasm"))
	mux.HandleFunc("/wasm_exec.js", s.buildFile("wasm_exec.js"))
	mux.Handle("/_reload", s.hub)
	static := http.FileServer(http.Dir(s.appDir))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" && r.URL.Path != "/index.html" {
			static.ServeHTTP(w, r)
			return
		}
		page, err := s.page()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(page))
	})
	return mux
}

// runServe builds the host page and serves it, rebuilding on change.
func runServe(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	appDir := "."
	if len(args) > 0 {
		appDir = args[0]
	}
	if info, err := os.Stat(appDir); err != nil || !info.IsDir() {
		return fmt.Errorf("invalid app directory: %s", appDir)
	}

	if err := checkMainPackage(appDir, buildEnv(appDir, logger)); err != nil {
		return err
	}
	module, err := modulePath(appDir)
	if err != nil {
		return err
	}

	s := &devServer{
		appDir: appDir,
		sdkURL: serveSDKURL,
		hub:    newReloadHub(logger),
		logger: logger,
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Building %s (%s)...\n", module, appDir)
	if err := s.rebuild(); err != nil {
		return err
	}
	defer s.cleanup()

	port, listener, err := findFreePort(servePort, logger)
	if err != nil {
		return fmt.Errorf("error finding free port: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	server := &http.Server{
		Handler:     s.handler(),
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	url := fmt.Sprintf("http://localhost:%d", port)
	fmt.Fprintf(cmd.OutOrStdout(), "Serving %s on %s\n", module, url)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdown)
	})
	group.Go(func() error {
		return watchFiles(ctx, watchRoots(appDir, logger), logger, s.rebuild)
	})
	if serveOpen {
		group.Go(func() error {
			if err := openBrowser(url); err != nil {
				logger.Warn("failed to open browser", zap.Error(err))
			}
			return nil
		})
	}
	return group.Wait()
}

// checkMainPackage reports why the package in dir cannot be served.
func checkMainPackage(dir string, env []string) error {
	pkgs, err := packages.Load(&packages.Config{
		Mode: packages.NeedName,
		Dir:  dir,
		Env:  env,
	}, ".")
	if err != nil {
		return fmt.Errorf("failed to load package in %s: %w", dir, err)
	}
	if len(pkgs) == 0 {
		return fmt.Errorf("no package found in %s", dir)
	}
	if errs := pkgs[0].Errors; len(errs) > 0 {
		return fmt.Errorf("failed to load package in %s: %v", dir, errs[0])
	}
	if pkgs[0].Name != "main" {
		return fmt.Errorf("serve directory %s is not package main (found %s)", dir, pkgs[0].Name)
	}
	return nil
}

// findFreePort reserves preferredPort, or any free port when it is taken.
func findFreePort(preferredPort int, logger *zap.Logger) (int, net.Listener, error) {
	if preferredPort > 0 {
		ln, err := net.Listen("tcp", fmt.Sprintf(":%d", preferredPort))
		if err == nil {
			return preferredPort, ln, nil
		}
		logger.Warn("port in use, finding alternative", zap.Int("port", preferredPort))
	}
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		return 0, nil, err
	}
	return ln.Addr().(*net.TCPAddr).Port, ln, nil
}

var openCommands = map[string][]string{
	"windows": {"cmd", "/c", "start"},
	"darwin":  {"open"},
	"linux":   {"xdg-open"},
}

func openBrowser(uri string) error {
	run, ok := openCommands[runtime.GOOS]
	if !ok {
		return fmt.Errorf("don't know how to open things on %s platform", runtime.GOOS)
	}
	if runtime.GOOS == "windows" {
		uri = strings.ReplaceAll(uri, "&", "^&")
	}
	run = append(run, uri)
	return exec.Command(run[0], run[1:]...).Start()
}
