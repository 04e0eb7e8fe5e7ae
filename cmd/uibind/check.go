package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	html "github.com/gost-dom/browser/html"
	"github.com/octoberswimmer/uibind"
	"github.com/octoberswimmer/uibind/clock"
	"github.com/octoberswimmer/uibind/uibindtest"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// check command flags
var (
	checkUID         string
	checkRegistered  bool
	checkWait        time.Duration
	checkUnavailable bool
	checkNoLoad      bool
)

var checkCmd = &cobra.Command{
	Use:   "check file.html [file.html...]",
	Short: "Bind HTML files against a recording SDK and report every widget call",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&checkUID, "uid", "", "UID of the signed-in account (empty for signed out)")
	checkCmd.Flags().BoolVar(&checkRegistered, "registered", false, "Whether the signed-in account is registered")
	checkCmd.Flags().DurationVar(&checkWait, "wait", 15*time.Second, "Simulated time to run after binding")
	checkCmd.Flags().BoolVar(&checkUnavailable, "unavailable", false, "Simulate a page without the widget SDK")
	checkCmd.Flags().BoolVar(&checkNoLoad, "no-load", false, "Simulate widgets that never finish loading")
}

type fileReport struct {
	File     string          `yaml:"file"`
	Elements []elementReport `yaml:"elements"`
}

type elementReport struct {
	ID      string        `yaml:"id"`
	Rule    string        `yaml:"rule"`
	Method  string        `yaml:"method"`
	Status  string        `yaml:"status"`
	Renders int           `yaml:"renders"`
	Params  uibind.Params `yaml:"params,omitempty"`
	Content string        `yaml:"content,omitempty"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	opts, err := cfg.Options()
	if err != nil {
		return err
	}

	reports := make([]fileReport, len(args))
	group, _ := errgroup.WithContext(context.Background())
	group.SetLimit(runtime.NumCPU())
	for i, path := range args {
		group.Go(func() error {
			r, err := checkFile(path, opts, logger.With(zap.String("file", path)))
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			reports[i] = r
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	for _, r := range reports {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return enc.Close()
}

func checkFile(path string, opts []uibind.BinderOption, logger *zap.Logger) (fileReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return fileReport{}, err
	}
	defer f.Close()

	win, err := html.NewWindowReader(f)
	if err != nil {
		return fileReport{}, fmt.Errorf("failed to load document: %w", err)
	}

	mode := uibindtest.LoadImmediately
	switch {
	case checkUnavailable:
		mode = uibindtest.Unavailable
	case checkNoLoad:
		mode = uibindtest.LoadManually
	}
	sdk := uibindtest.NewRecordingSDK(mode)
	session := uibind.NewSessionState()
	session.Init(uibind.Account{UID: checkUID, IsRegistered: checkRegistered})

	clk := clock.NewManual()
	b, page, err := uibind.BindWindow(win, sdk, session,
		append(append([]uibind.BinderOption(nil), opts...), uibind.WithClock(clk), uibind.WithLogger(logger))...)
	if err != nil {
		return fileReport{}, err
	}
	defer b.Close()
	clk.Advance(checkWait)

	report := fileReport{File: path}
	for _, bd := range b.Bindings() {
		er := elementReport{
			ID:      bd.ID,
			Rule:    bd.Rule,
			Method:  bd.Method,
			Status:  bd.Status.String(),
			Renders: bd.Renders,
		}
		if call, ok := sdk.Last(bd.ID); ok {
			er.Params = call.Params
		}
		if bd.Status == uibind.StatusFailed {
			if el, err := page.Find("#" + bd.ID); err == nil {
				er.Content = el.InnerHTML()
			}
		}
		report.Elements = append(report.Elements, er)
	}
	return report, nil
}
