package uibind_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	html "github.com/gost-dom/browser/html"
	"github.com/octoberswimmer/uibind"
	"github.com/octoberswimmer/uibind/clock"
	"github.com/octoberswimmer/uibind/uibindtest"
)

type fixture struct {
	win     html.Window
	page    *uibind.GostPage
	sdk     *uibindtest.RecordingSDK
	session *uibind.SessionState
	clk     *clock.Manual
	binder  *uibind.Binder
	failed  []*uibind.RenderError
}

func newFixture(t *testing.T, body string, mode uibindtest.Mode, opts ...uibind.BinderOption) *fixture {
	t.Helper()
	win, err := html.NewWindowReader(strings.NewReader("<!DOCTYPE html><html><body>" + body + "</body></html>"))
	if err != nil {
		t.Fatalf("failed to create gost-dom window: %v", err)
	}
	f := &fixture{
		win:     win,
		page:    uibind.NewGostPage(win),
		sdk:     uibindtest.NewRecordingSDK(mode),
		session: uibind.NewSessionState(),
		clk:     clock.NewManual(),
	}
	opts = append([]uibind.BinderOption{
		uibind.WithClock(f.clk),
		uibind.WithFailureHandler(func(err *uibind.RenderError) { f.failed = append(f.failed, err) }),
	}, opts...)
	f.binder = uibind.NewBinder(f.page, f.sdk, f.session, opts...)
	return f
}

func (f *fixture) bind() {
	f.binder.BindAll(f.page.Document())
}

func (f *fixture) element(t *testing.T, id string) uibind.Element {
	t.Helper()
	els := f.page.Document().QueryAll("#" + id)
	if len(els) != 1 {
		t.Fatalf("expected one element #%s, got %d", id, len(els))
	}
	return els[0]
}

func (f *fixture) status(t *testing.T, id string) uibind.LoadStatus {
	t.Helper()
	s, ok := f.binder.Status(id)
	if !ok {
		t.Fatalf("element %s is not bound", id)
	}
	return s
}

func (f *fixture) removeAttr(t *testing.T, id, name string) {
	t.Helper()
	el, err := f.win.Document().QuerySelector("#" + id)
	if err != nil || el == nil {
		t.Fatalf("query #%s: %v", id, err)
	}
	el.RemoveAttribute(name)
}

func TestBindAllAssignsIDsOnce(t *testing.T) {
	f := newFixture(t, `
		<div class="gy-ui-login"></div>
		<div class="gy-ui-login"></div>
		<div id="chat" class="gy-ui-chat"></div>
		<div class="unrelated"></div>`, uibindtest.LoadImmediately)
	f.session.Init(uibind.Account{})

	f.bind()
	f.bind()

	bindings := f.binder.Bindings()
	if len(bindings) != 3 {
		t.Fatalf("expected 3 bindings, got %d", len(bindings))
	}
	seen := map[string]bool{}
	for _, b := range bindings {
		if b.ID == "" || seen[b.ID] {
			t.Errorf("binding id %q is empty or duplicated", b.ID)
		}
		seen[b.ID] = true
	}
	for _, id := range []string{"gy-ui-1", "gy-ui-2", "chat"} {
		if !f.binder.Bound(id) {
			t.Errorf("expected %s to be bound", id)
		}
		f.element(t, id)
	}
	if got := len(f.sdk.Calls()); got != 3 {
		t.Errorf("expected 3 renders, got %d", got)
	}
	if resize, click := f.page.Listeners(); resize != 3 || click != 3 {
		t.Errorf("expected 3 resize and 3 click listeners, got %d and %d", resize, click)
	}
	if got := f.session.SubscriberCount(); got != 3 {
		t.Errorf("expected 3 session subscribers, got %d", got)
	}
}

func TestBindAllPicksUpNewElements(t *testing.T) {
	f := newFixture(t, `<div id="a" class="gy-ui-feed"></div>`, uibindtest.LoadImmediately)
	f.session.Init(uibind.Account{})
	f.bind()

	body, _ := f.win.Document().QuerySelector("body")
	if err := body.SetInnerHTML(body.InnerHTML() + `<div id="b" class="gy-ui-rating"></div>`); err != nil {
		t.Fatalf("SetInnerHTML: %v", err)
	}
	f.bind()

	if !f.binder.Bound("b") {
		t.Fatalf("expected new element b to be bound")
	}
	c, ok := f.sdk.Last("b")
	if !ok || c.Method != "gigya.comments.showRatingUI" {
		t.Errorf("expected rating render for b, got %+v", c)
	}
}

func TestRenderWaitsForSession(t *testing.T) {
	f := newFixture(t, `<div id="w" class="gy-ui-leaderboard"></div>`, uibindtest.LoadImmediately)
	f.bind()

	if got := f.status(t, "w"); got != uibind.StatusIdle {
		t.Fatalf("expected idle before session init, got %s", got)
	}
	f.binder.Render(f.element(t, "w"))
	f.clk.Advance(time.Minute)
	if got := f.status(t, "w"); got != uibind.StatusIdle {
		t.Fatalf("expected idle while session uninitialized, got %s", got)
	}
	if got := len(f.sdk.Calls()); got != 0 {
		t.Fatalf("expected no renders, got %d", got)
	}

	f.session.Init(uibind.Account{})
	f.clk.Advance(uibind.DefaultDebounce)
	if got := len(f.sdk.CallsFor("w")); got != 1 {
		t.Fatalf("expected render after session init, got %d calls", got)
	}
	if got := f.status(t, "w"); got != uibind.StatusLoaded {
		t.Errorf("expected loaded, got %s", got)
	}
}

func TestRenderSkipsWhileLoading(t *testing.T) {
	f := newFixture(t, `<div id="w" class="gy-ui-chat"></div>`, uibindtest.LoadManually)
	f.session.Init(uibind.Account{})
	f.bind()

	el := f.element(t, "w")
	f.binder.Render(el)
	f.binder.Render(el)
	if got := len(f.sdk.CallsFor("w")); got != 1 {
		t.Fatalf("expected a single render while loading, got %d", got)
	}
	if got := f.status(t, "w"); got != uibind.StatusLoading {
		t.Fatalf("expected loading, got %s", got)
	}

	f.sdk.Load("w")
	if got := f.status(t, "w"); got != uibind.StatusLoaded {
		t.Fatalf("expected loaded, got %s", got)
	}
	f.binder.Render(el)
	if got := len(f.sdk.CallsFor("w")); got != 2 {
		t.Errorf("expected loaded element to render again, got %d calls", got)
	}
}

func TestInvocationFailure(t *testing.T) {
	f := newFixture(t, `
		<div id="plain" class="gy-ui-feed"></div>
		<div id="custom" class="gy-ui-chat" data-error-message="Chat is down."></div>
		<div id="ruled" class="gy-ui-poll"></div>`,
		uibindtest.Unavailable,
		uibind.WithRules(append(uibind.DefaultRules(), uibind.Rule{
			Name:         "poll",
			Method:       "gigya.poll.showPollUI",
			ErrorMessage: "Polls are unavailable.",
		})),
	)
	f.session.Init(uibind.Account{})
	f.bind()

	cases := map[string]string{
		"plain":  uibind.DefaultFallbackMessage,
		"custom": "Chat is down.",
		"ruled":  "Polls are unavailable.",
	}
	for id, want := range cases {
		if got := f.element(t, id).InnerHTML(); got != want {
			t.Errorf("%s: content = %q, want %q", id, got, want)
		}
		if got := f.status(t, id); got != uibind.StatusFailed {
			t.Errorf("%s: expected failed, got %s", id, got)
		}
	}
	if len(f.failed) != 3 {
		t.Fatalf("expected 3 failures, got %d", len(f.failed))
	}
	for _, err := range f.failed {
		if err.Kind != uibind.FailureInvocation || !errors.Is(err, uibind.ErrSDKUnavailable) {
			t.Errorf("unexpected failure %v", err)
		}
	}
	if f.clk.Pending() != 0 {
		t.Errorf("expected no polling after invocation failure, %d timers pending", f.clk.Pending())
	}
}

func TestLoadTimeout(t *testing.T) {
	f := newFixture(t, `<div id="w" class="gy-ui-comments"></div>`, uibindtest.LoadManually)
	f.session.Init(uibind.Account{})
	f.bind()

	f.clk.Advance(uibind.DefaultRetryInterval*uibind.DefaultMaxAttempts - time.Millisecond)
	if got := f.status(t, "w"); got != uibind.StatusLoading {
		t.Fatalf("expected loading just before the deadline, got %s", got)
	}
	f.clk.Advance(time.Millisecond)
	if got := f.status(t, "w"); got != uibind.StatusFailed {
		t.Fatalf("expected failed after %d polls, got %s", uibind.DefaultMaxAttempts, got)
	}
	if got := f.element(t, "w").InnerHTML(); got != uibind.DefaultFallbackMessage {
		t.Errorf("content = %q, want fallback", got)
	}
	if len(f.failed) != 1 || f.failed[0].Kind != uibind.FailureTimeout || !errors.Is(f.failed[0], uibind.ErrLoadTimeout) {
		t.Errorf("expected one timeout failure, got %v", f.failed)
	}

	// a late load still counts
	f.sdk.Load("w")
	if got := f.status(t, "w"); got != uibind.StatusLoaded {
		t.Errorf("expected late load to mark loaded, got %s", got)
	}
}

func TestLoadBeforeTimeout(t *testing.T) {
	f := newFixture(t, `<div id="w" class="gy-ui-comments"></div>`, uibindtest.LoadManually,
		uibind.WithRetry(100*time.Millisecond, 3))
	f.session.Init(uibind.Account{})
	f.bind()

	f.clk.Advance(250 * time.Millisecond)
	f.sdk.Load("w")
	f.clk.Advance(time.Second)
	if got := f.status(t, "w"); got != uibind.StatusLoaded {
		t.Fatalf("expected loaded, got %s", got)
	}
	if len(f.failed) != 0 {
		t.Errorf("expected no failures, got %v", f.failed)
	}
}

func TestSizeParams(t *testing.T) {
	f := newFixture(t, `
		<div id="sized" class="gy-ui-feed" style="width: 300px"></div>
		<div id="zero" class="gy-ui-feed"></div>
		<div id="explicit" class="gy-ui-feed" style="width: 300px; height: 40px" data-width="250"></div>
		<div id="default" class="gy-ui-comments" style="width: 300px"></div>`,
		uibindtest.LoadImmediately)
	f.session.Init(uibind.Account{})
	f.bind()

	params := func(id string) uibind.Params {
		c, ok := f.sdk.Last(id)
		if !ok {
			t.Fatalf("no render for %s", id)
		}
		return c.Params
	}

	if got := params("sized")["width"]; got != 300.0 {
		t.Errorf("sized width = %v, want 300", got)
	}
	if _, ok := params("sized")["height"]; ok {
		t.Errorf("sized: zero height should be omitted")
	}
	if _, ok := params("zero")["width"]; ok {
		t.Errorf("zero: width should be omitted")
	}
	if _, ok := params("zero")["height"]; ok {
		t.Errorf("zero: height should be omitted")
	}
	if got := params("explicit")["width"]; got != 250 {
		t.Errorf("explicit width = %v (%T), want 250", got, got)
	}
	if got := params("explicit")["height"]; got != 40.0 {
		t.Errorf("explicit height = %v, want 40", got)
	}
	if got := params("default")["width"]; got != "100%" {
		t.Errorf("default width = %v, want rule default 100%%", got)
	}
	if got := params("sized")["containerID"]; got != "sized" {
		t.Errorf("containerID = %v, want sized", got)
	}
}

func TestParamsFromAttributes(t *testing.T) {
	f := newFixture(t, `
		<div id="login" class="gy-ui-login" data-version="3" data-enabled-providers="facebook,twitter"
			data-title="Note: sign in first" data-cta="Sign in #now"></div>
		<div id="share" class="gy-ui-share-bar" data-user-action="{title: Hello}" data-rerender="false"></div>`,
		uibindtest.LoadImmediately)
	f.session.Init(uibind.Account{})
	f.bind()

	login, _ := f.sdk.Last("login")
	if login.Method != "gigya.socialize.showLoginUI" {
		t.Errorf("login method = %s", login.Method)
	}
	if got := login.Params["hideGigyaLink"]; got != true {
		t.Errorf("hideGigyaLink = %v, want default true", got)
	}
	if got := login.Params["version"]; got != 3 {
		t.Errorf("version = %v, want attribute override 3", got)
	}
	if got := login.Params["enabledProviders"]; got != "facebook,twitter" {
		t.Errorf("enabledProviders = %v", got)
	}
	if got := login.Params["title"]; got != "Note: sign in first" {
		t.Errorf("title = %#v, want the attribute text", got)
	}
	if got := login.Params["cta"]; got != "Sign in #now" {
		t.Errorf("cta = %#v, want the attribute text", got)
	}
	if _, ok := login.Params["gyUiBound"]; ok {
		t.Errorf("bound marker leaked into params")
	}

	share, _ := f.sdk.Last("share")
	action, ok := share.Params["userAction"].(uibind.Params)
	if !ok || action["title"] != "Hello" {
		t.Errorf("userAction = %#v", share.Params["userAction"])
	}
	if _, ok := share.Params["rerender"]; ok {
		t.Errorf("rerender control leaked into params")
	}
}

// A login widget that rendered nothing must render again once the user
// signs in.
func TestLoginRerendersOnSignIn(t *testing.T) {
	f := newFixture(t, `<div id="login" class="gy-ui-login"></div>`, uibindtest.LoadImmediately)
	f.session.Init(uibind.Account{})
	f.bind()
	if got := len(f.sdk.CallsFor("login")); got != 1 {
		t.Fatalf("expected initial render, got %d", got)
	}

	f.session.Update(uibind.Account{UID: "123", IsRegistered: true})
	f.clk.Advance(uibind.DefaultDebounce)

	if got := len(f.sdk.CallsFor("login")); got != 2 {
		t.Fatalf("expected a fresh render after sign-in, got %d calls", got)
	}
}

func TestLiveWidgetIsNotRerendered(t *testing.T) {
	f := newFixture(t, `<div id="feed" class="gy-ui-feed"></div>`, uibindtest.LoadImmediately)
	f.sdk.Render = func(uibindtest.Call) string { return "feed" }
	f.session.Init(uibind.Account{})
	f.bind()

	f.session.Update(uibind.Account{UID: "123", IsRegistered: true})
	f.page.Resize()
	f.clk.Advance(time.Minute)
	if got := len(f.sdk.CallsFor("feed")); got != 1 {
		t.Errorf("expected no re-render of a live widget, got %d calls", got)
	}
}

func TestScreensetRerendersOnAccountChange(t *testing.T) {
	f := newFixture(t, `
		<div id="ss" class="gy-ui-screen-set"><form></form></div>
		<div id="off" class="gy-ui-screen-set" data-rerender="false"><form></form></div>
		<div id="noform" class="gy-ui-screen-set"><p>x</p></div>`,
		uibindtest.LoadImmediately)
	f.sdk.Render = func(uibindtest.Call) string { return "screen-set" }
	f.session.Init(uibind.Account{})
	f.bind()

	calls := func(id string) int { return len(f.sdk.CallsFor(id)) }

	// unregistered sign-in does not qualify
	f.session.Update(uibind.Account{UID: "123"})
	f.clk.Advance(uibind.DefaultDebounce)
	if calls("ss") != 1 {
		t.Fatalf("unregistered sign-in re-rendered the screen-set")
	}

	f.session.Update(uibind.Account{UID: "456", IsRegistered: true})
	f.clk.Advance(uibind.DefaultDebounce)
	if calls("ss") != 2 {
		t.Fatalf("expected re-render on registered sign-in, got %d calls", calls("ss"))
	}
	if calls("off") != 1 {
		t.Errorf("data-rerender=false element re-rendered")
	}
	if calls("noform") != 1 {
		t.Errorf("screen-set without a form re-rendered")
	}

	f.session.Update(uibind.Account{})
	f.clk.Advance(uibind.DefaultDebounce)
	if calls("ss") != 3 {
		t.Errorf("expected re-render on sign-out, got %d calls", calls("ss"))
	}
}

func TestHiddenElementRendersOnResize(t *testing.T) {
	f := newFixture(t, `<div id="wrap" style="display: none"><div id="w" class="gy-ui-chat"></div></div>`,
		uibindtest.LoadImmediately)
	f.session.Init(uibind.Account{})
	f.bind()
	if got := len(f.sdk.Calls()); got != 0 {
		t.Fatalf("hidden element rendered, %d calls", got)
	}

	f.removeAttr(t, "wrap", "style")
	f.page.Resize()
	f.page.Resize()
	f.clk.Advance(uibind.DefaultDebounce - time.Millisecond)
	if got := len(f.sdk.Calls()); got != 0 {
		t.Fatalf("render before debounce elapsed")
	}
	f.clk.Advance(time.Millisecond)
	if got := len(f.sdk.CallsFor("w")); got != 1 {
		t.Fatalf("expected one render after resize, got %d", got)
	}
}

func TestClickRechecksAfterDelays(t *testing.T) {
	f := newFixture(t, `<div id="w" class="gy-ui-achievements" hidden></div>`, uibindtest.LoadManually)
	f.session.Init(uibind.Account{})
	f.bind()

	f.page.Click()
	f.clk.Advance(600 * time.Millisecond)
	if got := len(f.sdk.Calls()); got != 0 {
		t.Fatalf("hidden element rendered")
	}

	// revealed by a slow animation
	f.removeAttr(t, "w", "hidden")
	f.clk.Advance(150 * time.Millisecond)
	if got := len(f.sdk.CallsFor("w")); got != 1 {
		t.Fatalf("expected render from the 750ms re-check, got %d", got)
	}

	// later re-checks see a loading element and do nothing
	f.clk.Advance(time.Second)
	if got := len(f.sdk.CallsFor("w")); got != 1 {
		t.Errorf("expected no render while loading, got %d", got)
	}
}

func TestClose(t *testing.T) {
	f := newFixture(t, `<div id="w" class="gy-ui-user-status" hidden></div>`, uibindtest.LoadImmediately)
	f.session.Init(uibind.Account{})
	f.bind()
	f.binder.Close()

	if resize, click := f.page.Listeners(); resize != 0 || click != 0 {
		t.Errorf("listeners left after Close: %d resize, %d click", resize, click)
	}
	if got := f.session.SubscriberCount(); got != 0 {
		t.Errorf("subscribers left after Close: %d", got)
	}
	if !f.sdk.Released() {
		t.Errorf("Close did not release the SDK")
	}

	f.removeAttr(t, "w", "hidden")
	f.page.Click()
	f.session.Update(uibind.Account{UID: "1", IsRegistered: true})
	f.clk.Advance(time.Minute)
	f.bind()
	if got := len(f.sdk.Calls()); got != 0 {
		t.Errorf("closed binder rendered %d times", got)
	}
}

func TestCustomIDPrefix(t *testing.T) {
	f := newFixture(t, `<div class="gy-ui-rating"></div><div id="x-1" class="gy-ui-chat"></div><div class="gy-ui-chat"></div>`,
		uibindtest.LoadImmediately, uibind.WithIDPrefix("x-"))
	f.session.Init(uibind.Account{})
	f.bind()

	var ids []string
	for _, b := range f.binder.Bindings() {
		ids = append(ids, b.ID)
	}
	want := []string{"x-1", "x-2", "x-3"}
	if strings.Join(ids, ",") != strings.Join(want, ",") {
		t.Errorf("ids = %v, want %v", ids, want)
	}
}

func TestGeneratedIDsSkipDocumentIDs(t *testing.T) {
	f := newFixture(t, `<div class="gy-ui-feed"></div><div id="gy-ui-1" class="gy-ui-chat"></div>`,
		uibindtest.LoadImmediately)
	f.session.Init(uibind.Account{})
	f.bind()

	bindings := f.binder.Bindings()
	if len(bindings) != 2 {
		t.Fatalf("expected 2 bindings, got %d", len(bindings))
	}
	if bindings[0].Rule != "feed" || bindings[0].ID != "gy-ui-2" {
		t.Errorf("feed binding = %+v, want id gy-ui-2", bindings[0])
	}
	if bindings[1].Rule != "chat" || bindings[1].ID != "gy-ui-1" {
		t.Errorf("chat binding = %+v, want id gy-ui-1", bindings[1])
	}
	calls := f.sdk.Calls()
	if len(calls) != 2 || calls[0].ContainerID() == calls[1].ContainerID() {
		t.Fatalf("expected 2 renders into distinct containers, got %+v", calls)
	}
	if len(f.page.Document().QueryAll(`[id="gy-ui-1"]`)) != 1 {
		t.Errorf("id gy-ui-1 is used more than once")
	}
}

func TestDuplicateIDsAreSeparated(t *testing.T) {
	f := newFixture(t, `<div id="dup" class="gy-ui-chat"></div><div id="dup" class="gy-ui-rating"></div>`,
		uibindtest.LoadImmediately)
	f.session.Init(uibind.Account{})
	f.bind()
	f.bind()

	var ids []string
	for _, b := range f.binder.Bindings() {
		ids = append(ids, b.Rule+"="+b.ID)
	}
	want := []string{"chat=dup", "rating=gy-ui-1"}
	if strings.Join(ids, ",") != strings.Join(want, ",") {
		t.Errorf("bindings = %v, want %v", ids, want)
	}
	if got := len(f.sdk.Calls()); got != 2 {
		t.Errorf("expected 2 renders, got %d", got)
	}
}

func TestLateElementWithGeneratedID(t *testing.T) {
	f := newFixture(t, `<div class="gy-ui-feed"></div>`, uibindtest.LoadImmediately)
	f.session.Init(uibind.Account{})
	f.bind()

	body, _ := f.win.Document().QuerySelector("body")
	if err := body.SetInnerHTML(body.InnerHTML() + `<div id="gy-ui-1" class="gy-ui-chat"></div>`); err != nil {
		t.Fatalf("SetInnerHTML: %v", err)
	}
	f.bind()

	bindings := f.binder.Bindings()
	if len(bindings) != 2 {
		t.Fatalf("expected 2 bindings, got %d", len(bindings))
	}
	if bindings[1].Rule != "chat" || bindings[1].ID != "gy-ui-2" {
		t.Errorf("chat binding = %+v, want a fresh id", bindings[1])
	}
	if got := len(f.sdk.CallsFor("gy-ui-1")); got != 1 {
		t.Errorf("feed rendered %d times, want 1", got)
	}
}

func TestEarlierRenderCallbacksAreIgnored(t *testing.T) {
	f := newFixture(t, `<div id="ss" class="gy-ui-screen-set"><form></form></div>`, uibindtest.LoadManually)
	f.session.Init(uibind.Account{})
	f.bind()
	f.sdk.Load("ss")

	f.session.Update(uibind.Account{UID: "1", IsRegistered: true})
	f.clk.Advance(uibind.DefaultDebounce)
	calls := f.sdk.CallsFor("ss")
	if len(calls) != 2 {
		t.Fatalf("expected a second render, got %d calls", len(calls))
	}

	calls[0].Load()
	if got := f.status(t, "ss"); got != uibind.StatusLoading {
		t.Fatalf("earlier render's onLoad changed status to %s", got)
	}
	calls[1].Load()
	if got := f.status(t, "ss"); got != uibind.StatusLoaded {
		t.Errorf("expected loaded, got %s", got)
	}
}
