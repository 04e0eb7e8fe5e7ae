package uibind

// ScreensetPredicate re-renders screen-sets containing a form when the
// user signs in with a registered account or signs out.
var ScreensetPredicate = PredicateFunc(func(prev, next Account, el Element) bool {
	return prev.UID != next.UID &&
		el.Count("form") > 0 &&
		(next.IsRegistered || next.UID == "")
})

// DefaultRules returns the built-in rule table. Each call returns fresh
// copies.
func DefaultRules() []Rule {
	return []Rule{
		NewRule("login", "gigya.socialize.showLoginUI", Params{"hideGigyaLink": true, "version": 2}),
		NewRule("feed", "gigya.socialize.showFeedUI", nil),
		NewRule("chat", "gigya.chat.showChatUI", nil),
		NewRule("share-bar", "gigya.socialize.showShareBarUI", Params{"userAction": Params{}}),
		NewRule("comments", "gigya.comments.showCommentsUI", Params{"width": "100%"}),
		NewRule("rating", "gigya.comments.showRatingUI", nil),
		NewRule("screen-set", "gigya.accounts.showScreenSet", Params{"width": "100%"}).WithPredicate(screensetPredicate),
		NewRule("achievements", "gigya.gm.showAchievementsUI", nil),
		NewRule("challenge-status", "gigya.gm.showChallengeStatusUI", nil),
		NewRule("leaderboard", "gigya.gm.showLeaderboardUI", nil),
		NewRule("user-status", "gigya.gm.showUserStatusUI", nil),
		NewRule("account-info", "gy.showAccountInfoUI", nil),
	}
}
