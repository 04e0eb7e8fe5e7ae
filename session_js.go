//go:build js
// +build js

package uibind

import (
	"fmt"
	"syscall/js"
)

// WatchAccount initializes s from gigya.accounts.getAccountInfo and keeps it
// current through the SDK's login and logout events. Updates are handed to
// post so they reach subscribers on the binder's event loop.
func WatchAccount(post func(func()), s *SessionState) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrSDKUnavailable, r)
		}
	}()
	accounts := lookup(js.Global(), []string{"gigya", "accounts"})
	if !defined(accounts) {
		return fmt.Errorf("%w: gigya.accounts is not defined", ErrSDKUnavailable)
	}

	onLogin := js.FuncOf(func(_ js.Value, args []js.Value) interface{} {
		acct := accountFrom(args)
		post(func() { s.Update(acct) })
		return nil
	})
	onLogout := js.FuncOf(func(js.Value, []js.Value) interface{} {
		post(func() { s.Update(Account{}) })
		return nil
	})
	accounts.Call("addEventHandlers", map[string]interface{}{
		"onLogin":  onLogin,
		"onLogout": onLogout,
	})

	var callback js.Func
	callback = js.FuncOf(func(_ js.Value, args []js.Value) interface{} {
		defer callback.Release()
		acct := Account{}
		if len(args) > 0 && defined(args[0]) && args[0].Get("errorCode").Type() == js.TypeNumber && args[0].Get("errorCode").Int() == 0 {
			acct = accountFrom(args)
		}
		post(func() { s.Init(acct) })
		return nil
	})
	accounts.Call("getAccountInfo", map[string]interface{}{"callback": callback})
	return nil
}

func accountFrom(args []js.Value) Account {
	if len(args) == 0 || !defined(args[0]) {
		return Account{}
	}
	v := args[0]
	acct := Account{}
	if uid := v.Get("UID"); uid.Type() == js.TypeString {
		acct.UID = uid.String()
	}
	if reg := v.Get("isRegistered"); reg.Type() == js.TypeBoolean {
		acct.IsRegistered = reg.Bool()
	}
	return acct
}
