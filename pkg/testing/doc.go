// Package testing runs a reqcap capture server inside Go tests.
//
// The server records every request the code under test sends it and exposes
// the captured snapshots for inspection:
//
//	func TestClient(t *testing.T) {
//	    srv := reqcaptesting.New(t)
//
//	    client := myapi.NewClient(srv.URL())
//	    _ = client.CreateOrder(ctx, order)
//
//	    snap := srv.Wait(1, time.Second)[0]
//	    got, err := request.DecodeJSON[Order](snap)
//	    ...
//	}
//
// The server is closed automatically when the test finishes.
package testing
