// Package accountsdk holds the wire types of the pharmacy account API and a
// small Go client for it. The server writes the same types, so the client and
// handlers cannot drift apart.
//
//	c := accountsdk.NewClient("http://127.0.0.1:8080")
//	sess, err := c.Login(ctx, "drsmith", "pwd1", accountsdk.RoleDoctor)
//	if err != nil { ... }
//	me, err := sess.Profile(ctx)
package accountsdk
