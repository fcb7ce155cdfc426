// Package id generates battle identifiers.
//
// An ID sorts in creation order both as bytes and as its hex string, so
// store keys built from it list battles oldest first. Within one process IDs
// are strictly increasing even if the wall clock stalls or steps back.
//
//	g := id.NewGenerator()
//	s := g.Next().String() // 32 lowercase hex chars
//	back, err := id.Parse(s)
package id
