// Package smartsearch is a client for a product search service.
//
// A Client submits text or image queries, follows the resulting search
// session to its rendered results, records relevance votes and the
// session duration, and exposes the catalog and latency analytics used by
// the admin surface. Results are cached by key, deduplicated while in
// flight, and a session that has been replaced by a newer search never
// overwrites the newer one.
//
// # Talking to a server
//
//	client, _ := smartsearch.New(ctx,
//	    smartsearch.WithHTTP("https://search.example.com", token),
//	    smartsearch.WithStreaming(true),
//	)
//	defer client.Close()
//	snap, _ := client.Search(ctx, smartsearch.QueryRequest{Text: "leather jacket"})
//	for _, p := range snap.Products {
//	    fmt.Println(p.Name)
//	}
//
// # In-process demo backend
//
//	client, _ := smartsearch.New(ctx, smartsearch.WithMock(0, 0))
//
// The mock backend is seeded with a small catalog and corrects typos
// against the catalog vocabulary.
package smartsearch
