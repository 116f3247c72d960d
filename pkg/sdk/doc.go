// Package rankd provides an embedded Go client for the rankd property
// search service, backed by Redis with the search and JSON modules.
//
// The client wires the full fusion pipeline in-process: lexical,
// text-vector and image-vector retrieval fused with weighted RRF,
// subquery planning, tag boosting and near-duplicate collapse. Callers
// supply their own embedding providers; without them the client degrades
// to lexical-only retrieval.
//
//	client, _ := rankd.New(ctx,
//	    rankd.WithRedis("localhost:6379", ""),
//	    rankd.WithEmbedders(textEmb, imageEmb),
//	)
//	defer client.Close()
//
//	_ = client.UpsertListings(ctx, listings)
//	results, _ := client.Search(ctx, rankd.SearchRequest{
//	    Query:    "modern farmhouse with granite countertops",
//	    MustHave: []string{"granite_countertops"},
//	    Limit:    10,
//	})
package rankd
